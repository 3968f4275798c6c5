package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/babisteps/admin-api/pkg/config"
	"github.com/babisteps/admin-api/pkg/models"
	"github.com/babisteps/admin-api/pkg/sheets"
)

var (
	// ErrNameRequired is returned when a record is written without a name
	ErrNameRequired = errors.New("name is required")
	// ErrRowNotFound is returned when sheet_row does not address a data row
	ErrRowNotFound = errors.New("sheet row not found")
	// ErrUnknownKind is returned for a client kind other than private or institutional
	ErrUnknownKind = errors.New("unknown client kind")
)

// Column headers as they appear in the sheets
const (
	ColName          = "שם"
	ColPhone         = "טלפון"
	ColEmail         = "מייל"
	ColSpecialties   = "התמחויות"
	ColNotes         = "הערות"
	ColStatus        = "פעיל"
	ColSpecialNeeds  = "צורך מיוחד"
	ColOrganization  = "גוף"
	ColContactPerson = "איש קשר"
)

// Legacy header spellings, mapped to the current ones
var headerAliases = map[string]string{
	"סטטוס": ColStatus,
	"ארגון": ColOrganization,
}

var (
	instructorColumns    = []string{ColName, ColPhone, ColEmail, ColSpecialties, ColNotes, ColStatus}
	privateColumns       = []string{ColName, ColPhone, ColEmail, ColSpecialNeeds, ColNotes, ColStatus}
	institutionalColumns = []string{ColOrganization, ColContactPerson, ColPhone, ColEmail, ColNotes, ColStatus}
)

// Directory reads and edits the instructor and client tabs of the main spreadsheet
type Directory struct {
	Store sheets.Store
	Tabs  config.Tabs
}

// New creates a Directory. store may be nil when the spreadsheet is not
// configured; every call then fails with a config error.
func New(store sheets.Store, tabs config.Tabs) *Directory {
	return &Directory{Store: store, Tabs: tabs}
}

func (d *Directory) store() (sheets.Store, error) {
	if d == nil || d.Store == nil {
		return nil, models.ConfigError("directory", fmt.Errorf("SPREADSHEET_ID: %w", models.ErrNotConfigured))
	}
	return d.Store, nil
}

// KnownClientNames returns the names of both client tabs as one set.
// On a read error it returns an empty set and the classified error.
func (d *Directory) KnownClientNames(ctx context.Context) (models.ClientSet, error) {
	store, err := d.store()
	if err != nil {
		return models.ClientSet{}, err
	}

	sources := []struct {
		tab     string
		headers []string
	}{
		{d.Tabs.PrivateClients, []string{ColName}},
		{d.Tabs.InstitutionalClients, []string{ColOrganization, "ארגון"}},
	}
	var names []string
	for _, src := range sources {
		_, rows, err := store.ReadRows(ctx, src.tab)
		if err != nil {
			return models.ClientSet{}, classify(err, src.tab)
		}
		for _, r := range rows {
			names = append(names, r.Get(src.headers...))
		}
	}
	return models.NewClientSet(names...), nil
}

// InstructorUsernames maps email local part to display name for every
// instructor row with an email. The last row wins on collision; a missing
// display name falls back to the username.
func (d *Directory) InstructorUsernames(ctx context.Context) (map[string]string, error) {
	store, err := d.store()
	if err != nil {
		return map[string]string{}, err
	}
	_, rows, err := store.ReadRows(ctx, d.Tabs.Instructors)
	if err != nil {
		return map[string]string{}, classify(err, d.Tabs.Instructors)
	}

	usernames := make(map[string]string, len(rows))
	for _, r := range rows {
		email := r.Get(ColEmail)
		if !strings.Contains(email, "@") {
			continue
		}
		username := models.EmailUsername(email)
		name := r.Get(ColName)
		if name == "" {
			name = username
		}
		if prev, ok := usernames[username]; ok && prev != name {
			slog.Debug("instructor username collision", "username", username, "previous", prev, "name", name)
		}
		usernames[username] = name
	}
	return usernames, nil
}

// Snapshot holds the lookups an aggregation pass needs. Each half carries
// its own error so one failed tab does not hide the other.
type Snapshot struct {
	Clients        models.ClientSet
	Usernames      map[string]string
	ClientsErr     error
	InstructorsErr error
}

// Prefetch reads client names and instructor usernames concurrently
func (d *Directory) Prefetch(ctx context.Context) Snapshot {
	var (
		wg   sync.WaitGroup
		snap Snapshot
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		snap.Clients, snap.ClientsErr = d.KnownClientNames(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.Usernames, snap.InstructorsErr = d.InstructorUsernames(ctx)
	}()
	wg.Wait()
	return snap
}

// Instructors lists every instructor row, active ones first
func (d *Directory) Instructors(ctx context.Context) ([]models.Instructor, error) {
	store, err := d.store()
	if err != nil {
		return nil, err
	}
	_, rows, err := store.ReadRows(ctx, d.Tabs.Instructors)
	if err != nil {
		return nil, classify(err, d.Tabs.Instructors)
	}
	out := make([]models.Instructor, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Instructor{
			Name:        r.Get(ColName),
			Phone:       r.Get(ColPhone),
			Email:       r.Get(ColEmail),
			Specialties: r.Get(ColSpecialties),
			Notes:       r.Get(ColNotes),
			Status:      r.Get(ColStatus, "סטטוס"),
			SheetRow:    r.Number,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Active() && !out[j].Active() })
	return out, nil
}

// AddInstructor appends an instructor and returns its sheet row
func (d *Directory) AddInstructor(ctx context.Context, in models.Instructor) (int, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, ErrNameRequired
	}
	return d.appendRecord(ctx, d.Tabs.Instructors, instructorColumns, instructorValues(in))
}

// UpdateInstructor rewrites the instructor at sheet row
func (d *Directory) UpdateInstructor(ctx context.Context, row int, in models.Instructor) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	return d.updateRecord(ctx, d.Tabs.Instructors, row, instructorColumns, instructorValues(in))
}

// Clients lists the rows of one client tab, active ones first
func (d *Directory) Clients(ctx context.Context, kind models.ClientKind) ([]models.Client, error) {
	tab, _, err := d.clientTab(kind)
	if err != nil {
		return nil, err
	}
	store, err := d.store()
	if err != nil {
		return nil, err
	}
	_, rows, err := store.ReadRows(ctx, tab)
	if err != nil {
		return nil, classify(err, tab)
	}
	out := make([]models.Client, 0, len(rows))
	for _, r := range rows {
		c := models.Client{
			Kind:     kind,
			Phone:    r.Get(ColPhone),
			Email:    r.Get(ColEmail),
			Notes:    r.Get(ColNotes),
			Status:   r.Get(ColStatus, "סטטוס"),
			SheetRow: r.Number,
		}
		if kind == models.ClientInstitutional {
			c.Name = r.Get(ColOrganization, "ארגון")
			c.ContactPerson = r.Get(ColContactPerson)
		} else {
			c.Name = r.Get(ColName)
			c.SpecialNeeds = r.Get(ColSpecialNeeds)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status != models.StatusInactive && out[j].Status == models.StatusInactive
	})
	return out, nil
}

// AddClient appends a client to the tab of its kind and returns its sheet row
func (d *Directory) AddClient(ctx context.Context, c models.Client) (int, error) {
	tab, cols, err := d.clientTab(c.Kind)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(c.Name) == "" {
		return 0, ErrNameRequired
	}
	return d.appendRecord(ctx, tab, cols, clientValues(c))
}

// UpdateClient rewrites the client at sheet row of the tab of its kind
func (d *Directory) UpdateClient(ctx context.Context, row int, c models.Client) error {
	tab, cols, err := d.clientTab(c.Kind)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	return d.updateRecord(ctx, tab, row, cols, clientValues(c))
}

func (d *Directory) clientTab(kind models.ClientKind) (string, []string, error) {
	switch kind {
	case models.ClientPrivate:
		return d.Tabs.PrivateClients, privateColumns, nil
	case models.ClientInstitutional:
		return d.Tabs.InstitutionalClients, institutionalColumns, nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func (d *Directory) appendRecord(ctx context.Context, tab string, defaults []string, values map[string]string) (int, error) {
	store, err := d.store()
	if err != nil {
		return 0, err
	}
	headers, rows, err := store.ReadRows(ctx, tab)
	if err != nil {
		return 0, classify(err, tab)
	}
	if len(headers) == 0 {
		headers = defaults
	}
	if err := store.AppendRow(ctx, tab, ordered(headers, values)); err != nil {
		return 0, classify(err, tab)
	}
	next := 2
	if len(rows) > 0 {
		next = rows[len(rows)-1].Number + 1
	}
	return next, nil
}

func (d *Directory) updateRecord(ctx context.Context, tab string, row int, defaults []string, values map[string]string) error {
	store, err := d.store()
	if err != nil {
		return err
	}
	headers, rows, err := store.ReadRows(ctx, tab)
	if err != nil {
		return classify(err, tab)
	}
	found := false
	for _, r := range rows {
		if r.Number == row {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %d", ErrRowNotFound, row)
	}
	if len(headers) == 0 {
		headers = defaults
	}
	if err := store.UpdateRange(ctx, tab, sheets.RowRange(row, len(headers)), [][]string{ordered(headers, values)}); err != nil {
		return classify(err, tab)
	}
	return nil
}

// ordered lays values out in the tab's header order. Unknown headers are left blank.
func ordered(headers []string, values map[string]string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if canonical, ok := headerAliases[h]; ok {
			h = canonical
		}
		out[i] = values[h]
	}
	return out
}

func instructorValues(in models.Instructor) map[string]string {
	return map[string]string{
		ColName:        strings.TrimSpace(in.Name),
		ColPhone:       in.Phone,
		ColEmail:       strings.TrimSpace(in.Email),
		ColSpecialties: in.Specialties,
		ColNotes:       in.Notes,
		ColStatus:      strings.TrimSpace(in.Status),
	}
}

func clientValues(c models.Client) map[string]string {
	v := map[string]string{
		ColPhone:  c.Phone,
		ColEmail:  strings.TrimSpace(c.Email),
		ColNotes:  c.Notes,
		ColStatus: strings.TrimSpace(c.Status),
	}
	if c.Kind == models.ClientInstitutional {
		v[ColOrganization] = strings.TrimSpace(c.Name)
		v[ColContactPerson] = c.ContactPerson
	} else {
		v[ColName] = strings.TrimSpace(c.Name)
		v[ColSpecialNeeds] = c.SpecialNeeds
	}
	return v
}

// classify wraps foreign errors as provider errors naming the tab
func classify(err error, tab string) error {
	var me *models.Error
	if errors.As(err, &me) {
		return err
	}
	if errors.Is(err, sheets.ErrTabNotFound) {
		return models.ConfigError("directory", err)
	}
	return models.ProviderError("directory", fmt.Errorf("tab %s: %w", tab, err))
}
