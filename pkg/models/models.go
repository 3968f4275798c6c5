package models

import (
	"sort"
	"strings"
	"time"
)

// Instructor represents a row of the instructors tab
type Instructor struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Specialties string `json:"specialties"`
	Notes       string `json:"notes"`
	Status      string `json:"status"`
	SheetRow    int    `json:"sheet_row"`
}

// Username returns the local part of the instructor's email, which is the
// join key to calendar organizer identity.
func (i Instructor) Username() string {
	return EmailUsername(i.Email)
}

// Active reports whether the instructor is not marked inactive
func (i Instructor) Active() bool {
	return strings.TrimSpace(i.Status) != StatusInactive
}

// StatusInactive is the status cell value of an inactive instructor or client
const StatusInactive = "לא פעיל"

// ClientKind distinguishes the two client tabs
type ClientKind string

const (
	ClientPrivate       ClientKind = "private"
	ClientInstitutional ClientKind = "institutional"
)

// Valid reports whether k names a known client tab
func (k ClientKind) Valid() bool {
	return k == ClientPrivate || k == ClientInstitutional
}

// Client represents a row of either client tab. For institutional clients
// Name holds the organization.
type Client struct {
	Kind          ClientKind `json:"kind"`
	Name          string     `json:"name"`
	ContactPerson string     `json:"contact_person,omitempty"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	SpecialNeeds  string     `json:"special_needs,omitempty"`
	Notes         string     `json:"notes"`
	Status        string     `json:"status"`
	SheetRow      int        `json:"sheet_row"`
}

// ClientSet is the de-duplicated set of known client names in canonical
// (byte-wise ascending) order. Matching walks it front to back.
type ClientSet []string

// NewClientSet trims, drops empties, de-duplicates and sorts names
func NewClientSet(names ...string) ClientSet {
	seen := make(map[string]bool, len(names))
	out := make(ClientSet, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the names of both sets
func (s ClientSet) Union(other ClientSet) ClientSet {
	all := make([]string, 0, len(s)+len(other))
	all = append(all, s...)
	all = append(all, other...)
	return NewClientSet(all...)
}

// Match returns the first name in canonical order that appears as a
// substring of title. Not longest-match.
func (s ClientSet) Match(title string) (string, bool) {
	if title == "" {
		return "", false
	}
	for _, name := range s {
		if strings.Contains(title, name) {
			return name, true
		}
	}
	return "", false
}

// Contains reports whether name is a member of the set
func (s ClientSet) Contains(name string) bool {
	i := sort.SearchStrings(s, name)
	return i < len(s) && s[i] == name
}

// CalendarEvent is a single concrete calendar occurrence
type CalendarEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AllDay         bool      `json:"all_day"`
	OrganizerEmail string    `json:"organizer_email"`
	CreatorEmail   string    `json:"creator_email,omitempty"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	Attendees      []string  `json:"attendees,omitempty"`

	// RawStart / RawEnd keep the provider's date or dateTime strings.
	// Start/End are zero when the raw value could not be parsed.
	RawStart string `json:"raw_start"`
	RawEnd   string `json:"raw_end"`
}

// OrganizerUsername returns the local part of the organizer email
func (e CalendarEvent) OrganizerUsername() string {
	return EmailUsername(e.OrganizerEmail)
}

// EmailUsername returns the part before '@', or "" if there is no '@'
func EmailUsername(email string) string {
	email = strings.TrimSpace(email)
	i := strings.Index(email, "@")
	if i < 0 {
		return ""
	}
	return email[:i]
}

// BillingRecord is the per-client monthly billing line
type BillingRecord struct {
	Client            string             `json:"client"`
	TotalHours        float64            `json:"total_hours"`
	HoursByInstructor map[string]float64 `json:"hours_by_instructor"`
	Rate              float64            `json:"rate"`
	DiscountPct       float64            `json:"discount_pct"`
	Total             float64            `json:"total"`
}

// PaymentRecord is the per-instructor monthly payment line
type PaymentRecord struct {
	Instructor    string             `json:"instructor"`
	TotalHours    float64            `json:"total_hours"`
	HoursByClient map[string]float64 `json:"hours_by_client"`
	HourlyWage    float64            `json:"hourly_wage"`
	TotalPayment  float64            `json:"total_payment"`
}

// MatchedEvent is an event after client matching and instructor resolution
type MatchedEvent struct {
	CalendarEvent
	Client        string  `json:"client"`
	Instructor    string  `json:"instructor"`
	DurationHours float64 `json:"duration_hours"`
}

// Report status values
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
)

// ReportMeta is shared by billing and payment reports
type ReportMeta struct {
	Month         int     `json:"month"`
	Year          int     `json:"year"`
	Status        string  `json:"status"`
	Issues        []Issue `json:"issues,omitempty"`
	EventsFetched int     `json:"events_fetched"`
	EventsMatched int     `json:"events_matched"`
	EventsSkipped int     `json:"events_skipped"`
}

// BillingReport is the result of a billing aggregation pass
type BillingReport struct {
	ReportMeta
	Records []BillingRecord `json:"data"`
}

// PaymentReport is the result of a payment aggregation pass
type PaymentReport struct {
	ReportMeta
	Records []PaymentRecord `json:"data"`
}

// OverrideType names the kind of per-month value an override holds
type OverrideType string

const (
	OverrideHourlyRate  OverrideType = "hourlyRate"
	OverrideDiscountPct OverrideType = "discountPct"
	OverrideHourlyWage  OverrideType = "hourlyWage"
)

// Override is a persisted per-month value for a client or instructor
type Override struct {
	Key   string       `json:"key"`
	Type  OverrideType `json:"type"`
	Month int          `json:"month"`
	Year  int          `json:"year"`
	Value float64      `json:"value"`
}

// OrganizerPolicy decides what happens to events whose organizer username is
// not in the instructor map.
type OrganizerPolicy int

const (
	// OrganizerFallback keeps the event and labels it with the raw username
	// (or "" when the event has no organizer). Used by billing.
	OrganizerFallback OrganizerPolicy = iota
	// OrganizerKnownOnly drops the event. Used by payments.
	OrganizerKnownOnly
)
