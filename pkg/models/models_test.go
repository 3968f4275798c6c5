package models

import (
	"errors"
	"testing"
)

func TestClientSet_Match(t *testing.T) {
	set := NewClientSet(" Acme Labs", "Acme", "", "Beta", "Acme")
	if len(set) != 3 {
		t.Fatalf("Expected 3 names, got %v", set)
	}
	if name, ok := set.Match("Acme Labs workshop"); !ok || name != "Acme" {
		t.Errorf("Expected first canonical match Acme, got %q", name)
	}
	if _, ok := set.Match("Team meeting"); ok {
		t.Error("Expected no match")
	}
	if _, ok := set.Match(""); ok {
		t.Error("Expected empty title not to match")
	}
	if !set.Contains("Beta") || set.Contains("beta") {
		t.Error("Expected case-sensitive membership")
	}
}

func TestClientSet_Union(t *testing.T) {
	u := NewClientSet("b", "a").Union(NewClientSet("c", "a"))
	if len(u) != 3 || u[0] != "a" || u[2] != "c" {
		t.Errorf("Unexpected union %v", u)
	}
}

func TestEmailUsername(t *testing.T) {
	tests := map[string]string{
		"dana@school.com": "dana",
		" eli@x.org ":     "eli",
		"no-at-sign":      "",
		"":                "",
	}
	for in, want := range tests {
		if got := EmailUsername(in); got != want {
			t.Errorf("EmailUsername(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("boom")
	err := ConfigError("calendar", base)
	if KindOf(err) != KindConfig || !errors.Is(err, base) {
		t.Errorf("Unexpected kind or chain for %v", err)
	}
	if KindOf(base) != KindProvider {
		t.Error("Expected foreign errors to count as provider errors")
	}
	is := IssueFrom("fallback", DataError("parser", base))
	if is.Component != "parser" || is.Kind != KindData {
		t.Errorf("Unexpected issue %+v", is)
	}
}

func TestInstructorActive(t *testing.T) {
	if !(Instructor{Status: "פעיל"}).Active() || (Instructor{Status: StatusInactive}).Active() {
		t.Error("Unexpected active status")
	}
	if (Instructor{Email: "dana@school.com"}).Username() != "dana" {
		t.Error("Expected username from email")
	}
}
