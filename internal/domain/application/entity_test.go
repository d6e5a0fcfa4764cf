package application

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		err  error
	}{
		{in: "Applied", want: StatusApplied},
		{in: " interviewing ", want: StatusInterviewing},
		{in: "GHOSTED", want: StatusGhosted},
		{in: "Hired", err: ErrInvalidStatus},
		{in: "", err: ErrInvalidStatus},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("ParseStatus(%q): expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestStatuses_ReturnsCopy(t *testing.T) {
	s := Statuses()
	if len(s) != 6 {
		t.Fatalf("expected 6 statuses, got %d", len(s))
	}
	s[0] = "Mutated"
	if Statuses()[0] != StatusBookmarked {
		t.Fatalf("Statuses must not expose internal slice")
	}
}

func TestFields_Normalize(t *testing.T) {
	blank := "   "
	company := "  Acme "
	f := Fields{JobTitle: " Engineer ", Company: &company, Notes: &blank}.Normalize()

	if f.JobTitle != "Engineer" {
		t.Fatalf("unexpected title %q", f.JobTitle)
	}
	if f.Company == nil || *f.Company != "Acme" {
		t.Fatalf("unexpected company %v", f.Company)
	}
	if f.Notes != nil {
		t.Fatalf("expected blank notes to become nil")
	}
	if f.Status != StatusBookmarked {
		t.Fatalf("expected default status Bookmarked, got %q", f.Status)
	}
}
