package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBookmarked   Status = "Bookmarked"
	StatusApplied      Status = "Applied"
	StatusInterviewing Status = "Interviewing"
	StatusOffer        Status = "Offer"
	StatusRejected     Status = "Rejected"
	StatusGhosted      Status = "Ghosted"
)

var (
	ErrNotFound      = errors.New("job application not found")
	ErrInvalidStatus = errors.New("invalid status")
)

var statuses = []Status{
	StatusBookmarked,
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusGhosted,
}

// Statuses returns the lifecycle in display order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus accepts any casing and returns the canonical value.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, v := range statuses {
		if strings.EqualFold(raw, string(v)) {
			return v, nil
		}
	}
	return "", ErrInvalidStatus
}

type JobApplication struct {
	ID          uuid.UUID
	Owner       uuid.UUID
	JobTitle    string
	Company     *string
	JobLink     *string
	Status      Status
	Location    *string
	Source      *string
	Notes       *string
	ResumeURL   *string
	JDText      *string
	DateApplied *time.Time
	CreatedAt   time.Time
}

// Fields is the editable part of a record.
type Fields struct {
	JobTitle    string
	Company     *string
	JobLink     *string
	Status      Status
	Location    *string
	Source      *string
	Notes       *string
	JDText      *string
	DateApplied *time.Time
}

type NewJobApplication struct {
	Owner     uuid.UUID
	Fields    Fields
	ResumeURL *string
}

// Patch is a partial update. Nil members are left untouched.
type Patch struct {
	Fields    *Fields
	Status    *Status
	ResumeURL *string
}

func (p Patch) Empty() bool {
	return p.Fields == nil && p.Status == nil && p.ResumeURL == nil
}

func (r JobApplication) Fields() Fields {
	return Fields{
		JobTitle:    r.JobTitle,
		Company:     r.Company,
		JobLink:     r.JobLink,
		Status:      r.Status,
		Location:    r.Location,
		Source:      r.Source,
		Notes:       r.Notes,
		JDText:      r.JDText,
		DateApplied: r.DateApplied,
	}
}

// Normalize trims text, turns blank optionals into nil and defaults the status.
func (f Fields) Normalize() Fields {
	f.JobTitle = strings.TrimSpace(f.JobTitle)
	f.Company = Text(f.Company)
	f.JobLink = Text(f.JobLink)
	f.Location = Text(f.Location)
	f.Source = Text(f.Source)
	f.Notes = Text(f.Notes)
	f.JDText = Text(f.JDText)
	if f.Status == "" {
		f.Status = StatusBookmarked
	}
	return f
}

// Text returns nil for nil or blank input, else the trimmed value.
func Text(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func TextOf(s string) *string {
	return Text(&s)
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Repository is the remote record store, scoped per owner.
type Repository interface {
	List(ctx context.Context, owner uuid.UUID) ([]JobApplication, error)
	Insert(ctx context.Context, rec NewJobApplication) (JobApplication, error)
	Update(ctx context.Context, owner uuid.UUID, id uuid.UUID, p Patch) error
	Delete(ctx context.Context, owner uuid.UUID, id uuid.UUID) error
}
