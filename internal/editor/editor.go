// Package editor holds the create/edit form state for a single job
// application and submits it through the list synchronizer.
package editor

import (
	"context"
	"errors"
	"time"

	"jobtracker/internal/domain/application"
	"jobtracker/internal/listsync"

	"github.com/google/uuid"
)

const (
	NoticeTitleRequired = "Job title is required."
	NoticeInvalidStatus = "Pick a valid status."
	NoticeInvalidResume = "Resume must be a PDF, DOC or DOCX file up to 5 MB."
	NoticeCreateFailed  = "Failed to save job."
	NoticeCreateCrashed = "Unexpected error while saving job."
	NoticeUploadFailed  = "Failed to upload new resume."
	NoticeUpdateFailed  = "Failed to update job."
	NoticeNotFound      = "This application no longer exists."
	NoticeSignInToAdd   = "You need to be logged in to add applications."
	NoticeSignInToEdit  = "You need to be logged in to update applications."
)

// Submitter is the part of the synchronizer the editor writes through.
type Submitter interface {
	Create(ctx context.Context, fields application.Fields, resume *listsync.Resume) (listsync.Snapshot, error)
	Update(ctx context.Context, id uuid.UUID, fields application.Fields, resume *listsync.Resume) (listsync.Snapshot, error)
}

type NoticeKind int

const (
	// KindRemote means the record or blob store failed.
	KindRemote NoticeKind = iota
	KindInvalid
	KindMissing
	KindSignedOut
)

// Notice is an alert-style message for the user. Field names the input
// that caused it, when there is one.
type Notice struct {
	Message string     `json:"message"`
	Field   string     `json:"field,omitempty"`
	Kind    NoticeKind `json:"-"`
}

func (n *Notice) Error() string { return n.Message }

// Draft is the editable form. A zero ID means the draft creates a new
// record on submit.
type Draft struct {
	ID          uuid.UUID
	JobTitle    string
	Company     string
	JobLink     string
	Status      application.Status
	Location    string
	Source      string
	Notes       string
	JDText      string
	DateApplied *time.Time
	File        *listsync.Resume

	open bool
}

// NewDraft returns an empty create form.
func NewDraft() *Draft {
	return &Draft{Status: application.StatusBookmarked, open: true}
}

// DraftFrom pre-fills an edit form from rec. The stored résumé is kept
// unless File is set before submit.
func DraftFrom(rec application.JobApplication) *Draft {
	d := &Draft{
		ID:       rec.ID,
		JobTitle: rec.JobTitle,
		Company:  application.Deref(rec.Company),
		JobLink:  application.Deref(rec.JobLink),
		Status:   rec.Status,
		Location: application.Deref(rec.Location),
		Source:   application.Deref(rec.Source),
		Notes:    application.Deref(rec.Notes),
		JDText:   application.Deref(rec.JDText),
		open:     true,
	}
	if rec.DateApplied != nil {
		t := *rec.DateApplied
		d.DateApplied = &t
	}
	return d
}

func (d *Draft) Editing() bool { return d.ID != uuid.Nil }

// Open reports whether the form is still showing. A successful submit
// closes it.
func (d *Draft) Open() bool { return d.open }

func (d *Draft) Fields() application.Fields {
	return application.Fields{
		JobTitle:    d.JobTitle,
		Company:     application.TextOf(d.Company),
		JobLink:     application.TextOf(d.JobLink),
		Status:      d.Status,
		Location:    application.TextOf(d.Location),
		Source:      application.TextOf(d.Source),
		Notes:       application.TextOf(d.Notes),
		JDText:      application.TextOf(d.JDText),
		DateApplied: d.DateApplied,
	}
}

// Submit creates or updates through s. On success the draft is reset and
// closed; on failure it is left as it was and the returned notice says
// what went wrong.
func (d *Draft) Submit(ctx context.Context, s Submitter) (listsync.Snapshot, *Notice) {
	var (
		snap listsync.Snapshot
		err  error
	)
	if d.Editing() {
		snap, err = s.Update(ctx, d.ID, d.Fields(), d.File)
	} else {
		snap, err = s.Create(ctx, d.Fields(), d.File)
	}
	if err != nil {
		return listsync.Snapshot{}, d.notice(err)
	}

	d.reset()
	return snap, nil
}

func (d *Draft) reset() {
	*d = Draft{Status: application.StatusBookmarked}
}

func (d *Draft) notice(err error) *Notice {
	switch {
	case errors.Is(err, listsync.ErrTitleRequired):
		return &Notice{Message: NoticeTitleRequired, Field: "job_title", Kind: KindInvalid}
	case errors.Is(err, listsync.ErrInvalidStatus):
		return &Notice{Message: NoticeInvalidStatus, Field: "status", Kind: KindInvalid}
	case errors.Is(err, listsync.ErrInvalidResume):
		return &Notice{Message: NoticeInvalidResume, Field: "resume", Kind: KindInvalid}
	}

	if d.Editing() {
		switch {
		case errors.Is(err, listsync.ErrNoPrincipal):
			return &Notice{Message: NoticeSignInToEdit, Kind: KindSignedOut}
		case errors.Is(err, listsync.ErrNotFound):
			return &Notice{Message: NoticeNotFound, Kind: KindMissing}
		case errors.Is(err, listsync.ErrUpload):
			return &Notice{Message: NoticeUploadFailed, Field: "resume"}
		default:
			return &Notice{Message: NoticeUpdateFailed}
		}
	}

	switch {
	case errors.Is(err, listsync.ErrNoPrincipal):
		return &Notice{Message: NoticeSignInToAdd, Kind: KindSignedOut}
	case errors.Is(err, listsync.ErrUpload):
		return &Notice{Message: NoticeCreateCrashed}
	default:
		return &Notice{Message: NoticeCreateFailed}
	}
}
