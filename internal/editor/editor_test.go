package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"jobtracker/internal/domain/application"
	"jobtracker/internal/domain/user"
	"jobtracker/internal/listsync"

	"github.com/google/uuid"
)

type fakeSubmitter struct {
	createErr error
	updateErr error

	created []application.Fields
	updated []uuid.UUID
	files   []*listsync.Resume
}

func (f *fakeSubmitter) Create(_ context.Context, fields application.Fields, resume *listsync.Resume) (listsync.Snapshot, error) {
	if f.createErr != nil {
		return listsync.Snapshot{}, f.createErr
	}
	f.created = append(f.created, fields)
	f.files = append(f.files, resume)
	return listsync.Snapshot{Records: []application.JobApplication{{ID: uuid.New(), JobTitle: fields.JobTitle}}}, nil
}

func (f *fakeSubmitter) Update(_ context.Context, id uuid.UUID, fields application.Fields, resume *listsync.Resume) (listsync.Snapshot, error) {
	if f.updateErr != nil {
		return listsync.Snapshot{}, f.updateErr
	}
	f.updated = append(f.updated, id)
	f.files = append(f.files, resume)
	return listsync.Snapshot{}, nil
}

func TestNewDraft_Defaults(t *testing.T) {
	d := NewDraft()
	if d.Status != application.StatusBookmarked || d.Editing() || !d.Open() {
		t.Fatalf("unexpected draft %+v", d)
	}
}

func TestDraftFrom_Prefills(t *testing.T) {
	applied := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := application.JobApplication{
		ID:          uuid.New(),
		JobTitle:    "Engineer",
		Company:     application.TextOf("Acme"),
		Status:      application.StatusInterviewing,
		Notes:       application.TextOf("call on monday"),
		DateApplied: &applied,
	}
	d := DraftFrom(rec)
	if !d.Editing() || d.Company != "Acme" || d.Location != "" || d.Notes != "call on monday" || d.Status != application.StatusInterviewing {
		t.Fatalf("unexpected draft %+v", d)
	}
	if d.DateApplied == rec.DateApplied || !d.DateApplied.Equal(applied) {
		t.Fatalf("expected a copied date")
	}
}

func TestDraft_FieldsBlankToNil(t *testing.T) {
	d := NewDraft()
	d.JobTitle = "  Engineer "
	d.Company = "  "
	d.Source = "LinkedIn"
	f := d.Fields()
	if f.Company != nil || f.Source == nil || *f.Source != "LinkedIn" {
		t.Fatalf("unexpected fields %+v", f)
	}
}

func TestSubmit_CreateResetsDraft(t *testing.T) {
	s := &fakeSubmitter{}
	d := NewDraft()
	d.JobTitle = "Backend Engineer"
	d.Status = application.StatusApplied
	d.File = &listsync.Resume{Filename: "cv.pdf", Size: 3, Content: strings.NewReader("pdf")}

	snap, notice := d.Submit(context.Background(), s)
	if notice != nil {
		t.Fatalf("unexpected notice %v", notice)
	}
	if len(snap.Records) != 1 || len(s.created) != 1 || s.created[0].Status != application.StatusApplied || s.files[0] == nil {
		t.Fatalf("unexpected create: %+v", s.created)
	}
	if d.Open() || d.JobTitle != "" || d.File != nil || d.Status != application.StatusBookmarked {
		t.Fatalf("expected reset and closed draft, got %+v", d)
	}
}

func TestSubmit_UpdateWithoutFile(t *testing.T) {
	s := &fakeSubmitter{}
	id := uuid.New()
	d := DraftFrom(application.JobApplication{ID: id, JobTitle: "Engineer", Status: application.StatusApplied})

	if _, notice := d.Submit(context.Background(), s); notice != nil {
		t.Fatalf("unexpected notice %v", notice)
	}
	if len(s.updated) != 1 || s.updated[0] != id || s.files[0] != nil {
		t.Fatalf("expected update without file, got %+v", s)
	}
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	cases := []struct {
		name    string
		editing bool
		err     error
		want    string
	}{
		{"title", false, listsync.ErrTitleRequired, NoticeTitleRequired},
		{"bad resume", false, fmt.Errorf("%w: unsupported extension", listsync.ErrInvalidResume), NoticeInvalidResume},
		{"insert", false, fmt.Errorf("insert job application: %w", errors.New("rls")), NoticeCreateFailed},
		{"create upload", false, fmt.Errorf("%w: timeout", listsync.ErrUpload), NoticeCreateCrashed},
		{"create signed out", false, listsync.ErrNoPrincipal, NoticeSignInToAdd},
		{"update", true, fmt.Errorf("update job application: %w", errors.New("rls")), NoticeUpdateFailed},
		{"update upload", true, fmt.Errorf("%w: timeout", listsync.ErrUpload), NoticeUploadFailed},
		{"update missing", true, listsync.ErrNotFound, NoticeNotFound},
		{"update signed out", true, listsync.ErrNoPrincipal, NoticeSignInToEdit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeSubmitter{createErr: tc.err, updateErr: tc.err}
			d := NewDraft()
			if tc.editing {
				d = DraftFrom(application.JobApplication{ID: uuid.New(), JobTitle: "Engineer", Status: application.StatusApplied})
			}
			d.JobTitle = "Engineer"
			d.Company = "Acme"

			_, notice := d.Submit(context.Background(), s)
			if notice == nil || notice.Message != tc.want {
				t.Fatalf("expected notice %q, got %v", tc.want, notice)
			}
			if !d.Open() || d.JobTitle != "Engineer" || d.Company != "Acme" {
				t.Fatalf("draft must be kept on failure, got %+v", d)
			}
		})
	}
}

func TestSubmit_NoticeKinds(t *testing.T) {
	d := NewDraft()
	if _, n := d.Submit(context.Background(), &fakeSubmitter{createErr: listsync.ErrTitleRequired}); n.Kind != KindInvalid {
		t.Fatalf("expected invalid kind, got %v", n.Kind)
	}
	if _, n := d.Submit(context.Background(), &fakeSubmitter{createErr: errors.New("boom")}); n.Kind != KindRemote {
		t.Fatalf("expected remote kind, got %v", n.Kind)
	}
	if _, n := d.Submit(context.Background(), &fakeSubmitter{createErr: listsync.ErrNoPrincipal}); n.Kind != KindSignedOut {
		t.Fatalf("expected signed-out kind, got %v", n.Kind)
	}
}

// flakyStore fails the first failInserts inserts and keeps the rest.
type flakyStore struct {
	failInserts int
	recs        []application.JobApplication
}

func (f *flakyStore) List(context.Context, uuid.UUID) ([]application.JobApplication, error) {
	return append([]application.JobApplication(nil), f.recs...), nil
}

func (f *flakyStore) Insert(_ context.Context, rec application.NewJobApplication) (application.JobApplication, error) {
	if f.failInserts > 0 {
		f.failInserts--
		return application.JobApplication{}, errors.New("connection reset")
	}
	r := application.JobApplication{
		ID:        uuid.New(),
		Owner:     rec.Owner,
		JobTitle:  rec.Fields.JobTitle,
		Status:    rec.Fields.Status,
		ResumeURL: rec.ResumeURL,
	}
	f.recs = append(f.recs, r)
	return r, nil
}

func (f *flakyStore) Update(context.Context, uuid.UUID, uuid.UUID, application.Patch) error {
	return nil
}

func (f *flakyStore) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type memBlobs struct {
	uploads [][]byte
}

func (b *memBlobs) Upload(_ context.Context, _ string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.uploads = append(b.uploads, data)
	return nil
}

func (b *memBlobs) PublicURL(path string) string {
	return "https://blobs.test/" + path
}

func TestSubmit_RetryWithSameResumeAfterFailedInsert(t *testing.T) {
	store := &flakyStore{failInserts: 1}
	blobs := &memBlobs{}
	s := listsync.New(user.Principal{ID: uuid.New(), Email: "me@example.com"}, listsync.Deps{
		Records:        store,
		Blobs:          blobs,
		MaxResumeBytes: 5 << 20,
	})
	s.Load(context.Background())

	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	d := NewDraft()
	d.JobTitle = "Backend Engineer"
	d.File = &listsync.Resume{Filename: "cv.pdf", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)}

	if _, notice := d.Submit(context.Background(), s); notice == nil || notice.Message != NoticeCreateFailed {
		t.Fatalf("expected %q, got %v", NoticeCreateFailed, notice)
	}
	if !d.Open() || d.File == nil {
		t.Fatalf("draft must keep its file after a failed submit")
	}

	snap, notice := d.Submit(context.Background(), s)
	if notice != nil {
		t.Fatalf("retry failed: %v", notice)
	}
	if len(snap.Records) != 1 || snap.Records[0].ResumeURL == nil {
		t.Fatalf("expected one record with a resume, got %+v", snap.Records)
	}
	if len(blobs.uploads) != 2 || !bytes.Equal(blobs.uploads[1], pdf) {
		t.Fatalf("expected the full file uploaded again, got %d uploads", len(blobs.uploads))
	}
}
