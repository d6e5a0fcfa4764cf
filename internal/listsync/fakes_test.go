package listsync

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"jobtracker/internal/domain/application"
	"jobtracker/internal/domain/user"

	"github.com/google/uuid"
)

var errRemote = errors.New("remote unavailable")

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) count(c string) int {
	n := 0
	for _, v := range l.snapshot() {
		if v == c {
			n++
		}
	}
	return n
}

type fakeStore struct {
	log *callLog

	mu       sync.Mutex
	rows     []application.JobApplication
	inserted []application.NewJobApplication
	patches  []application.Patch

	listErr   error
	insertErr error
	updateErr error
	deleteErr error

	// gate, when set, holds Update and Delete until it is closed.
	gate chan struct{}
}

func newFakeStore(log *callLog, rows ...application.JobApplication) *fakeStore {
	return &fakeStore{log: log, rows: rows}
}

func (f *fakeStore) List(context.Context, uuid.UUID) ([]application.JobApplication, error) {
	f.log.add("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]application.JobApplication, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, rec application.NewJobApplication) (application.JobApplication, error) {
	f.log.add("insert")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return application.JobApplication{}, f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	row := application.JobApplication{
		ID:          uuid.New(),
		Owner:       rec.Owner,
		JobTitle:    rec.Fields.JobTitle,
		Company:     rec.Fields.Company,
		JobLink:     rec.Fields.JobLink,
		Status:      rec.Fields.Status,
		Location:    rec.Fields.Location,
		Source:      rec.Fields.Source,
		Notes:       rec.Fields.Notes,
		JDText:      rec.Fields.JDText,
		DateApplied: rec.Fields.DateApplied,
		ResumeURL:   rec.ResumeURL,
		CreatedAt:   time.Now().UTC(),
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeStore) Update(_ context.Context, _ uuid.UUID, id uuid.UUID, p application.Patch) error {
	f.log.add("update")
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.rows {
		if f.rows[i].ID != id {
			continue
		}
		if p.Fields != nil {
			keepURL := f.rows[i].ResumeURL
			rid, owner, created := f.rows[i].ID, f.rows[i].Owner, f.rows[i].CreatedAt
			fl := *p.Fields
			f.rows[i] = application.JobApplication{
				ID: rid, Owner: owner, CreatedAt: created, ResumeURL: keepURL,
				JobTitle: fl.JobTitle, Company: fl.Company, JobLink: fl.JobLink, Status: fl.Status,
				Location: fl.Location, Source: fl.Source, Notes: fl.Notes, JDText: fl.JDText,
				DateApplied: fl.DateApplied,
			}
		}
		if p.Status != nil {
			f.rows[i].Status = *p.Status
		}
		if p.ResumeURL != nil {
			f.rows[i].ResumeURL = p.ResumeURL
		}
		return nil
	}
	return application.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	f.log.add("delete")
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

type fakeBlobs struct {
	log *callLog
	err error

	mu      sync.Mutex
	paths   []string
	content map[string][]byte
	types   map[string]string
}

func newFakeBlobs(log *callLog) *fakeBlobs {
	return &fakeBlobs{log: log, content: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBlobs) Upload(_ context.Context, path string, body io.Reader, _ int64, contentType string) error {
	b.log.add("upload")
	if b.err != nil {
		return b.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.paths = append(b.paths, path)
	b.content[path] = data
	b.types[path] = contentType
	b.mu.Unlock()
	return nil
}

func (b *fakeBlobs) PublicURL(path string) string {
	return "https://blobs.test/resumes/" + path
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []application.Change
}

func (p *fakePublisher) Publish(_ context.Context, c application.Change) error {
	p.mu.Lock()
	p.changes = append(p.changes, c)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) kinds() []application.ChangeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]application.ChangeKind, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c.Kind)
	}
	return out
}

var testOwner = user.Principal{ID: uuid.MustParse("8d0c1f6e-0f59-4c8e-9f4a-7c4f1c2b9a11"), Email: "me@example.com"}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func record(id string, status application.Status, applied *time.Time) application.JobApplication {
	return application.JobApplication{
		ID:          uuid.MustParse(id),
		Owner:       testOwner.ID,
		JobTitle:    "Engineer " + id[:4],
		Status:      status,
		DateApplied: applied,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestSync(store *fakeStore, blobs *fakeBlobs, pub ChangePublisher) *Synchronizer {
	deps := Deps{
		Records:        store,
		Publisher:      pub,
		MaxResumeBytes: 5 << 20,
		Now:            func() time.Time { return time.UnixMilli(1700000000000) },
		Token:          func() string { return "abc123" },
	}
	if blobs != nil {
		deps.Blobs = blobs
	}
	return New(testOwner, deps)
}
