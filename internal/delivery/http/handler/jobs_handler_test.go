package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/domain/application"
	"jobtracker/internal/domain/user"
	"jobtracker/internal/listsync"
	"jobtracker/internal/preview"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type semanticResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type snapshotData struct {
	Records []struct {
		ID          uuid.UUID `json:"id"`
		JobTitle    string    `json:"job_title"`
		Company     *string   `json:"company"`
		Status      string    `json:"status"`
		HasNotes    bool      `json:"has_notes"`
		ResumeURL   *string   `json:"resume_url"`
		DateApplied *string   `json:"date_applied"`
	} `json:"records"`
	Loading        bool        `json:"loading"`
	PendingDeletes []uuid.UUID `json:"pending_deletes"`
	Statuses       []string    `json:"statuses"`
}

type noticeData struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

// memStore is an in-memory record store scoped by owner.
type memStore struct {
	mu        sync.Mutex
	rows      []application.JobApplication
	updateErr error
	deleteErr error
	insertErr error
}

func (m *memStore) List(_ context.Context, owner uuid.UUID) ([]application.JobApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []application.JobApplication{}
	for _, r := range m.rows {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, rec application.NewJobApplication) (application.JobApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return application.JobApplication{}, m.insertErr
	}
	f := rec.Fields
	row := application.JobApplication{
		ID: uuid.New(), Owner: rec.Owner, JobTitle: f.JobTitle, Company: f.Company, JobLink: f.JobLink,
		Status: f.Status, Location: f.Location, Source: f.Source, Notes: f.Notes, JDText: f.JDText,
		DateApplied: f.DateApplied, ResumeURL: rec.ResumeURL, CreatedAt: time.Now(),
	}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memStore) Update(_ context.Context, owner, id uuid.UUID, p application.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.rows {
		if m.rows[i].ID != id || m.rows[i].Owner != owner {
			continue
		}
		r := &m.rows[i]
		if p.Fields != nil {
			f := *p.Fields
			r.JobTitle, r.Company, r.JobLink, r.Status = f.JobTitle, f.Company, f.JobLink, f.Status
			r.Location, r.Source, r.Notes, r.JDText, r.DateApplied = f.Location, f.Source, f.Notes, f.JDText, f.DateApplied
		}
		if p.Status != nil {
			r.Status = *p.Status
		}
		if p.ResumeURL != nil {
			r.ResumeURL = p.ResumeURL
		}
		return nil
	}
	return application.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, owner, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].Owner == owner {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			break
		}
	}
	return nil
}

type memBlobs struct {
	paths []string
}

func (b *memBlobs) Upload(_ context.Context, path string, body io.Reader, _ int64, _ string) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	b.paths = append(b.paths, path)
	return nil
}

func (b *memBlobs) PublicURL(path string) string { return "https://blobs.test/" + path }

type stubPreview struct {
	res preview.Result
	err error
}

func (s stubPreview) Fetch(context.Context, string) (preview.Result, error) { return s.res, s.err }

type jobsFixture struct {
	app   *fiber.App
	sync  *listsync.Synchronizer
	store *memStore
	blobs *memBlobs
	owner user.Principal
}

func newJobsFixture(t *testing.T, prev Previewer, rows ...application.JobApplication) *jobsFixture {
	t.Helper()

	owner := user.Principal{ID: uuid.New(), Email: "me@example.com"}
	store := &memStore{}
	for _, r := range rows {
		r.Owner = owner.ID
		store.rows = append(store.rows, r)
	}
	blobs := &memBlobs{}
	s := listsync.New(owner, listsync.Deps{Records: store, Blobs: blobs, MaxResumeBytes: 1 << 20})
	s.Load(context.Background())

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	app.Use(func(c fiber.Ctx) error {
		if c.Get("X-Test-Anonymous") == "" {
			c.Locals(middleware.CtxWorkspaceKey, s)
			c.Locals(middleware.CtxPrincipalKey, owner)
		}
		return c.Next()
	})
	NewJobsHandler(prev).RegisterRoutes(app.Group("/jobs"))

	t.Cleanup(s.Wait)
	return &jobsFixture{app: app, sync: s, store: store, blobs: blobs, owner: owner}
}

func (f *jobsFixture) do(t *testing.T, req *http.Request) (int, semanticResponse) {
	t.Helper()

	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return resp.StatusCode, sr
}

func jsonRequest(method, target string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("resume", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(file)
	}
	_ = w.Close()

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeSnapshot(t *testing.T, raw json.RawMessage) snapshotData {
	t.Helper()

	var s snapshotData
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("snapshot unmarshal error: %v", err)
	}
	return s
}

func seeded(title string, status application.Status, applied string) application.JobApplication {
	r := application.JobApplication{ID: uuid.New(), JobTitle: title, Status: status, CreatedAt: time.Now()}
	if applied != "" {
		d, _ := time.Parse("2006-01-02", applied)
		r.DateApplied = &d
	}
	return r
}

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func TestJobsHandler_List(t *testing.T) {
	notes := "recruiter call on friday"
	withNotes := seeded("Platform Engineer", application.StatusApplied, "2024-01-10")
	withNotes.Notes = &notes
	f := newJobsFixture(t, nil, seeded("Backend Engineer", application.StatusInterviewing, "2024-02-01"), withNotes)

	status, sr := f.do(t, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if status != http.StatusOK || sr.Message != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", status, sr.Message)
	}
	snap := decodeSnapshot(t, sr.Data)
	if snap.Loading || len(snap.Records) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Records[0].JobTitle != "Backend Engineer" {
		t.Fatalf("expected most recent application first, got %q", snap.Records[0].JobTitle)
	}
	if snap.Records[0].HasNotes || !snap.Records[1].HasNotes {
		t.Fatalf("unexpected has_notes flags")
	}
	if len(snap.Statuses) != 6 || snap.Statuses[0] != "Bookmarked" {
		t.Fatalf("unexpected statuses %v", snap.Statuses)
	}
}

func TestJobsHandler_RequiresWorkspace(t *testing.T) {
	f := newJobsFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("X-Test-Anonymous", "1")
	status, _ := f.do(t, req)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestJobsHandler_CreateWithResume(t *testing.T) {
	f := newJobsFixture(t, nil)

	req := multipartRequest(t, http.MethodPost, "/jobs", map[string]string{
		"job_title":    "  Site Reliability Engineer ",
		"company":      "Acme",
		"location":     "   ",
		"status":       "applied",
		"date_applied": "2024-03-05",
	}, "cv.pdf", pdfBody)

	status, sr := f.do(t, req)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", status, sr.Message)
	}
	snap := decodeSnapshot(t, sr.Data)
	if len(snap.Records) != 1 {
		t.Fatalf("expected one record, got %d", len(snap.Records))
	}
	rec := snap.Records[0]
	if rec.JobTitle != "Site Reliability Engineer" || rec.Status != "Applied" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.DateApplied == nil || *rec.DateApplied != "2024-03-05" {
		t.Fatalf("unexpected date_applied %v", rec.DateApplied)
	}
	if len(f.blobs.paths) != 1 || rec.ResumeURL == nil || !strings.HasSuffix(*rec.ResumeURL, f.blobs.paths[0]) {
		t.Fatalf("expected uploaded resume url, got %v (paths=%v)", rec.ResumeURL, f.blobs.paths)
	}
	if f.store.rows[0].Location != nil {
		t.Fatalf("blank location must be stored as NULL")
	}
}

func TestJobsHandler_CreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		file   string
		body   []byte
		status int
		field  string
	}{
		{"missing title", map[string]string{"company": "Acme"}, "", nil, http.StatusUnprocessableEntity, "job_title"},
		{"bad status", map[string]string{"job_title": "Engineer", "status": "Hired"}, "", nil, http.StatusUnprocessableEntity, "status"},
		{"bad resume", map[string]string{"job_title": "Engineer"}, "cv.exe", []byte("MZ\x90\x00"), http.StatusUnprocessableEntity, "resume"},
		{"bad date", map[string]string{"job_title": "Engineer", "date_applied": "05/03/2024"}, "", nil, http.StatusBadRequest, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newJobsFixture(t, nil)
			status, sr := f.do(t, multipartRequest(t, http.MethodPost, "/jobs", tc.fields, tc.file, tc.body))
			if status != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, status, sr.Message)
			}
			if tc.field != "" {
				var n noticeData
				_ = json.Unmarshal(sr.Data, &n)
				if n.Field != tc.field {
					t.Fatalf("expected notice for %q, got %+v", tc.field, n)
				}
			}
			if len(f.store.rows) != 0 || len(f.blobs.paths) != 0 {
				t.Fatalf("nothing may be written on validation failure")
			}
		})
	}
}

func TestJobsHandler_CreateStoreFailure(t *testing.T) {
	f := newJobsFixture(t, nil)
	f.store.insertErr = errors.New("connection reset")

	status, sr := f.do(t, multipartRequest(t, http.MethodPost, "/jobs", map[string]string{"job_title": "Engineer"}, "", nil))
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	if sr.Message != "Failed to save job." {
		t.Fatalf("unexpected message %q", sr.Message)
	}
}

func TestJobsHandler_UpdateKeepsUnsentFields(t *testing.T) {
	rec := seeded("Engineer", application.StatusApplied, "2024-01-10")
	company := "Acme"
	rec.Company = &company
	f := newJobsFixture(t, nil, rec)

	status, sr := f.do(t, multipartRequest(t, http.MethodPut, "/jobs/"+rec.ID.String(), map[string]string{
		"job_title": "Senior Engineer",
	}, "", nil))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, sr.Message)
	}
	got := decodeSnapshot(t, sr.Data).Records[0]
	if got.JobTitle != "Senior Engineer" || got.Company == nil || *got.Company != "Acme" || got.Status != "Applied" {
		t.Fatalf("unexpected record after update %+v", got)
	}
}

func TestJobsHandler_UpdateUnknownID(t *testing.T) {
	f := newJobsFixture(t, nil)

	status, _ := f.do(t, multipartRequest(t, http.MethodPut, "/jobs/"+uuid.NewString(), map[string]string{"job_title": "X"}, "", nil))
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	status, _ = f.do(t, multipartRequest(t, http.MethodPut, "/jobs/not-a-uuid", map[string]string{"job_title": "X"}, "", nil))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestJobsHandler_ChangeStatus(t *testing.T) {
	rec := seeded("Engineer", application.StatusApplied, "")
	f := newJobsFixture(t, nil, rec)

	status, sr := f.do(t, jsonRequest(http.MethodPatch, "/jobs/"+rec.ID.String()+"/status?wait=true", map[string]string{"status": "offer"}))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, sr.Message)
	}
	if got := decodeSnapshot(t, sr.Data).Records[0].Status; got != "Offer" {
		t.Fatalf("expected Offer, got %q", got)
	}
	if f.store.rows[0].Status != application.StatusOffer {
		t.Fatalf("expected store to be updated")
	}

	status, _ = f.do(t, jsonRequest(http.MethodPatch, "/jobs/"+rec.ID.String()+"/status", map[string]string{"status": "hired"}))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", status)
	}
}

func TestJobsHandler_ChangeStatusFailureReverts(t *testing.T) {
	rec := seeded("Engineer", application.StatusApplied, "")
	f := newJobsFixture(t, nil, rec)
	f.store.updateErr = errors.New("timeout")

	status, sr := f.do(t, jsonRequest(http.MethodPatch, "/jobs/"+rec.ID.String()+"/status?wait=1", map[string]string{"status": "Rejected"}))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if got := decodeSnapshot(t, sr.Data).Records[0].Status; got != "Applied" {
		t.Fatalf("expected reload to restore Applied, got %q", got)
	}
}

func TestJobsHandler_DeleteFlow(t *testing.T) {
	keep := seeded("Keep", application.StatusApplied, "2024-01-01")
	drop := seeded("Drop", application.StatusApplied, "2024-02-01")
	f := newJobsFixture(t, nil, keep, drop)
	base := "/jobs/" + drop.ID.String() + "/delete"

	status, _ := f.do(t, httptest.NewRequest(http.MethodPost, base+"/confirm", nil))
	if status != http.StatusConflict {
		t.Fatalf("confirm without request: expected 409, got %d", status)
	}

	status, sr := f.do(t, httptest.NewRequest(http.MethodPost, base, nil))
	if status != http.StatusOK || !strings.Contains(string(sr.Data), "Delete this application?") {
		t.Fatalf("expected prompt, got %d %s", status, sr.Data)
	}

	status, sr = f.do(t, httptest.NewRequest(http.MethodPost, base+"/cancel", nil))
	if status != http.StatusOK || len(decodeSnapshot(t, sr.Data).PendingDeletes) != 0 {
		t.Fatalf("cancel should clear the pending delete")
	}
	if len(decodeSnapshot(t, sr.Data).Records) != 2 {
		t.Fatalf("cancel must keep the record")
	}

	_, _ = f.do(t, httptest.NewRequest(http.MethodPost, base, nil))
	status, sr = f.do(t, httptest.NewRequest(http.MethodPost, base+"/confirm?wait=true", nil))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	snap := decodeSnapshot(t, sr.Data)
	if len(snap.Records) != 1 || snap.Records[0].ID != keep.ID {
		t.Fatalf("expected only the kept record, got %+v", snap.Records)
	}
}

func TestJobsHandler_DeleteFailureNotice(t *testing.T) {
	rec := seeded("Engineer", application.StatusApplied, "")
	f := newJobsFixture(t, nil, rec)
	f.store.deleteErr = errors.New("permission denied")
	base := "/jobs/" + rec.ID.String() + "/delete"

	_, _ = f.do(t, httptest.NewRequest(http.MethodPost, base, nil))
	status, sr := f.do(t, httptest.NewRequest(http.MethodPost, base+"/confirm?wait=true", nil))
	if status != http.StatusBadGateway || sr.Message != listsync.NoticeDeleteFailed {
		t.Fatalf("expected 502 with delete notice, got %d %q", status, sr.Message)
	}
	if len(f.sync.Snapshot().Records) != 1 {
		t.Fatalf("expected reload to restore the record")
	}
}

func TestJobsHandler_Notes(t *testing.T) {
	rec := seeded("Engineer", application.StatusApplied, "")
	notes := "ask about on-call"
	rec.Notes = &notes
	f := newJobsFixture(t, nil, rec)

	status, sr := f.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+rec.ID.String()+"/notes", nil))
	if status != http.StatusOK || !strings.Contains(string(sr.Data), notes) {
		t.Fatalf("expected notes, got %d %s", status, sr.Data)
	}
}

func TestJobsHandler_Preview(t *testing.T) {
	ok := stubPreview{res: preview.Result{URL: "https://jobs.test/1", Title: "Go Developer", Company: "Acme"}}
	f := newJobsFixture(t, ok)

	status, sr := f.do(t, jsonRequest(http.MethodPost, "/jobs/preview", map[string]string{"url": "https://jobs.test/1"}))
	if status != http.StatusOK || !strings.Contains(string(sr.Data), "Go Developer") {
		t.Fatalf("expected preview, got %d %s", status, sr.Data)
	}

	cases := map[error]int{
		preview.ErrInvalidURL:       http.StatusBadRequest,
		preview.ErrNoContent:        http.StatusUnprocessableEntity,
		errors.New("dial tcp: i/o"): http.StatusBadGateway,
	}
	for err, want := range cases {
		f := newJobsFixture(t, stubPreview{err: err})
		status, _ := f.do(t, jsonRequest(http.MethodPost, "/jobs/preview", map[string]string{"url": "x"}))
		if status != want {
			t.Fatalf("%v: expected %d, got %d", err, want, status)
		}
	}

	f = newJobsFixture(t, nil)
	status, _ = f.do(t, jsonRequest(http.MethodPost, "/jobs/preview", map[string]string{"url": "https://jobs.test/1"}))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a previewer, got %d", status)
	}
}
