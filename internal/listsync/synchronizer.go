// Package listsync keeps one principal's in-memory list of job applications
// in step with the record store.
//
// Status changes and deletes use optimistic apply with reconcile-by-reload on
// failure: local state changes first, the remote call runs in the background,
// and a failed call triggers a full Load rather than a local revert. Creates
// and updates use pessimistic apply with reload on success, since their
// outcome carries store-generated fields.
package listsync

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"jobtracker/internal/domain/application"
	"jobtracker/internal/domain/user"
	"jobtracker/internal/logger"
	"jobtracker/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobtracker/listsync")

var (
	ErrNotFound      = application.ErrNotFound
	ErrInvalidStatus = application.ErrInvalidStatus
	ErrTitleRequired = errors.New("job title is required")
	ErrInvalidResume = errors.New("invalid resume file")
	ErrNotPending    = errors.New("no pending delete for record")
	ErrUpload        = errors.New("resume upload failed")
	ErrNoPrincipal   = errors.New("no authenticated principal")
)

const (
	NoticeDeleteFailed = "Failed to delete job."
	DeletePrompt       = "Delete this application?"
)

// BlobStore stores résumé files and resolves their public URLs.
type BlobStore interface {
	Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	PublicURL(path string) string
}

// ChangePublisher receives changes after the record store acknowledged them.
type ChangePublisher interface {
	Publish(ctx context.Context, c application.Change) error
}

type Deps struct {
	Records        application.Repository
	Blobs          BlobStore
	Publisher      ChangePublisher
	Logger         *zap.Logger
	MaxResumeBytes int64

	Now   func() time.Time
	Token func() string
}

// Snapshot is a copy of the list state. Version grows with every local
// mutation or Load, so a later snapshot always carries a larger Version.
type Snapshot struct {
	Records        []application.JobApplication
	Loading        bool
	PendingDeletes []uuid.UUID
	Version        uint64
}

// Update is delivered to observers after every local mutation or Load.
// Notice is set when a background failure should be shown to the user.
type Update struct {
	Snapshot Snapshot
	Notice   string
}

type Synchronizer struct {
	principal user.Principal

	store     application.Repository
	blobs     BlobStore
	publisher ChangePublisher
	logger    *zap.Logger
	maxResume int64
	now       func() time.Time
	token     func() string

	mu             sync.Mutex
	records        []application.JobApplication
	loading        bool
	pendingDeletes map[uuid.UUID]struct{}
	version        uint64

	obsMu     sync.Mutex
	observers map[int]func(Update)
	nextObs   int

	// emitMu orders delivery; emitted is the last Version delivered.
	emitMu  sync.Mutex
	emitted uint64

	inflight sync.WaitGroup
}

func New(principal user.Principal, deps Deps) *Synchronizer {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	token := deps.Token
	if token == nil {
		token = randomToken
	}
	return &Synchronizer{
		principal:      principal,
		store:          deps.Records,
		blobs:          deps.Blobs,
		publisher:      deps.Publisher,
		logger:         logger.OrNop(deps.Logger).Named("listsync").With(zap.String("owner", principal.ID.String())),
		maxResume:      deps.MaxResumeBytes,
		now:            now,
		token:          token,
		loading:        true,
		pendingDeletes: map[uuid.UUID]struct{}{},
		observers:      map[int]func(Update){},
	}
}

func (s *Synchronizer) Principal() user.Principal {
	return s.principal
}

// Load replaces the list with the store's current records. A failed fetch
// is logged and degrades to an empty list.
func (s *Synchronizer) Load(ctx context.Context) Snapshot {
	return s.load(ctx, "")
}

// load is Load with an optional notice delivered in the same Update.
func (s *Synchronizer) load(ctx context.Context, notice string) Snapshot {
	ctx, span := tracer.Start(ctx, "listsync.Load")
	defer span.End()

	recs, err := s.store.List(ctx, s.principal.ID)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to fetch jobs", zap.Error(err))
		recs = nil
	}
	recs = order(recs)
	span.SetAttributes(telemetry.Int("records", len(recs)))

	s.mu.Lock()
	s.records = recs
	s.loading = false
	present := make(map[uuid.UUID]struct{}, len(recs))
	for _, r := range recs {
		present[r.ID] = struct{}{}
	}
	for id := range s.pendingDeletes {
		if _, ok := present[id]; !ok {
			delete(s.pendingDeletes, id)
		}
	}
	snap := s.changedLocked()
	s.mu.Unlock()

	s.emit(Update{Snapshot: snap, Notice: notice})
	return snap
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) Get(id uuid.UUID) (application.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return application.JobApplication{}, ErrNotFound
	}
	return s.records[i], nil
}

// Notes returns the notes shown by the notes viewer.
func (s *Synchronizer) Notes(id uuid.UUID) (string, error) {
	rec, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return application.Deref(rec.Notes), nil
}

// Subscribe registers fn for every Update. Calling the returned func removes it.
func (s *Synchronizer) Subscribe(fn func(Update)) func() {
	if fn == nil {
		return func() {}
	}
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// Wait blocks until all background reconciliation has finished.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	recs := make([]application.JobApplication, len(s.records))
	copy(recs, s.records)
	var pending []uuid.UUID
	for id := range s.pendingDeletes {
		pending = append(pending, id)
	}
	return Snapshot{Records: recs, Loading: s.loading, PendingDeletes: pending, Version: s.version}
}

// changedLocked bumps the version after a mutation and returns the new state.
func (s *Synchronizer) changedLocked() Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Synchronizer) indexLocked(id uuid.UUID) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// emit delivers u to observers one Update at a time, in Version order. A
// snapshot older than one already delivered is dropped; if it carried a
// notice, the notice goes out with the current state instead. Observers
// must not mutate the synchronizer.
func (s *Synchronizer) emit(u Update) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if u.Snapshot.Version < s.emitted {
		if u.Notice == "" {
			return
		}
		u.Snapshot = s.Snapshot()
	}
	if u.Snapshot.Version > s.emitted {
		s.emitted = u.Snapshot.Version
	}

	s.obsMu.Lock()
	fns := make([]func(Update), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

func (s *Synchronizer) publish(ctx context.Context, kind application.ChangeKind, id uuid.UUID, status application.Status) {
	if s.publisher == nil {
		return
	}
	c := application.Change{Kind: kind, Owner: s.principal.ID, ID: id, Status: status, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, c); err != nil {
		s.logger.Warn("failed to publish change", zap.String("kind", string(kind)), zap.Error(err))
	}
}
