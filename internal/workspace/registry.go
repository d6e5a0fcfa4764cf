// Package workspace holds one guarded synchronizer per signed-in session.
package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"jobtracker/internal/domain/user"
	"jobtracker/internal/listsync"
	"jobtracker/internal/logger"
	"jobtracker/internal/session"

	"go.uber.org/zap"
)

// Observer receives every list update of every open workspace, keyed by
// the session key from Key.
type Observer func(key string, p user.Principal, u listsync.Update)

type entry struct {
	guard    *session.Guard
	sync     *listsync.Synchronizer
	cancel   func()
	lastSeen time.Time
}

type Registry struct {
	auth     session.Authenticator
	deps     listsync.Deps
	observer Observer
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry takes the collaborators shared by every synchronizer it creates.
func NewRegistry(auth session.Authenticator, deps listsync.Deps, log *zap.Logger) *Registry {
	return &Registry{
		auth:    auth,
		deps:    deps,
		logger:  logger.OrNop(log).Named("workspace"),
		now:     time.Now,
		entries: map[string]*entry{},
	}
}

// Observe sets the observer attached to workspaces opened afterwards.
func (r *Registry) Observe(fn Observer) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// Key derives the registry key for a session token.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// Open runs the session guard for token. On the first successful entry the
// workspace's synchronizer is created and loaded before Open returns.
func (r *Registry) Open(ctx context.Context, token string) (*listsync.Synchronizer, session.Result) {
	key := Key(token)

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		e.guard = session.NewGuard(r.auth, func(ctx context.Context, p user.Principal) {
			r.start(ctx, key, e, p)
		})
		r.entries[key] = e
	}
	e.lastSeen = r.now()
	r.mu.Unlock()

	res := e.guard.Enter(ctx, token)
	if res.Decision != session.DecisionAllow {
		if r.drop(key, e) {
			r.release(e)
		}
		return nil, res
	}

	r.mu.Lock()
	s := e.sync
	r.mu.Unlock()
	return s, res
}

func (r *Registry) start(ctx context.Context, key string, e *entry, p user.Principal) {
	s := listsync.New(p, r.deps)

	r.mu.Lock()
	if obs := r.observer; obs != nil {
		e.cancel = s.Subscribe(func(u listsync.Update) { obs(key, p, u) })
	}
	e.sync = s
	r.mu.Unlock()

	snap := s.Load(ctx)
	r.logger.Debug("workspace opened",
		zap.String("owner", p.ID.String()),
		zap.Int("records", len(snap.Records)))
}

// Lookup returns the synchronizer of an already-open workspace.
func (r *Registry) Lookup(token string) (*listsync.Synchronizer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[Key(token)]
	if !ok || e.sync == nil {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.sync, true
}

// Close signs the session out and discards its workspace.
func (r *Registry) Close(ctx context.Context, token string) (session.Result, error) {
	key := Key(token)
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if !ok {
		return session.NewGuard(r.auth, nil).SignOut(ctx, token)
	}
	r.release(e)
	return e.guard.SignOut(ctx, token)
}

// Sweep discards workspaces unused for longer than idle and reports how many.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	var stale []*entry
	for k, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e)
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		r.release(e)
	}
	return len(stale)
}

// Shutdown waits for in-flight reconciliation in every workspace.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	var syncs []*listsync.Synchronizer
	for _, e := range r.entries {
		if e.sync != nil {
			syncs = append(syncs, e.sync)
		}
	}
	r.mu.Unlock()

	for _, s := range syncs {
		s.Wait()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) drop(key string, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] != e {
		return false
	}
	delete(r.entries, key)
	return true
}

func (r *Registry) release(e *entry) {
	if e.cancel != nil {
		e.cancel()
	}
}
