package listsync

import (
	"context"

	"jobtracker/internal/domain/application"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pending tracks the background round trip of an optimistic mutation.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the remote call and any reconciling Load have finished,
// and returns the remote error, if any.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// ChangeStatus rewrites the record's status locally before returning, then
// updates the store in the background. A failed update reloads the list.
func (s *Synchronizer) ChangeStatus(ctx context.Context, id uuid.UUID, status application.Status) (*Pending, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.records[i].Status = status
	snap := s.changedLocked()
	s.mu.Unlock()

	s.emit(Update{Snapshot: snap})

	return s.reconcile(ctx, "status", id, "", func(ctx context.Context) error {
		if err := s.store.Update(ctx, s.principal.ID, id, application.Patch{Status: &status}); err != nil {
			return err
		}
		s.publish(ctx, application.ChangeStatusChanged, id, status)
		return nil
	}), nil
}

// RequestDelete marks id as awaiting confirmation. Nothing is removed yet.
func (s *Synchronizer) RequestDelete(id uuid.UUID) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.pendingDeletes[id] = struct{}{}
	snap := s.changedLocked()
	s.mu.Unlock()

	s.emit(Update{Snapshot: snap})
	return nil
}

func (s *Synchronizer) CancelDelete(id uuid.UUID) error {
	s.mu.Lock()
	if _, ok := s.pendingDeletes[id]; !ok {
		s.mu.Unlock()
		return ErrNotPending
	}
	delete(s.pendingDeletes, id)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.emit(Update{Snapshot: snap})
	return nil
}

// ConfirmDelete removes a record previously passed to RequestDelete from
// the list immediately and deletes it from the store in the background.
func (s *Synchronizer) ConfirmDelete(ctx context.Context, id uuid.UUID) (*Pending, error) {
	s.mu.Lock()
	if _, ok := s.pendingDeletes[id]; !ok {
		s.mu.Unlock()
		return nil, ErrNotPending
	}
	delete(s.pendingDeletes, id)
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.emit(Update{Snapshot: snap})

	return s.reconcile(ctx, "delete", id, NoticeDeleteFailed, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, s.principal.ID, id); err != nil {
			return err
		}
		s.publish(ctx, application.ChangeDeleted, id, "")
		return nil
	}), nil
}

// reconcile runs remote on its own goroutine, detached from the caller's
// cancellation. On failure it logs, emits notice when set, and reloads.
func (s *Synchronizer) reconcile(ctx context.Context, op string, id uuid.UUID, notice string, remote func(context.Context) error) *Pending {
	p := newPending()
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, span := tracer.Start(ctx, "listsync.reconcile."+op)
		defer span.End()

		err := remote(ctx)
		if err != nil {
			span.RecordError(err)
			s.logger.Error("remote mutation failed, reloading",
				zap.String("op", op),
				zap.String("id", id.String()),
				zap.Error(err))
			s.load(ctx, notice)
		}
		p.finish(err)
	}()
	return p
}
