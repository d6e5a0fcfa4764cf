package listsync

import (
	"context"
	"fmt"

	"jobtracker/internal/domain/application"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Create validates the input, uploads the résumé when one is given, inserts
// the record with the upload's public URL and then reloads the list.
// Validation and upload failures never reach the record store.
func (s *Synchronizer) Create(ctx context.Context, fields application.Fields, resume *Resume) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "listsync.Create")
	defer span.End()

	if s.principal.IsZero() {
		return Snapshot{}, ErrNoPrincipal
	}
	fields, err := validateFields(fields)
	if err != nil {
		return Snapshot{}, err
	}

	var prepared *preparedResume
	if resume != nil {
		p, err := prepareResume(resume, s.maxResume)
		if err != nil {
			return Snapshot{}, err
		}
		prepared = &p
	}

	var resumeURL *string
	if prepared != nil {
		url, err := s.upload(ctx, *prepared)
		if err != nil {
			span.RecordError(err)
			return Snapshot{}, err
		}
		resumeURL = &url
	}

	rec, err := s.store.Insert(ctx, application.NewJobApplication{
		Owner:     s.principal.ID,
		Fields:    fields,
		ResumeURL: resumeURL,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to save job", zap.Error(err))
		return Snapshot{}, fmt.Errorf("insert job application: %w", err)
	}
	s.publish(ctx, application.ChangeCreated, rec.ID, rec.Status)

	return s.Load(ctx), nil
}

// Update replaces the editable fields of id. A new résumé is uploaded
// before the record is touched; without one the stored resume_url is kept.
func (s *Synchronizer) Update(ctx context.Context, id uuid.UUID, fields application.Fields, resume *Resume) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "listsync.Update")
	defer span.End()

	if s.principal.IsZero() {
		return Snapshot{}, ErrNoPrincipal
	}
	fields, err := validateFields(fields)
	if err != nil {
		return Snapshot{}, err
	}
	if _, err := s.Get(id); err != nil {
		return Snapshot{}, err
	}

	patch := application.Patch{Fields: &fields}
	if resume != nil {
		prepared, err := prepareResume(resume, s.maxResume)
		if err != nil {
			return Snapshot{}, err
		}
		url, err := s.upload(ctx, prepared)
		if err != nil {
			span.RecordError(err)
			return Snapshot{}, err
		}
		patch.ResumeURL = &url
	}

	if err := s.store.Update(ctx, s.principal.ID, id, patch); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to update job", zap.String("id", id.String()), zap.Error(err))
		return Snapshot{}, fmt.Errorf("update job application: %w", err)
	}
	s.publish(ctx, application.ChangeUpdated, id, fields.Status)

	return s.Load(ctx), nil
}

func validateFields(f application.Fields) (application.Fields, error) {
	f = f.Normalize()
	if f.JobTitle == "" {
		return f, ErrTitleRequired
	}
	if !f.Status.Valid() {
		return f, ErrInvalidStatus
	}
	return f, nil
}

func (s *Synchronizer) upload(ctx context.Context, r preparedResume) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("%w: no blob store configured", ErrUpload)
	}
	p := resumePath(s.principal.ID, s.now(), s.token(), r.ext)
	if err := s.blobs.Upload(ctx, p, r.body, r.size, r.contentType); err != nil {
		s.logger.Error("failed to upload resume", zap.String("path", p), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return s.blobs.PublicURL(p), nil
}
