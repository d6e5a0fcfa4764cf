package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobtracker/internal/delivery/http/dto"
	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/domain/application"
	"jobtracker/internal/editor"
	"jobtracker/internal/listsync"
	"jobtracker/internal/pkg/response"
	"jobtracker/internal/preview"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Previewer reads a job posting link.
type Previewer interface {
	Fetch(ctx context.Context, pageURL string) (preview.Result, error)
}

type JobsHandler struct {
	preview Previewer
}

func NewJobsHandler(p Previewer) *JobsHandler {
	return &JobsHandler{preview: p}
}

func (h *JobsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Post("/reload", h.HandleReload)
	r.Post("/preview", h.HandlePreview)
	r.Put("/:id", h.HandleUpdate)
	r.Get("/:id/notes", h.HandleNotes)
	r.Patch("/:id/status", h.HandleChangeStatus)
	r.Post("/:id/delete", h.HandleRequestDelete)
	r.Post("/:id/delete/confirm", h.HandleConfirmDelete)
	r.Post("/:id/delete/cancel", h.HandleCancelDelete)
}

func (h *JobsHandler) HandleList(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSnapshot(s.Snapshot()))
}

func (h *JobsHandler) HandleReload(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSnapshot(s.Load(c.Context())))
}

func (h *JobsHandler) HandleChangeStatus(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req dto.ChangeStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	status, err := application.ParseStatus(req.Status)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid status", nil, err)
	}

	pending, err := s.ChangeStatus(c.Context(), id, status)
	if err != nil {
		return mapListsyncError(err)
	}
	if waitRequested(c) {
		// A failed change has already been reconciled by a reload.
		_ = pending.Wait()
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSnapshot(s.Snapshot()))
}

func (h *JobsHandler) HandleRequestDelete(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.RequestDelete(id); err != nil {
		return mapListsyncError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.DeletePromptResponse{ID: id, Prompt: listsync.DeletePrompt})
}

func (h *JobsHandler) HandleConfirmDelete(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	pending, err := s.ConfirmDelete(c.Context(), id)
	if err != nil {
		return mapListsyncError(err)
	}
	if waitRequested(c) {
		if err := pending.Wait(); err != nil {
			notice := editor.Notice{Message: listsync.NoticeDeleteFailed}
			return middleware.NewAppError(fiber.StatusBadGateway, notice.Message, notice, err)
		}
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSnapshot(s.Snapshot()))
}

func (h *JobsHandler) HandleCancelDelete(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.CancelDelete(id); err != nil {
		return mapListsyncError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSnapshot(s.Snapshot()))
}

func (h *JobsHandler) HandleCreate(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}

	d := editor.NewDraft()
	if err := applyForm(c, d); err != nil {
		return err
	}
	closeFile, err := attachResume(c, d)
	if err != nil {
		return err
	}
	defer closeFile()

	snap, notice := d.Submit(c.Context(), s)
	if notice != nil {
		return noticeError(notice)
	}
	return response.Success(c, fiber.StatusCreated, "created", dto.FromSnapshot(snap))
}

func (h *JobsHandler) HandleUpdate(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rec, err := s.Get(id)
	if err != nil {
		return mapListsyncError(err)
	}

	d := editor.DraftFrom(rec)
	if err := applyForm(c, d); err != nil {
		return err
	}
	closeFile, err := attachResume(c, d)
	if err != nil {
		return err
	}
	defer closeFile()

	snap, notice := d.Submit(c.Context(), s)
	if notice != nil {
		return noticeError(notice)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSnapshot(snap))
}

func (h *JobsHandler) HandleNotes(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rec, err := s.Get(id)
	if err != nil {
		return mapListsyncError(err)
	}
	notes, _ := s.Notes(id)
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.JobNotesResponse{
		ID:       rec.ID,
		JobTitle: rec.JobTitle,
		Company:  rec.Company,
		Notes:    notes,
	})
}

func (h *JobsHandler) HandlePreview(c fiber.Ctx) error {
	if _, err := workspaceOf(c); err != nil {
		return err
	}
	if h.preview == nil {
		return fiber.ErrServiceUnavailable
	}

	var req dto.PreviewRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	res, err := h.preview.Fetch(c.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, preview.ErrInvalidURL):
			return middleware.NewAppError(fiber.StatusBadRequest, preview.ErrInvalidURL.Error(), nil, err)
		case errors.Is(err, preview.ErrNoContent):
			return middleware.NewAppError(fiber.StatusUnprocessableEntity, preview.ErrNoContent.Error(), nil, err)
		default:
			return middleware.NewAppError(fiber.StatusBadGateway, "Could not read job link", nil, err)
		}
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func workspaceOf(c fiber.Ctx) (*listsync.Synchronizer, error) {
	s, ok := middleware.Workspace(c)
	if !ok {
		return nil, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return s, nil
}

func pathID(c fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid id", nil, err)
	}
	return id, nil
}

func waitRequested(c fiber.Ctx) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query("wait")))
	return v == "1" || v == "true"
}

func mapListsyncError(err error) error {
	switch {
	case errors.Is(err, listsync.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job application not found", nil, err)
	case errors.Is(err, listsync.ErrNotPending):
		return middleware.NewAppError(fiber.StatusConflict, "No pending delete for this application", nil, err)
	case errors.Is(err, listsync.ErrInvalidStatus):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid status", nil, err)
	case errors.Is(err, listsync.ErrNoPrincipal):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, "Internal server error", nil, err)
	}
}

func noticeError(n *editor.Notice) error {
	status := fiber.StatusBadGateway
	switch n.Kind {
	case editor.KindInvalid:
		status = fiber.StatusUnprocessableEntity
	case editor.KindMissing:
		status = fiber.StatusNotFound
	case editor.KindSignedOut:
		status = fiber.StatusUnauthorized
	}
	return middleware.NewAppError(status, n.Message, n, nil)
}

var draftFields = []string{"job_title", "company", "job_link", "status", "location", "source", "notes", "jd_text", "date_applied"}

// applyForm copies the submitted form fields onto d. Fields missing from
// the request keep their draft value; blank ones are cleared.
func applyForm(c fiber.Ctx, d *editor.Draft) error {
	for _, key := range draftFields {
		v, ok := formValue(c, key)
		if !ok {
			continue
		}
		switch key {
		case "job_title":
			d.JobTitle = v
		case "company":
			d.Company = v
		case "job_link":
			d.JobLink = v
		case "status":
			if st, err := application.ParseStatus(v); err == nil {
				d.Status = st
			} else {
				d.Status = application.Status(strings.TrimSpace(v))
			}
		case "location":
			d.Location = v
		case "source":
			d.Source = v
		case "notes":
			d.Notes = v
		case "jd_text":
			d.JDText = v
		case "date_applied":
			v = strings.TrimSpace(v)
			if v == "" {
				d.DateApplied = nil
				continue
			}
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return middleware.NewAppError(fiber.StatusBadRequest, "date_applied must be YYYY-MM-DD", nil, err)
			}
			d.DateApplied = &t
		}
	}
	return nil
}

func formValue(c fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		vs, ok := form.Value[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}
	args := c.Request().PostArgs()
	if !args.Has(key) {
		return "", false
	}
	return string(args.Peek(key)), true
}

// attachResume sets d.File from the "resume" upload, if any. The returned
// func closes the upload.
func attachResume(c fiber.Ctx, d *editor.Draft) (func(), error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return func() {}, nil
	}
	files := form.File["resume"]
	if len(files) == 0 || files[0] == nil || files[0].Filename == "" {
		return func() {}, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return func() {}, middleware.NewAppError(fiber.StatusBadRequest, "Could not read resume", nil, err)
	}
	d.File = &listsync.Resume{Filename: fh.Filename, Size: fh.Size, Content: f}
	return func() { _ = f.Close() }, nil
}
