package dto

import (
	"time"

	"jobtracker/internal/domain/application"
	"jobtracker/internal/listsync"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type JobApplicationResponse struct {
	ID          uuid.UUID `json:"id"`
	JobTitle    string    `json:"job_title"`
	Company     *string   `json:"company"`
	JobLink     *string   `json:"job_link"`
	Status      string    `json:"status"`
	Location    *string   `json:"location"`
	Source      *string   `json:"source"`
	HasNotes    bool      `json:"has_notes"`
	ResumeURL   *string   `json:"resume_url"`
	JDText      *string   `json:"jd_text,omitempty"`
	DateApplied *string   `json:"date_applied"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromJobApplication(r application.JobApplication) JobApplicationResponse {
	out := JobApplicationResponse{
		ID:        r.ID,
		JobTitle:  r.JobTitle,
		Company:   r.Company,
		JobLink:   r.JobLink,
		Status:    string(r.Status),
		Location:  r.Location,
		Source:    r.Source,
		HasNotes:  application.Text(r.Notes) != nil,
		ResumeURL: r.ResumeURL,
		JDText:    r.JDText,
		CreatedAt: r.CreatedAt,
	}
	if r.DateApplied != nil {
		d := r.DateApplied.Format(dateLayout)
		out.DateApplied = &d
	}
	return out
}

type JobListSnapshotResponse struct {
	Records        []JobApplicationResponse `json:"records"`
	Loading        bool                     `json:"loading"`
	PendingDeletes []uuid.UUID              `json:"pending_deletes"`
	Statuses       []string                 `json:"statuses"`
	Version        uint64                   `json:"version"`
}

func FromSnapshot(s listsync.Snapshot) JobListSnapshotResponse {
	out := JobListSnapshotResponse{
		Records:        make([]JobApplicationResponse, 0, len(s.Records)),
		Loading:        s.Loading,
		PendingDeletes: s.PendingDeletes,
		Statuses:       make([]string, 0, 6),
		Version:        s.Version,
	}
	if out.PendingDeletes == nil {
		out.PendingDeletes = []uuid.UUID{}
	}
	for _, r := range s.Records {
		out.Records = append(out.Records, FromJobApplication(r))
	}
	for _, st := range application.Statuses() {
		out.Statuses = append(out.Statuses, string(st))
	}
	return out
}

type JobNotesResponse struct {
	ID       uuid.UUID `json:"id"`
	JobTitle string    `json:"job_title"`
	Company  *string   `json:"company"`
	Notes    string    `json:"notes"`
}

type DeletePromptResponse struct {
	ID     uuid.UUID `json:"id"`
	Prompt string    `json:"prompt"`
}
