package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jobtracker/internal/database"
	"jobtracker/internal/domain/application"
	apperrors "jobtracker/internal/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobApplicationColumns = `id, user_id, job_title, company, job_link, status, location, source,
	notes, resume_url, jd_text, date_applied, created_at`

type PostgresJobApplicationRepository struct {
	db database.DB
}

func NewPostgresJobApplicationRepository(db database.DB) *PostgresJobApplicationRepository {
	return &PostgresJobApplicationRepository{db: db}
}

func (r *PostgresJobApplicationRepository) List(ctx context.Context, owner uuid.UUID) ([]application.JobApplication, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+jobApplicationColumns+`
		 FROM job_applications
		 WHERE user_id = $1
		 ORDER BY date_applied DESC NULLS LAST, created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, apperrors.Unavailable("listing job applications", err)
	}
	defer rows.Close()

	out := make([]application.JobApplication, 0)
	for rows.Next() {
		rec, err := scanJobApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobApplicationRepository) Insert(ctx context.Context, rec application.NewJobApplication) (application.JobApplication, error) {
	f := rec.Fields
	row := r.db.QueryRow(ctx,
		`INSERT INTO job_applications
		 (user_id, job_title, company, job_link, status, location, source, notes, resume_url, jd_text, date_applied)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+jobApplicationColumns,
		rec.Owner,
		f.JobTitle,
		f.Company,
		f.JobLink,
		string(f.Status),
		f.Location,
		f.Source,
		f.Notes,
		rec.ResumeURL,
		f.JDText,
		f.DateApplied,
	)
	out, err := scanJobApplication(row)
	if err != nil {
		return application.JobApplication{}, apperrors.Internal("inserting job application", err)
	}
	return out, nil
}

func (r *PostgresJobApplicationRepository) Update(ctx context.Context, owner uuid.UUID, id uuid.UUID, p application.Patch) error {
	if p.Empty() {
		return nil
	}

	sets := make([]string, 0, 11)
	args := make([]any, 0, 13)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if f := p.Fields; f != nil {
		set("job_title", f.JobTitle)
		set("company", f.Company)
		set("job_link", f.JobLink)
		set("status", string(f.Status))
		set("location", f.Location)
		set("source", f.Source)
		set("notes", f.Notes)
		set("jd_text", f.JDText)
		set("date_applied", f.DateApplied)
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.ResumeURL != nil {
		set("resume_url", *p.ResumeURL)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id, owner)
	q := fmt.Sprintf(
		`UPDATE job_applications SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	n, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return apperrors.Internal("updating job application", err)
	}
	if n == 0 {
		return apperrors.NotFound("job application not found", application.ErrNotFound)
	}
	return nil
}

// Delete is idempotent: removing a record that is already gone succeeds.
func (r *PostgresJobApplicationRepository) Delete(ctx context.Context, owner uuid.UUID, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM job_applications WHERE id = $1 AND user_id = $2`, id, owner); err != nil {
		return apperrors.Internal("deleting job application", err)
	}
	return nil
}

func scanJobApplication(row database.Row) (application.JobApplication, error) {
	var rec application.JobApplication
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.Owner,
		&rec.JobTitle,
		&rec.Company,
		&rec.JobLink,
		&status,
		&rec.Location,
		&rec.Source,
		&rec.Notes,
		&rec.ResumeURL,
		&rec.JDText,
		&rec.DateApplied,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return application.JobApplication{}, apperrors.NotFound("job application not found", application.ErrNotFound)
		}
		return application.JobApplication{}, err
	}
	rec.Status = application.Status(status)
	return rec, nil
}

var _ application.Repository = (*PostgresJobApplicationRepository)(nil)
