package seeder

import (
	"context"
	"fmt"
	"strings"

	"jobtracker/internal/database"

	"github.com/google/uuid"
)

// DemoApplicationsSeeder fills an empty account with sample applications,
// one per status. Accounts that already track something are left alone.
type DemoApplicationsSeeder struct {
	Email string
}

func (DemoApplicationsSeeder) Name() string { return "demo_applications" }

func (s DemoApplicationsSeeder) Run(ctx context.Context, db database.DB) error {
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if email == "" {
		return fmt.Errorf("empty email")
	}
	if err := EnsureTableColumns(ctx, db, "users", "id", "email"); err != nil {
		return err
	}
	if err := EnsureTableColumns(ctx, db, "job_applications",
		"id", "user_id", "job_title", "company", "job_link", "status", "location", "source", "notes", "date_applied",
	); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	var owner uuid.UUID
	if err := tx.QueryRow(ctx,
		`INSERT INTO users (email) VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id`,
		email,
	).Scan(&owner); err != nil {
		return fmt.Errorf("user: %w", err)
	}

	var existing int64
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM job_applications WHERE user_id = $1`, owner).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	items := []struct {
		Title    string
		Company  string
		Link     string
		Status   string
		Location string
		Source   string
		Notes    string
		Applied  string
	}{
		{"Backend Engineer (Go)", "Acme Corp", "https://jobs.example.test/acme/backend-go", "Applied", "Remote", "LinkedIn", "", "2024-03-04"},
		{"Platform Engineer", "Globex", "https://jobs.example.test/globex/platform", "Interviewing", "Berlin", "Referral", "Second round with the infra team.", "2024-02-19"},
		{"Site Reliability Engineer", "Initech", "", "Offer", "Amsterdam", "Company site", "Offer expires end of month.", "2024-01-29"},
		{"Software Engineer, Payments", "Umbrella", "https://jobs.example.test/umbrella/payments", "Rejected", "London", "Indeed", "", "2024-01-08"},
		{"Go Developer", "Hooli", "", "Ghosted", "Remote", "Recruiter", "", "2023-12-11"},
		{"Staff Engineer", "Stark Industries", "https://jobs.example.test/stark/staff", "Bookmarked", "New York", "", "Ask about on-call.", ""},
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO job_applications (user_id, job_title, company, job_link, status, location, source, notes, date_applied)
			 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, '')::date)`,
			owner, it.Title, it.Company, it.Link, it.Status, it.Location, it.Source, it.Notes, it.Applied,
		); err != nil {
			return fmt.Errorf("insert %q: %w", it.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
