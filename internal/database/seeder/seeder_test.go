package seeder

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"jobtracker/internal/database"

	"github.com/google/uuid"
)

type columnRows struct {
	cols []string
	i    int
}

func (r *columnRows) Close()     {}
func (r *columnRows) Err() error { return nil }
func (r *columnRows) Next() bool {
	r.i++
	return r.i <= len(r.cols)
}
func (r *columnRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.cols[r.i-1]
	return nil
}

type scanRow func(dest ...any) error

func (f scanRow) Scan(dest ...any) error { return f(dest...) }

type fakeTx struct {
	owner     uuid.UUID
	existing  int64
	inserts   int
	committed bool
}

func (tx *fakeTx) Exec(_ context.Context, query string, _ ...any) (int64, error) {
	if strings.Contains(query, "INSERT INTO job_applications") {
		tx.inserts++
	}
	return 1, nil
}

func (tx *fakeTx) Query(context.Context, string, ...any) (database.Rows, error) {
	return nil, errors.New("not implemented")
}

func (tx *fakeTx) QueryRow(_ context.Context, query string, _ ...any) database.Row {
	if strings.Contains(query, "INSERT INTO users") {
		return scanRow(func(dest ...any) error {
			*dest[0].(*uuid.UUID) = tx.owner
			return nil
		})
	}
	return scanRow(func(dest ...any) error {
		*dest[0].(*int64) = tx.existing
		return nil
	})
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct {
	columns map[string][]string
	tx      *fakeTx
}

func (db *fakeDB) Ping(context.Context) error { return nil }
func (db *fakeDB) Close() error               { return nil }
func (db *fakeDB) SQLDB() *sql.DB             { return nil }

func (db *fakeDB) Exec(context.Context, string, ...any) (int64, error) {
	return 0, errors.New("not implemented")
}

func (db *fakeDB) Query(_ context.Context, _ string, args ...any) (database.Rows, error) {
	return &columnRows{cols: db.columns[args[0].(string)]}, nil
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) database.Row {
	return scanRow(func(...any) error { return errors.New("not implemented") })
}

func (db *fakeDB) Begin(context.Context) (database.Tx, error) { return db.tx, nil }

func newFakeDB(existing int64) *fakeDB {
	return &fakeDB{
		columns: map[string][]string{
			"users":            {"id", "email", "created_at"},
			"job_applications": {"id", "user_id", "job_title", "company", "job_link", "status", "location", "source", "notes", "resume_url", "jd_text", "date_applied"},
		},
		tx: &fakeTx{owner: uuid.New(), existing: existing},
	}
}

func TestDemoApplicationsSeeder_SeedsEmptyAccount(t *testing.T) {
	db := newFakeDB(0)

	if err := (Runner{Seeders: Defaults("Demo@Example.com")}).Run(context.Background(), db); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if db.tx.inserts != 6 || !db.tx.committed {
		t.Fatalf("expected six committed inserts, got %d committed=%v", db.tx.inserts, db.tx.committed)
	}
}

func TestDemoApplicationsSeeder_LeavesExistingAccount(t *testing.T) {
	db := newFakeDB(3)

	if err := (DemoApplicationsSeeder{Email: "demo@example.com"}).Run(context.Background(), db); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if db.tx.inserts != 0 {
		t.Fatalf("expected no inserts, got %d", db.tx.inserts)
	}
}

func TestDemoApplicationsSeeder_SchemaMismatch(t *testing.T) {
	db := newFakeDB(0)
	db.columns["job_applications"] = []string{"id", "user_id", "job_title"}

	err := (Runner{Seeders: Defaults("demo@example.com")}).Run(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "seed demo_applications") || !strings.Contains(err.Error(), "missing column") {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestDemoApplicationsSeeder_RequiresEmail(t *testing.T) {
	if err := (DemoApplicationsSeeder{}).Run(context.Background(), newFakeDB(0)); err == nil {
		t.Fatalf("expected error for empty email")
	}
}
