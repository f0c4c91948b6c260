package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	soasecurity "github.com/goliatone/go-soasecurity"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/goliatone/go-soasecurity/migrations"
	sqlstore "github.com/goliatone/go-soasecurity/store/sql"
	_ "github.com/mattn/go-sqlite3"
)

func TestSources_SplitsEmbeddedTree(t *testing.T) {
	sources, err := migrations.Sources(soasecurity.GetMigrationsFS())
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Dialect != migrations.DialectPostgres || sources[1].Dialect != migrations.DialectSQLite {
		t.Fatalf("unexpected dialect order %q, %q", sources[0].Dialect, sources[1].Dialect)
	}
	for _, source := range sources {
		content, err := fs.ReadFile(source.FS, "00001_soasecurity_anonymization_requests.up.sql")
		if err != nil {
			t.Fatalf("read %s migration: %v", source.Dialect, err)
		}
		if !strings.Contains(string(content), "anonymization_requests") {
			t.Fatalf("expected %s migration to create anonymization_requests", source.Dialect)
		}
	}
}

func TestSources_RejectsIncompleteTrees(t *testing.T) {
	if _, err := migrations.Sources(nil); err == nil {
		t.Fatalf("expected nil filesystem to fail")
	}
	noSQLite := fstest.MapFS{
		"data/sql/migrations/00001_x.up.sql":   &fstest.MapFile{Data: []byte("SELECT 1;")},
		"data/sql/migrations/sqlite/README.md": &fstest.MapFile{Data: []byte("none")},
	}
	if _, err := migrations.Sources(noSQLite); err == nil {
		t.Fatalf("expected tree without sqlite migrations to fail")
	}
}

func TestSourceFor_FollowsDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite3":  migrations.DialectSQLite,
		" SQLite ": migrations.DialectSQLite,
		"postgres": migrations.DialectPostgres,
		"":         migrations.DialectPostgres,
	}
	for driver, want := range cases {
		if got := migrations.DialectForDriver(driver); got != want {
			t.Fatalf("driver %q: expected %q, got %q", driver, want, got)
		}
		source, err := migrations.SourceFor(soasecurity.GetMigrationsFS(), driver)
		if err != nil {
			t.Fatalf("source for %q: %v", driver, err)
		}
		if source.Dialect != want {
			t.Fatalf("driver %q: expected %s tree, got %s", driver, want, source.Dialect)
		}
	}
}

func TestApply_CreatesAnonymizationTable(t *testing.T) {
	if err := migrations.Apply(context.Background(), nil, "sqlite", soasecurity.GetMigrationsFS()); err == nil {
		t.Fatalf("expected nil client to fail")
	}

	dsn := fmt.Sprintf("file:migrations-apply-%d?mode=memory&cache=shared", time.Now().UnixNano())
	client, err := sqlstore.NewPersistenceClient(core.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("new persistence client: %v", err)
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	if err := migrations.Apply(ctx, client, "sqlite3", soasecurity.GetMigrationsFS()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	var tables int
	if err := client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"anonymization_requests",
	).Scan(&tables); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tables != 1 {
		t.Fatalf("expected anonymization_requests to exist")
	}
}

func TestSQLiteAnonymizationMigration_UpAndDown(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:migrations-anonymization?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	source, err := migrations.SourceFor(soasecurity.GetMigrationsFS(), "sqlite")
	if err != nil {
		t.Fatalf("sqlite source: %v", err)
	}
	if err := execMigration(ctx, db, source.FS, "00001_soasecurity_anonymization_requests.up.sql"); err != nil {
		t.Fatalf("apply up migration: %v", err)
	}

	insert := `INSERT INTO anonymization_requests
		(id, correlation_id, request_id, requestor_identity, requestor_name, request_approver_identity,
		 request_approver_name, case_id, legacy_id, household_id, request_date, approval_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, insert,
		"row-1", "corr-1", 42, "jdoe01", "Jo Doe", "asmith", "Al Smith", "CASE-1", 7, 99,
		"2026-03-01T09:00:00Z", "2026-03-02T09:00:00Z",
	); err != nil {
		t.Fatalf("insert request: %v", err)
	}
	if _, err := db.ExecContext(ctx, insert,
		"row-2", "corr-2", 42, "jdoe01", "Jo Doe", "asmith", "Al Smith", "CASE-1", 7, 99,
		"2026-03-01T09:00:00Z", "2026-03-02T09:00:00Z",
	); err == nil {
		t.Fatalf("expected unique request_id violation")
	}

	if err := execMigration(ctx, db, source.FS, "00001_soasecurity_anonymization_requests.down.sql"); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}
	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"anonymization_requests",
	).Scan(&tables); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected anonymization_requests to be dropped")
	}
}

func execMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
