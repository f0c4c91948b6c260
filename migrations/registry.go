package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const rootPath = "data/sql/migrations"

// DialectForDriver maps a sql driver name to the migration dialect that
// serves it. Unknown drivers map to postgres.
func DialectForDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

// Source is the migration tree of one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Sources splits root into the postgres tree at data/sql/migrations and its
// sqlite sibling. Each tree must hold at least one *.up.sql file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		return nil, fmt.Errorf("migrations: filesystem is required")
	}
	base, err := fs.Sub(root, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite tree: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/" + DialectSQLite, FS: sqliteFS},
	}
	for _, source := range sources {
		matches, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", source.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", source.Path)
		}
	}
	return sources, nil
}

// SourceFor returns the tree serving driver.
func SourceFor(root fs.FS, driver string) (Source, error) {
	sources, err := Sources(root)
	if err != nil {
		return Source{}, err
	}
	dialect := DialectForDriver(driver)
	for _, source := range sources {
		if source.Dialect == dialect {
			return source, nil
		}
	}
	return Source{}, fmt.Errorf("migrations: no tree for dialect %s", dialect)
}

// Apply registers the tree serving driver on client and runs every pending
// migration.
func Apply(ctx context.Context, client *persistence.Client, driver string, root fs.FS) error {
	if client == nil {
		return fmt.Errorf("migrations: persistence client is required")
	}
	source, err := SourceFor(root, driver)
	if err != nil {
		return err
	}
	client.RegisterSQLMigrations(source.FS)
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: apply %s: %w", source.Path, err)
	}
	return nil
}
