package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-soasecurity/core"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const defaultPingTimeout = 5 * time.Second

// NormalizeDriver maps configured driver aliases to registered sql driver
// names. An empty value selects postgres.
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", core.NewInvalidArgumentError("database.driver", fmt.Sprintf("sqlstore: unsupported database driver %q", driver))
	}
}

// OpenDB opens a bun handle for cfg using the dialect matching its driver.
func OpenDB(cfg core.DatabaseConfig) (*bun.DB, error) {
	sqlDB, dialect, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, dialect), nil
}

// NewPersistenceClient opens cfg through go-persistence-bun so callers get
// migrations and lifecycle management on top of the bun handle.
func NewPersistenceClient(cfg core.DatabaseConfig) (*persistence.Client, error) {
	sqlDB, dialect, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}
	driver, _ := NormalizeDriver(cfg.Driver)
	client, err := persistence.New(persistenceConfig{
		driver: driver,
		server: strings.TrimSpace(cfg.DSN),
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return client, nil
}

func openSQL(cfg core.DatabaseConfig) (*sql.DB, schema.Dialect, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, nil, core.NewInvalidArgumentError("database.dsn", "sqlstore: database dsn is required")
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return sqlDB, sqlitedialect.New(), nil
	}
	return sqlDB, pgdialect.New(), nil
}

type persistenceConfig struct {
	driver string
	server string
}

func (persistenceConfig) GetDebug() bool { return false }

func (c persistenceConfig) GetDriver() string { return c.driver }

func (c persistenceConfig) GetServer() string { return c.server }

func (persistenceConfig) GetPingTimeout() time.Duration { return defaultPingTimeout }

func (persistenceConfig) GetOtelIdentifier() string { return "go-soasecurity" }
