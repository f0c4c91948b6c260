package sqlstore

import (
	"context"

	"github.com/goliatone/go-soasecurity/core"
	"github.com/uptrace/bun"
)

// ConnectionOpener hands out one dedicated pool connection per command
// attempt. Closing the connection returns it to the pool.
type ConnectionOpener struct {
	db *bun.DB
}

func NewConnectionOpener(db *bun.DB) (*ConnectionOpener, error) {
	if db == nil {
		return nil, core.NewInvalidArgumentError("db", "sqlstore: bun db is required")
	}
	return &ConnectionOpener{db: db}, nil
}

func (o *ConnectionOpener) Open(ctx context.Context) (bun.IDB, func() error, error) {
	if o == nil || o.db == nil {
		return nil, nil, core.NewInternalError("sqlstore: connection opener is not configured")
	}
	conn, err := o.db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &conn, conn.Close, nil
}
