package sqlstore

import (
	"errors"
	"strings"

	"github.com/goliatone/go-soasecurity/core"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// IsTransient reports driver level failures that may succeed on retry:
// postgres connection exceptions, serialization failures, deadlocks,
// resource exhaustion and operator intervention, plus sqlite busy/locked.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientSQLState(string(pqErr.Code))
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func transientSQLState(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"):
		return true
	case code == "40001", code == "40P01":
		return true
	case code == "57P01", code == "57P02", code == "57P03":
		return true
	default:
		return false
	}
}

// TransientClassifier extends the network level defaults with IsTransient.
func TransientClassifier() core.TransientClassifier {
	return core.AnyTransient(core.DefaultTransientClassifier, IsTransient)
}
