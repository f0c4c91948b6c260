package sqlstore

import (
	"github.com/goliatone/go-soasecurity/core"
	"github.com/uptrace/bun"
)

var (
	_ core.ConnectionOpener[bun.IDB] = (*ConnectionOpener)(nil)
	_ core.TransientClassifier       = IsTransient
)
