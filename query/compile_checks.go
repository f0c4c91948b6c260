package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-soasecurity/core"
)

var (
	_ gocmd.Querier[RequestTokenMessage, core.TokenResult]                    = (*RequestTokenQuery)(nil)
	_ gocmd.Querier[GetAnonymizationRequestMessage, core.AnonymizationRecord] = (*GetAnonymizationRequestQuery)(nil)
	_ TokenReader                                                             = (*core.TokenRepository)(nil)
)
