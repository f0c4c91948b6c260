package query

import (
	"github.com/google/uuid"
)

const (
	TypeRequestToken            = "soasecurity.query.token.request"
	TypeGetAnonymizationRequest = "soasecurity.query.anonymization.get"
)

// RequestTokenMessage asks the security service for a token. A nil TraceID
// is replaced by the repository. Async routes the call through GetTokenAsync.
type RequestTokenMessage struct {
	TraceID uuid.UUID
	Async   bool
}

func (RequestTokenMessage) Type() string { return TypeRequestToken }

type GetAnonymizationRequestMessage struct {
	CorrelationID uuid.UUID
}

func (GetAnonymizationRequestMessage) Type() string { return TypeGetAnonymizationRequest }

func (m GetAnonymizationRequestMessage) Validate() error {
	if m.CorrelationID == uuid.Nil {
		return queryValidationError("correlation_id", "correlation id is required")
	}
	return nil
}
