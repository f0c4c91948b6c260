package query

import (
	"context"

	"github.com/goliatone/go-soasecurity/core"
	"github.com/google/uuid"
)

type TokenReader interface {
	GetToken(ctx context.Context, traceID uuid.UUID) (core.TokenResult, error)
	GetTokenAsync(ctx context.Context, traceID uuid.UUID) <-chan core.TokenReply
}

type AnonymizationReader interface {
	GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) (core.AnonymizationRecord, error)
}

type RequestTokenQuery struct {
	reader TokenReader
}

func NewRequestTokenQuery(reader TokenReader) *RequestTokenQuery {
	return &RequestTokenQuery{reader: reader}
}

func (q *RequestTokenQuery) Query(ctx context.Context, msg RequestTokenMessage) (core.TokenResult, error) {
	if q == nil || q.reader == nil {
		return core.TokenResult{}, queryDependencyError("query: token reader is required")
	}
	if !msg.Async {
		return q.reader.GetToken(ctx, msg.TraceID)
	}
	reply, ok := <-q.reader.GetTokenAsync(ctx, msg.TraceID)
	if !ok {
		return core.TokenResult{}, queryDependencyError("query: token reply channel closed without a reply")
	}
	return reply.Result, reply.Err
}

type GetAnonymizationRequestQuery struct {
	reader AnonymizationReader
}

func NewGetAnonymizationRequestQuery(reader AnonymizationReader) *GetAnonymizationRequestQuery {
	return &GetAnonymizationRequestQuery{reader: reader}
}

func (q *GetAnonymizationRequestQuery) Query(
	ctx context.Context,
	msg GetAnonymizationRequestMessage,
) (core.AnonymizationRecord, error) {
	if q == nil || q.reader == nil {
		return core.AnonymizationRecord{}, queryDependencyError("query: anonymization reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.AnonymizationRecord{}, err
	}
	return q.reader.GetByCorrelationID(ctx, msg.CorrelationID)
}
