package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/google/uuid"
)

type AnonymizationWriter interface {
	InsertAnonymizationRequest(ctx context.Context, req core.AnonymizationRequest) (uuid.UUID, error)
}

// InsertAnonymizationRequestCommand stores the assigned correlation id in the
// context result collector when one is present.
type InsertAnonymizationRequestCommand struct {
	writer AnonymizationWriter
}

func NewInsertAnonymizationRequestCommand(writer AnonymizationWriter) *InsertAnonymizationRequestCommand {
	return &InsertAnonymizationRequestCommand{writer: writer}
}

func (c *InsertAnonymizationRequestCommand) Execute(ctx context.Context, msg InsertAnonymizationRequestMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: anonymization writer is required")
	}
	correlationID, err := c.writer.InsertAnonymizationRequest(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, correlationID)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
