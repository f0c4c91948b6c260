package command

import (
	"github.com/goliatone/go-soasecurity/core"
)

const TypeInsertAnonymizationRequest = "soasecurity.command.anonymization.insert"

type InsertAnonymizationRequestMessage struct {
	Request core.AnonymizationRequest
}

func (InsertAnonymizationRequestMessage) Type() string { return TypeInsertAnonymizationRequest }

func (m InsertAnonymizationRequestMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid anonymization request")
}
