package core

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const minAnonymizationNameLength = 3

// AnonymizationRequest asks for the personal data of a household to be
// anonymized. It is persisted through the retry executor.
type AnonymizationRequest struct {
	RequestID               int64     `json:"request_id"`
	RequestorIdentity       string    `json:"requestor_identity"`
	RequestorName           string    `json:"requestor_name"`
	RequestApproverIdentity string    `json:"request_approver_identity"`
	RequestApproverName     string    `json:"request_approver_name"`
	CaseID                  string    `json:"case_id"`
	LegacyID                int64     `json:"legacy_id"`
	HouseholdID             int64     `json:"household_id"`
	RequestDate             time.Time `json:"request_date"`
	ApprovalDate            time.Time `json:"approval_date"`
}

func (r AnonymizationRequest) Validate() error {
	var fieldErrors []goerrors.FieldError
	positive := func(field string, value int64) {
		if value < 1 {
			fieldErrors = append(fieldErrors, goerrors.FieldError{Field: field, Message: "must be 1 or greater", Value: value})
		}
	}
	named := func(field string, value string) {
		if len(strings.TrimSpace(value)) < minAnonymizationNameLength {
			fieldErrors = append(fieldErrors, goerrors.FieldError{Field: field, Message: "must be at least 3 characters"})
		}
	}

	positive("request_id", r.RequestID)
	named("requestor_identity", r.RequestorIdentity)
	named("requestor_name", r.RequestorName)
	named("request_approver_identity", r.RequestApproverIdentity)
	named("request_approver_name", r.RequestApproverName)
	named("case_id", r.CaseID)
	positive("legacy_id", r.LegacyID)
	positive("household_id", r.HouseholdID)
	if r.RequestDate.IsZero() {
		fieldErrors = append(fieldErrors, goerrors.FieldError{Field: "request_date", Message: "is required"})
	}
	if r.ApprovalDate.IsZero() {
		fieldErrors = append(fieldErrors, goerrors.FieldError{Field: "approval_date", Message: "is required"})
	} else if !r.RequestDate.IsZero() && r.ApprovalDate.Before(r.RequestDate) {
		fieldErrors = append(fieldErrors, goerrors.FieldError{Field: "approval_date", Message: "must not precede request_date"})
	}

	if len(fieldErrors) == 0 {
		return nil
	}
	return goerrors.NewValidation("core: invalid anonymization request", fieldErrors...).
		WithTextCode(ErrorInvalidArgument).
		WithMetadata(map[string]any{MetadataKeyParameter: "anonymizationRequest"})
}

// AnonymizationRecord is the persisted form of a request, keyed by the
// correlation id handed back to the caller.
type AnonymizationRecord struct {
	ID            uuid.UUID
	CorrelationID uuid.UUID
	Request       AnonymizationRequest
	CreatedAt     time.Time
}

// NewAnonymizationRecord assigns identifiers to a validated request. A nil
// correlationID is replaced by a fresh one.
func NewAnonymizationRecord(req AnonymizationRequest, correlationID uuid.UUID, now time.Time) (AnonymizationRecord, error) {
	if err := req.Validate(); err != nil {
		return AnonymizationRecord{}, err
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	req.RequestorIdentity = strings.TrimSpace(req.RequestorIdentity)
	req.RequestorName = strings.TrimSpace(req.RequestorName)
	req.RequestApproverIdentity = strings.TrimSpace(req.RequestApproverIdentity)
	req.RequestApproverName = strings.TrimSpace(req.RequestApproverName)
	req.CaseID = strings.TrimSpace(req.CaseID)
	return AnonymizationRecord{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Request:       req,
		CreatedAt:     now.UTC(),
	}, nil
}
