package sqlstore

import (
	"time"

	"github.com/goliatone/go-soasecurity/core"
	"github.com/uptrace/bun"
)

type anonymizationRequestRecord struct {
	bun.BaseModel `bun:"table:anonymization_requests,alias:ar"`

	ID                      string    `bun:"id,pk"`
	CorrelationID           string    `bun:"correlation_id,notnull"`
	RequestID               int64     `bun:"request_id,notnull"`
	RequestorIdentity       string    `bun:"requestor_identity,notnull"`
	RequestorName           string    `bun:"requestor_name,notnull"`
	RequestApproverIdentity string    `bun:"request_approver_identity,notnull"`
	RequestApproverName     string    `bun:"request_approver_name,notnull"`
	CaseID                  string    `bun:"case_id,notnull"`
	LegacyID                int64     `bun:"legacy_id,notnull"`
	HouseholdID             int64     `bun:"household_id,notnull"`
	RequestDate             time.Time `bun:"request_date,notnull"`
	ApprovalDate            time.Time `bun:"approval_date,notnull"`
	CreatedAt               time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newAnonymizationRequestRecord(in core.AnonymizationRecord) *anonymizationRequestRecord {
	return &anonymizationRequestRecord{
		ID:                      in.ID.String(),
		CorrelationID:           in.CorrelationID.String(),
		RequestID:               in.Request.RequestID,
		RequestorIdentity:       in.Request.RequestorIdentity,
		RequestorName:           in.Request.RequestorName,
		RequestApproverIdentity: in.Request.RequestApproverIdentity,
		RequestApproverName:     in.Request.RequestApproverName,
		CaseID:                  in.Request.CaseID,
		LegacyID:                in.Request.LegacyID,
		HouseholdID:             in.Request.HouseholdID,
		RequestDate:             in.Request.RequestDate.UTC(),
		ApprovalDate:            in.Request.ApprovalDate.UTC(),
		CreatedAt:               in.CreatedAt,
	}
}

func (r *anonymizationRequestRecord) toDomain() core.AnonymizationRecord {
	if r == nil {
		return core.AnonymizationRecord{}
	}
	return core.AnonymizationRecord{
		ID:            parseUUID(r.ID),
		CorrelationID: parseUUID(r.CorrelationID),
		Request: core.AnonymizationRequest{
			RequestID:               r.RequestID,
			RequestorIdentity:       r.RequestorIdentity,
			RequestorName:           r.RequestorName,
			RequestApproverIdentity: r.RequestApproverIdentity,
			RequestApproverName:     r.RequestApproverName,
			CaseID:                  r.CaseID,
			LegacyID:                r.LegacyID,
			HouseholdID:             r.HouseholdID,
			RequestDate:             r.RequestDate.UTC(),
			ApprovalDate:            r.ApprovalDate.UTC(),
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
}
