package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const insertAnonymizationRequestCommand = "insert_anonymization_request"

const (
	statusReplayed = 0
	statusInserted = 1
	statusConflict = -1
)

// AnonymizationRepository persists anonymization requests through a
// TransientRetryExecutor. The insert is keyed on request_id so a replayed
// attempt for the same correlation id is reported as success.
type AnonymizationRepository struct {
	db          *bun.DB
	repo        repository.Repository[*anonymizationRequestRecord]
	executor    *core.TransientRetryExecutor[bun.IDB]
	maxAttempts int
	now         func() time.Time
}

type anonymizationSettings struct {
	opener      core.ConnectionOpener[bun.IDB]
	maxAttempts int
	now         func() time.Time
	executor    []core.ExecutorOption
}

type AnonymizationOption func(*anonymizationSettings)

// WithMaxAttempts sets the total attempt budget per insert.
func WithMaxAttempts(attempts int) AnonymizationOption {
	return func(s *anonymizationSettings) {
		s.maxAttempts = attempts
	}
}

func WithConnectionOpener(opener core.ConnectionOpener[bun.IDB]) AnonymizationOption {
	return func(s *anonymizationSettings) {
		if opener != nil {
			s.opener = opener
		}
	}
}

func WithNow(now func() time.Time) AnonymizationOption {
	return func(s *anonymizationSettings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetryOptions forwards options to the underlying executor. The sql
// transient classifier is installed first so callers may override it.
func WithRetryOptions(opts ...core.ExecutorOption) AnonymizationOption {
	return func(s *anonymizationSettings) {
		s.executor = append(s.executor, opts...)
	}
}

func NewAnonymizationRepository(db *bun.DB, opts ...AnonymizationOption) (*AnonymizationRepository, error) {
	if db == nil {
		return nil, core.NewInvalidArgumentError("db", "sqlstore: bun db is required")
	}
	settings := anonymizationSettings{
		maxAttempts: core.DefaultConfig().Retry.MaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	if settings.maxAttempts < 0 {
		return nil, core.NewInvalidArgumentError("maxAttempts", "sqlstore: max attempts must be >= 0")
	}
	if settings.opener == nil {
		opener, err := NewConnectionOpener(db)
		if err != nil {
			return nil, err
		}
		settings.opener = opener
	}

	repo := repository.NewRepository[*anonymizationRequestRecord](db, anonymizationRequestHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid anonymization repository wiring: %w", err)
		}
	}

	executorOpts := append([]core.ExecutorOption{core.WithTransientClassifier(TransientClassifier())}, settings.executor...)
	executor, err := core.NewTransientRetryExecutor[bun.IDB](settings.opener, executorOpts...)
	if err != nil {
		return nil, err
	}
	return &AnonymizationRepository{
		db:          db,
		repo:        repo,
		executor:    executor,
		maxAttempts: settings.maxAttempts,
		now:         settings.now,
	}, nil
}

// InsertAnonymizationRequest validates req, records it and returns the
// correlation id assigned to it.
func (r *AnonymizationRepository) InsertAnonymizationRequest(ctx context.Context, req core.AnonymizationRequest) (uuid.UUID, error) {
	if r == nil || r.executor == nil {
		return uuid.Nil, core.NewInternalError("sqlstore: anonymization repository is not configured")
	}
	record, err := core.NewAnonymizationRecord(req, uuid.Nil, r.now())
	if err != nil {
		return uuid.Nil, err
	}
	if err := r.InsertAnonymizationRecord(ctx, record); err != nil {
		return uuid.Nil, err
	}
	return record.CorrelationID, nil
}

// InsertAnonymizationRecord stores an already identified record. Inserting
// the same record twice is a no-op; reusing its request id under another
// correlation id is a business rule failure.
func (r *AnonymizationRepository) InsertAnonymizationRecord(ctx context.Context, record core.AnonymizationRecord) error {
	if r == nil || r.executor == nil {
		return core.NewInternalError("sqlstore: anonymization repository is not configured")
	}
	if record.ID == uuid.Nil || record.CorrelationID == uuid.Nil {
		return core.NewInvalidArgumentError("anonymizationRecord", "sqlstore: anonymization record requires id and correlation id")
	}
	_, err := r.executor.Execute(ctx, core.RetryableCommand[bun.IDB]{
		Name:          insertAnonymizationRequestCommand,
		CorrelationID: record.CorrelationID.String(),
		MaxAttempts:   r.maxAttempts,
		Run: func(ctx context.Context, conn bun.IDB) (core.CommandResult, error) {
			return r.insertRecord(ctx, conn, record)
		},
	})
	return err
}

func (r *AnonymizationRepository) insertRecord(ctx context.Context, conn bun.IDB, record core.AnonymizationRecord) (core.CommandResult, error) {
	result := core.CommandResult{}
	err := conn.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &anonymizationRequestRecord{}
		lookupErr := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.request_id = ?", record.Request.RequestID).
			Limit(1).
			Scan(ctx)
		switch {
		case lookupErr == nil:
			if existing.CorrelationID == record.CorrelationID.String() {
				result = core.CommandResult{Status: statusReplayed, Payload: record.CorrelationID}
				return nil
			}
			result = core.CommandResult{
				Status:  statusConflict,
				Message: fmt.Sprintf("anonymization request %d is already registered", record.Request.RequestID),
			}
			return nil
		case !errors.Is(lookupErr, sql.ErrNoRows):
			return lookupErr
		}

		if _, createErr := r.repo.CreateTx(ctx, tx, newAnonymizationRequestRecord(record)); createErr != nil {
			return createErr
		}
		result = core.CommandResult{Status: statusInserted, Payload: record.CorrelationID}
		return nil
	})
	if err != nil {
		return core.CommandResult{}, err
	}
	return result, nil
}

func (r *AnonymizationRepository) GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) (core.AnonymizationRecord, error) {
	if r == nil || r.repo == nil {
		return core.AnonymizationRecord{}, core.NewInternalError("sqlstore: anonymization repository is not configured")
	}
	records, _, err := r.repo.List(ctx,
		repository.SelectBy("correlation_id", "=", correlationID.String()),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.AnonymizationRecord{}, err
	}
	if len(records) == 0 {
		return core.AnonymizationRecord{}, fmt.Errorf("sqlstore: anonymization request not found for correlation %q", correlationID)
	}
	return records[0].toDomain(), nil
}

func (r *AnonymizationRepository) CountByRequestID(ctx context.Context, requestID int64) (int, error) {
	if r == nil || r.db == nil {
		return 0, core.NewInternalError("sqlstore: anonymization repository is not configured")
	}
	return r.db.NewSelect().
		Model((*anonymizationRequestRecord)(nil)).
		Where("?TableAlias.request_id = ?", requestID).
		Count(ctx)
}
