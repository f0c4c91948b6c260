package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRetryInitialBackoff = 200 * time.Millisecond
	defaultRetryMaxBackoff     = 5 * time.Second
)

const operationExecuteCommand = "execute_command"

// ConnectionOpener acquires a connection scoped to one command attempt. The
// returned release func is always invoked, whatever the attempt outcome.
type ConnectionOpener[C any] interface {
	Open(ctx context.Context) (C, func() error, error)
}

// ConnectionOpenerFunc adapts a function to ConnectionOpener.
type ConnectionOpenerFunc[C any] func(ctx context.Context) (C, func() error, error)

func (f ConnectionOpenerFunc[C]) Open(ctx context.Context) (C, func() error, error) {
	return f(ctx)
}

// CommandResult mirrors the output parameters of a stored-procedure style
// write: a return status plus an optional message. Status < 0 is a business
// rule failure.
type CommandResult struct {
	Status  int
	Message string
	Payload any
}

// RetryableCommand is a state-changing call re-executed in full on transient
// failures. The command itself must be safe to replay.
type RetryableCommand[C any] struct {
	Name          string
	CorrelationID string
	// MaxAttempts is the total invocation budget; 0 and 1 both mean one try.
	MaxAttempts int
	Run         func(ctx context.Context, conn C) (CommandResult, error)
}

type CommandOutcome struct {
	Status   int
	Payload  any
	Attempts int
}

// TransientClassifier reports whether err is worth retrying.
type TransientClassifier func(err error) bool

type TransientRetryExecutor[C any] struct {
	opener     ConnectionOpener[C]
	classifier TransientClassifier
	newBackOff func() backoff.BackOff
	telemetry  telemetry
	clock      Clock
}

type executorBuilder struct {
	repositoryBuilder
	classifier TransientClassifier
	newBackOff func() backoff.BackOff
}

type ExecutorOption func(*executorBuilder)

// WithTransientClassifier replaces DefaultTransientClassifier.
func WithTransientClassifier(classifier TransientClassifier) ExecutorOption {
	return func(b *executorBuilder) {
		b.classifier = classifier
	}
}

// WithBackOff sets the policy used between attempts. The factory is called
// once per Execute so policies never share state across commands.
func WithBackOff(factory func() backoff.BackOff) ExecutorOption {
	return func(b *executorBuilder) {
		b.newBackOff = factory
	}
}

// WithBackOffIntervals configures the default exponential policy.
func WithBackOffIntervals(initial time.Duration, max time.Duration) ExecutorOption {
	return func(b *executorBuilder) {
		b.newBackOff = exponentialBackOff(initial, max)
	}
}

// WithExecutorOptions applies repository level options such as WithLogger.
func WithExecutorOptions(opts ...Option) ExecutorOption {
	return func(b *executorBuilder) {
		for _, opt := range opts {
			if opt != nil {
				opt(&b.repositoryBuilder)
			}
		}
	}
}

func NewTransientRetryExecutor[C any](opener ConnectionOpener[C], opts ...ExecutorOption) (*TransientRetryExecutor[C], error) {
	if opener == nil {
		return nil, invalidArgumentError("connectionOpener", "a connection opener is required")
	}
	builder := executorBuilder{}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	base := buildRepositoryDependencies([]Option{
		WithLogger(builder.logger),
		WithLoggerProvider(builder.loggerProvider),
		WithMetricsRecorder(builder.metricsRecorder),
		WithClock(builder.clock),
	})
	if builder.classifier == nil {
		builder.classifier = DefaultTransientClassifier
	}
	if builder.newBackOff == nil {
		builder.newBackOff = exponentialBackOff(defaultRetryInitialBackoff, defaultRetryMaxBackoff)
	}
	return &TransientRetryExecutor[C]{
		opener:     opener,
		classifier: builder.classifier,
		newBackOff: builder.newBackOff,
		telemetry: telemetry{
			logger:  base.logger,
			metrics: base.metricsRecorder,
		},
		clock: base.clock,
	}, nil
}

func exponentialBackOff(initial time.Duration, max time.Duration) func() backoff.BackOff {
	if initial <= 0 {
		initial = defaultRetryInitialBackoff
	}
	if max <= 0 {
		max = defaultRetryMaxBackoff
	}
	if max < initial {
		max = initial
	}
	return func() backoff.BackOff {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = initial
		policy.MaxInterval = max
		policy.MaxElapsedTime = 0
		policy.Reset()
		return policy
	}
}

// Execute runs cmd until it succeeds, fails deterministically, exhausts its
// attempt budget or ctx is cancelled.
func (e *TransientRetryExecutor[C]) Execute(ctx context.Context, cmd RetryableCommand[C]) (CommandOutcome, error) {
	if e == nil || e.opener == nil {
		return CommandOutcome{}, goerrors.New("core: retry executor is not configured", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(ErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cmd.Run == nil {
		return CommandOutcome{}, invalidArgumentError("command", "a command function is required")
	}
	if cmd.MaxAttempts < 0 {
		return CommandOutcome{}, invalidArgumentError("maxAttempts", "must be zero or greater")
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = "command"
	}
	budget := cmd.MaxAttempts
	if budget < 1 {
		budget = 1
	}
	fields := map[string]any{
		MetadataKeyCommand:       name,
		MetadataKeyCorrelationID: cmd.CorrelationID,
	}

	startedAt := e.clock()
	policy := e.newBackOff()
	var lastErr error
	attempt := 0
	for attempt < budget {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, startedAt, fields, attempt, CommandOutcome{Attempts: attempt}, cancelledError(err, cloneFields(fields)))
		}
		attempt++

		result, err := e.runAttempt(ctx, cmd.Run)
		if err == nil {
			if result.Status < 0 {
				message := strings.TrimSpace(result.Message)
				if message == "" {
					message = fmt.Sprintf("command %s returned status %d", name, result.Status)
				}
				failure := businessRuleFailure(message, name, cmd.CorrelationID, result.Status)
				return e.finish(ctx, startedAt, fields, attempt, CommandOutcome{Status: result.Status, Attempts: attempt}, failure)
			}
			outcome := CommandOutcome{Status: result.Status, Payload: result.Payload, Attempts: attempt}
			return e.finish(ctx, startedAt, fields, attempt, outcome, nil)
		}
		lastErr = err

		if callerCancelled(ctx) {
			return e.finish(ctx, startedAt, fields, attempt, CommandOutcome{Attempts: attempt}, cancelledError(err, cloneFields(fields)))
		}
		if !e.classifier(err) {
			failure := wrapCause(err, goerrors.CategoryExternal, fmt.Sprintf("core: %s failed", name)).
				WithCode(http.StatusBadGateway).
				WithTextCode(ErrorRepositoryFailure).
				WithMetadata(cloneFields(fields))
			return e.finish(ctx, startedAt, fields, attempt, CommandOutcome{Attempts: attempt}, failure)
		}
		if attempt == budget {
			break
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		e.telemetry.logWarn(ctx, "transient failure, retrying command", mergeFields(fields, map[string]any{
			MetadataKeyAttempts: attempt,
			"delay_ms":          delay.Milliseconds(),
			"error":             err.Error(),
		}))
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return e.finish(ctx, startedAt, fields, attempt, CommandOutcome{Attempts: attempt}, cancelledError(waitErr, cloneFields(fields)))
		}
	}

	exhausted := transientRetryExhausted(lastErr, name, cmd.CorrelationID, attempt)
	return e.finish(ctx, startedAt, fields, attempt, CommandOutcome{Attempts: attempt}, exhausted)
}

// runAttempt scopes one connection to one invocation.
func (e *TransientRetryExecutor[C]) runAttempt(ctx context.Context, run func(context.Context, C) (CommandResult, error)) (result CommandResult, err error) {
	conn, release, err := e.opener.Open(ctx)
	if err != nil {
		return CommandResult{}, err
	}
	defer func() {
		if release == nil {
			return
		}
		if releaseErr := release(); releaseErr != nil {
			e.telemetry.logWarn(ctx, "failed to release command connection", map[string]any{
				"error": releaseErr.Error(),
			})
		}
	}()
	defer func() {
		if recovered := recover(); recovered != nil {
			result = CommandResult{}
			err = fmt.Errorf("core: command panicked: %v", recovered)
		}
	}()
	return run(ctx, conn)
}

func (e *TransientRetryExecutor[C]) finish(
	ctx context.Context,
	startedAt time.Time,
	fields map[string]any,
	attempts int,
	outcome CommandOutcome,
	err error,
) (CommandOutcome, error) {
	fields = mergeFields(fields, map[string]any{MetadataKeyAttempts: attempts})
	if outcome.Status != 0 {
		fields[MetadataKeyStatusCode] = outcome.Status
	}
	e.telemetry.observeOperation(ctx, e.clock().Sub(startedAt), operationExecuteCommand, err, fields)
	return outcome, err
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func mergeFields(base map[string]any, extra map[string]any) map[string]any {
	out := cloneFields(base)
	for key, value := range extra {
		out[key] = value
	}
	return out
}
