package core

import (
	"context"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const unknownTokenFailure = "Failed to retrieve a token. Unknown reason."

const operationGetToken = "get_token"

// TokenRepository requests access tokens from the security service using a
// fixed endpoint and credential. It holds no mutable state and is safe for
// concurrent use.
type TokenRepository struct {
	endpoint    ResolvedEndpoint
	credentials CredentialInfo
	service     TokenService
	telemetry   telemetry
	clock       Clock
}

func NewTokenRepository(endpoint ResolvedEndpoint, credentials CredentialInfo, service TokenService, opts ...Option) (*TokenRepository, error) {
	if endpoint.IsZero() {
		return nil, missingEndpointError("endpoint")
	}
	if credentials.IsZero() {
		return nil, invalidArgumentError("accessCredentials", "access credentials are required")
	}
	if service == nil {
		return nil, invalidArgumentError("tokenService", "a token service is required")
	}
	deps := buildRepositoryDependencies(opts)
	return &TokenRepository{
		endpoint:    endpoint,
		credentials: credentials,
		service:     service,
		telemetry: telemetry{
			logger:  deps.logger,
			metrics: deps.metricsRecorder,
		},
		clock: deps.clock,
	}, nil
}

func (r *TokenRepository) Endpoint() ResolvedEndpoint {
	if r == nil {
		return ResolvedEndpoint{}
	}
	return r.endpoint
}

// WithBinding returns a repository that talks to the same endpoint through a
// different binding. A nil binding returns r unchanged.
func (r *TokenRepository) WithBinding(binding *Binding) *TokenRepository {
	if r == nil || binding == nil {
		return r
	}
	out := *r
	out.endpoint = r.endpoint.WithBinding(binding)
	return &out
}

// DefaultTokenResult is the value reported when no answer was obtained.
func DefaultTokenResult() TokenResult {
	return TokenResult{
		StatusCode:  -1,
		Description: unknownTokenFailure,
	}
}

// GetToken blocks until the security service answers.
func (r *TokenRepository) GetToken(ctx context.Context, traceID uuid.UUID) (TokenResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return r.requestToken(ctx, traceID, r.callService)
}

// GetTokenAsync returns immediately; the reply channel receives exactly one
// value once the remote call completes, fails or ctx is done.
func (r *TokenRepository) GetTokenAsync(ctx context.Context, traceID uuid.UUID) <-chan TokenReply {
	if ctx == nil {
		ctx = context.Background()
	}
	reply := make(chan TokenReply, 1)
	go func() {
		defer close(reply)
		result, err := r.requestToken(ctx, traceID, r.awaitService)
		reply <- TokenReply{Result: result, Err: err}
	}()
	return reply
}

type tokenCall func(ctx context.Context, principal string, secret string) (TokenResult, error)

func (r *TokenRepository) callService(ctx context.Context, principal string, secret string) (TokenResult, error) {
	return r.service.RequestToken(ctx, r.endpoint, principal, secret)
}

// awaitService runs the remote call in its own goroutine so that a cancelled
// ctx releases the caller even when the service does not honour it.
func (r *TokenRepository) awaitService(ctx context.Context, principal string, secret string) (TokenResult, error) {
	done := make(chan TokenReply, 1)
	go func() {
		result, err := r.service.RequestToken(ctx, r.endpoint, principal, secret)
		done <- TokenReply{Result: result, Err: err}
	}()
	select {
	case <-ctx.Done():
		return DefaultTokenResult(), ctx.Err()
	case reply := <-done:
		return reply.Result, reply.Err
	}
}

func (r *TokenRepository) requestToken(ctx context.Context, traceID uuid.UUID, call tokenCall) (TokenResult, error) {
	if r == nil || r.service == nil {
		return DefaultTokenResult(), goerrors.New("core: token repository is not configured", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(ErrorInternal)
	}
	if traceID == uuid.Nil {
		traceID = uuid.New()
	}
	traceKey := traceID.String()
	fields := map[string]any{
		MetadataKeyTraceID: traceKey,
		"endpoint":         r.endpoint.Address(),
		"protocol":         string(r.endpoint.Protocol()),
		"binding":          r.endpoint.binding.Name,
	}
	if tag := r.endpoint.Environment(); tag != "" {
		fields["environment"] = string(tag)
	}
	r.telemetry.logInfo(ctx, "retrieving security info from security service", fields)

	startedAt := r.clock()
	result, err := r.invoke(ctx, call)
	elapsed := r.clock().Sub(startedAt)

	if err != nil {
		if callerCancelled(ctx) {
			err = cancelledError(err, map[string]any{MetadataKeyTraceID: traceKey})
		} else {
			err = repositoryFailure(err, traceKey)
		}
		r.telemetry.observeOperation(ctx, elapsed, operationGetToken, err, fields)
		return DefaultTokenResult(), err
	}

	fields[MetadataKeyStatusCode] = result.StatusCode
	r.telemetry.observeOperation(ctx, elapsed, operationGetToken, nil, fields)
	return result, nil
}

func (r *TokenRepository) invoke(ctx context.Context, call tokenCall) (result TokenResult, err error) {
	if ctx.Err() != nil {
		return DefaultTokenResult(), ctx.Err()
	}
	principal, secret, err := r.credentials.ResolvePlaintext()
	if err != nil {
		return DefaultTokenResult(), err
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			result = DefaultTokenResult()
			err = fmt.Errorf("core: token service panicked: %v", recovered)
		}
	}()
	return call(ctx, principal, secret)
}
