package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TokenResult is the security service answer for a single token request.
// A negative StatusCode denotes a failure reported by the service.
type TokenResult struct {
	Token       string
	StatusCode  int
	Description string
}

// Succeeded reports whether the service issued a token.
func (r TokenResult) Succeeded() bool {
	return r.StatusCode >= 0 && r.Token != ""
}

// TokenReply carries the outcome of an asynchronous token request.
type TokenReply struct {
	Result TokenResult
	Err    error
}

// TokenService performs the remote token call against a resolved endpoint.
type TokenService interface {
	RequestToken(ctx context.Context, endpoint ResolvedEndpoint, principal string, secret string) (TokenResult, error)
}

// TokenServiceFunc adapts a function to TokenService.
type TokenServiceFunc func(ctx context.Context, endpoint ResolvedEndpoint, principal string, secret string) (TokenResult, error)

func (f TokenServiceFunc) RequestToken(ctx context.Context, endpoint ResolvedEndpoint, principal string, secret string) (TokenResult, error) {
	return f(ctx, endpoint, principal, secret)
}

// Decryptor converts an encrypted credential value to plain text.
type Decryptor func(value string) (string, error)

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Clock is injected where elapsed time is measured.
type Clock func() time.Time
