package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorInvalidArgument         = "SECURITY_INVALID_ARGUMENT"
	ErrorMissingEndpoint         = "SECURITY_MISSING_ENDPOINT"
	ErrorInvalidEndpointFormat   = "SECURITY_INVALID_ENDPOINT_FORMAT"
	ErrorMissingTransport        = "SECURITY_MISSING_TRANSPORT"
	ErrorRepositoryFailure       = "SECURITY_REPOSITORY_FAILURE"
	ErrorBusinessRuleFailure     = "SECURITY_BUSINESS_RULE_FAILURE"
	ErrorTransientRetryExhausted = "SECURITY_TRANSIENT_RETRY_EXHAUSTED"
	ErrorCancelled               = "SECURITY_CANCELLED"
	ErrorInternal                = "SECURITY_INTERNAL_ERROR"
)

const (
	MetadataKeyParameter     = "parameter"
	MetadataKeyTraceID       = "trace_id"
	MetadataKeyCorrelationID = "correlation_id"
	MetadataKeyCommand       = "command"
	MetadataKeyAttempts      = "attempts"
	MetadataKeyStatusCode    = "status_code"
)

const (
	msgCredentialRequired = "the parameter is required to connect to the repository"
	msgDecryptorRequired  = "the parameter is required to convert the security credentials to plain text values"
	msgEndpointRequired   = "repository endpoint is required"
	msgEndpointFormat     = "the repository endpoint is not in the correct format"
	msgBindingRequired    = "the repository binding is required"
	msgRepositoryFailed   = "repository execution failed"
)

func invalidArgumentError(parameter string, message string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("core: %s: %s", parameter, message), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorInvalidArgument).
		WithMetadata(map[string]any{MetadataKeyParameter: parameter})
}

// NewInvalidArgumentError reports malformed constructor input for parameter.
func NewInvalidArgumentError(parameter string, message string) error {
	return invalidArgumentError(parameter, message)
}

// NewInternalError reports a component used without being constructed.
func NewInternalError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal)
}

func missingEndpointError(parameter string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("core: %s: %s", parameter, msgEndpointRequired), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorMissingEndpoint).
		WithMetadata(map[string]any{MetadataKeyParameter: parameter})
}

func invalidEndpointFormatError(parameter string, reason string) *goerrors.Error {
	message := fmt.Sprintf("core: %s: %s", parameter, msgEndpointFormat)
	if reason = strings.TrimSpace(reason); reason != "" {
		message += " (" + reason + ")"
	}
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorInvalidEndpointFormat).
		WithMetadata(map[string]any{MetadataKeyParameter: parameter})
}

func missingTransportError() *goerrors.Error {
	return goerrors.New("core: binding: "+msgBindingRequired, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorMissingTransport).
		WithMetadata(map[string]any{MetadataKeyParameter: "binding"})
}

func repositoryFailure(cause error, traceID string) *goerrors.Error {
	return wrapCause(cause, goerrors.CategoryExternal, "core: "+msgRepositoryFailed).
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorRepositoryFailure).
		WithMetadata(map[string]any{MetadataKeyTraceID: traceID})
}

func businessRuleFailure(message string, command string, correlationID string, status int) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryOperation).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(ErrorBusinessRuleFailure).
		WithMetadata(map[string]any{
			MetadataKeyCommand:       command,
			MetadataKeyCorrelationID: correlationID,
			MetadataKeyStatusCode:    status,
		})
}

func transientRetryExhausted(cause error, command string, correlationID string, attempts int) *goerrors.Error {
	return wrapCause(cause, goerrors.CategoryExternal, fmt.Sprintf("core: %s: transient retry budget exhausted after %d attempt(s)", command, attempts)).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ErrorTransientRetryExhausted).
		WithMetadata(map[string]any{
			MetadataKeyCommand:       command,
			MetadataKeyCorrelationID: correlationID,
			MetadataKeyAttempts:      attempts,
		})
}

func cancelledError(cause error, metadata map[string]any) *goerrors.Error {
	if cause == nil {
		cause = context.Canceled
	}
	err := wrapCause(cause, goerrors.CategoryOperation, "core: operation cancelled").
		WithCode(http.StatusRequestTimeout).
		WithTextCode(ErrorCancelled)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// wrapCause chains cause as the Source of a new error. goerrors.Wrap clones a
// *goerrors.Error source rather than chaining it.
func wrapCause(cause error, category goerrors.Category, message string) *goerrors.Error {
	err := goerrors.New(message, category)
	err.Source = cause
	return err
}

// ErrorCode returns the text code of a security error, or "" for foreign errors.
func ErrorCode(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ""
	}
	return richErr.TextCode
}

// ParameterName returns the offending parameter recorded on a validation error.
func ParameterName(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ""
	}
	value, _ := richErr.Metadata[MetadataKeyParameter].(string)
	return value
}

func IsInvalidArgument(err error) bool { return ErrorCode(err) == ErrorInvalidArgument }

func IsMissingEndpoint(err error) bool { return ErrorCode(err) == ErrorMissingEndpoint }

func IsInvalidEndpointFormat(err error) bool { return ErrorCode(err) == ErrorInvalidEndpointFormat }

func IsMissingTransport(err error) bool { return ErrorCode(err) == ErrorMissingTransport }

func IsRepositoryFailure(err error) bool { return ErrorCode(err) == ErrorRepositoryFailure }

func IsBusinessRuleFailure(err error) bool { return ErrorCode(err) == ErrorBusinessRuleFailure }

func IsTransientRetryExhausted(err error) bool {
	return ErrorCode(err) == ErrorTransientRetryExhausted
}

func IsCancelled(err error) bool { return ErrorCode(err) == ErrorCancelled }

// callerCancelled distinguishes the caller's own cancellation from timeouts
// raised further down the stack.
func callerCancelled(ctx context.Context) bool {
	return ctx != nil && ctx.Err() != nil
}
