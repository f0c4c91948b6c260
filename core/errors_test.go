package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestErrorConstructors_AssignStableCodes(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	cases := []struct {
		err      *goerrors.Error
		textCode string
		status   int
		category goerrors.Category
	}{
		{invalidArgumentError("principal", msgCredentialRequired), ErrorInvalidArgument, http.StatusBadRequest, goerrors.CategoryBadInput},
		{missingEndpointError("endpointAddress"), ErrorMissingEndpoint, http.StatusBadRequest, goerrors.CategoryBadInput},
		{invalidEndpointFormatError("endpointAddress", "relative"), ErrorInvalidEndpointFormat, http.StatusBadRequest, goerrors.CategoryBadInput},
		{missingTransportError(), ErrorMissingTransport, http.StatusBadRequest, goerrors.CategoryBadInput},
		{repositoryFailure(cause, "trace-1"), ErrorRepositoryFailure, http.StatusBadGateway, goerrors.CategoryExternal},
		{businessRuleFailure("duplicate", "insert", "corr-1", -1), ErrorBusinessRuleFailure, http.StatusUnprocessableEntity, goerrors.CategoryOperation},
		{transientRetryExhausted(cause, "insert", "corr-1", 3), ErrorTransientRetryExhausted, http.StatusServiceUnavailable, goerrors.CategoryExternal},
		{cancelledError(nil, nil), ErrorCancelled, http.StatusRequestTimeout, goerrors.CategoryOperation},
	}
	for _, tc := range cases {
		if tc.err.TextCode != tc.textCode {
			t.Fatalf("expected text code %q, got %q", tc.textCode, tc.err.TextCode)
		}
		if tc.err.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.textCode, tc.status, tc.err.Code)
		}
		if tc.err.Category != tc.category {
			t.Fatalf("%s: expected category %q, got %q", tc.textCode, tc.category, tc.err.Category)
		}
		if ErrorCode(fmt.Errorf("outer: %w", tc.err)) != tc.textCode {
			t.Fatalf("%s: expected ErrorCode to see through wrapping", tc.textCode)
		}
	}
}

func TestErrorPredicates_AreStrict(t *testing.T) {
	if IsCancelled(context.Canceled) {
		t.Fatalf("expected bare context errors not to be classified")
	}
	if ErrorCode(stderrors.New("plain")) != "" {
		t.Fatalf("expected empty code for foreign errors")
	}
	if ParameterName(nil) != "" {
		t.Fatalf("expected empty parameter for nil error")
	}
	wrapped := repositoryFailure(context.DeadlineExceeded, "trace-1")
	if IsCancelled(wrapped) {
		t.Fatalf("expected repository failure around a timeout not to be a cancellation")
	}
	if !stderrors.Is(wrapped, context.DeadlineExceeded) {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestRepositoryFailure_CarriesTraceID(t *testing.T) {
	err := repositoryFailure(stderrors.New("boom"), "trace-9")
	if err.Metadata[MetadataKeyTraceID] != "trace-9" {
		t.Fatalf("expected trace id metadata, got %#v", err.Metadata)
	}
}
