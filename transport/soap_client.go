package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/hashicorp/go-cleanhttp"
)

const KindSOAP = "soap"

const defaultSOAPResponseBodyLimit int64 = 1 << 20 // 1 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SOAPClient calls the RequestToken operation of the security service. The
// endpoint's binding decides the envelope version, timeout and body limit.
type SOAPClient struct {
	Client               HTTPDoer
	Namespace            string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

type SOAPOption func(*SOAPClient)

func WithNamespace(namespace string) SOAPOption {
	return func(c *SOAPClient) {
		if trimmed := strings.TrimSpace(namespace); trimmed != "" {
			c.Namespace = trimmed
		}
	}
}

func WithDefaultHeader(key string, value string) SOAPOption {
	return func(c *SOAPClient) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			c.DefaultHeaders[trimmed] = strings.TrimSpace(value)
		}
	}
}

func WithMaxResponseBodyBytes(limit int64) SOAPOption {
	return func(c *SOAPClient) {
		if limit > 0 {
			c.MaxResponseBodyBytes = limit
		}
	}
}

// NewSOAPClient builds a client on top of client, defaulting to a pooled
// cleanhttp client.
func NewSOAPClient(client HTTPDoer, opts ...SOAPOption) *SOAPClient {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	soap := &SOAPClient{
		Client:         client,
		Namespace:      DefaultServiceNamespace,
		DefaultHeaders: map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(soap)
		}
	}
	return soap
}

func (*SOAPClient) Kind() string {
	return KindSOAP
}

// RequestToken implements core.TokenService.
func (c *SOAPClient) RequestToken(ctx context.Context, endpoint core.ResolvedEndpoint, principal string, secret string) (core.TokenResult, error) {
	if c == nil || c.Client == nil {
		return core.TokenResult{}, transportError(
			"transport: soap client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindSOAP},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if endpoint.IsZero() {
		return core.TokenResult{}, transportError(
			"transport: endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindSOAP},
		)
	}

	binding := endpoint.Binding()
	protocol := endpoint.Protocol()
	namespace := c.Namespace
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultServiceNamespace
	}
	metadata := map[string]any{
		"adapter":  KindSOAP,
		"endpoint": endpoint.Address(),
		"protocol": string(protocol),
		"binding":  binding.Name,
	}

	payload, err := encodeRequestToken(protocol, namespace, principal, secret)
	if err != nil {
		return core.TokenResult{}, transportWrapError(err, goerrors.CategoryInternal, "transport: encode soap envelope", http.StatusInternalServerError, metadata)
	}

	requestCtx := ctx
	cancel := func() {}
	if binding.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, binding.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint.Address(), bytes.NewReader(payload))
	if err != nil {
		return core.TokenResult{}, transportWrapError(err, goerrors.CategoryBadInput, "transport: create http request", http.StatusBadRequest, metadata)
	}
	for _, headers := range []map[string]string{c.DefaultHeaders, binding.Headers, contentHeaders(protocol, namespace)} {
		for key, value := range headers {
			if strings.TrimSpace(key) == "" {
				continue
			}
			httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}

	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		return core.TokenResult{}, transportWrapError(err, goerrors.CategoryExternal, "transport: execute soap request", http.StatusBadGateway, metadata)
	}
	defer httpRes.Body.Close()

	limit := resolveResponseBodyLimit(binding.MaxResponseBytes, c.MaxResponseBodyBytes)
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return core.TokenResult{}, transportWrapError(err, goerrors.CategoryExternal, "transport: read response body", http.StatusBadGateway, withStatus(metadata, httpRes.StatusCode))
	}
	if int64(len(body)) > limit {
		return core.TokenResult{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			withStatus(metadata, httpRes.StatusCode),
		)
	}

	decoded, err := decodeRequestTokenResponse(body)
	if err != nil {
		if httpRes.StatusCode >= http.StatusBadRequest {
			return core.TokenResult{}, transportError(
				fmt.Sprintf("transport: security service returned http %d", httpRes.StatusCode),
				goerrors.CategoryExternal,
				http.StatusBadGateway,
				withStatus(metadata, httpRes.StatusCode),
			)
		}
		return core.TokenResult{}, transportWrapError(err, goerrors.CategoryExternal, "transport: decode soap envelope", http.StatusBadGateway, withStatus(metadata, httpRes.StatusCode))
	}
	if decoded.Fault != nil {
		fault := withStatus(metadata, httpRes.StatusCode)
		fault["fault_code"] = decoded.Fault.code()
		return core.TokenResult{}, goerrors.New("transport: soap fault: "+decoded.Fault.reason(), goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(ErrorSOAPFault).
			WithMetadata(fault)
	}
	if decoded.Response == nil || decoded.Response.Result == nil {
		return core.TokenResult{}, transportError(
			"transport: soap response is missing RequestTokenResult",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			withStatus(metadata, httpRes.StatusCode),
		)
	}

	result := decoded.Response.Result
	return core.TokenResult{
		Token:       strings.TrimSpace(result.Token),
		StatusCode:  result.MessageStatus,
		Description: strings.TrimSpace(result.MessageDescription),
	}, nil
}

func withStatus(metadata map[string]any, status int) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for key, value := range metadata {
		out[key] = value
	}
	out["status_code"] = status
	return out
}

// resolveResponseBodyLimit applies the tighter of the binding and client limits.
func resolveResponseBodyLimit(bindingLimit int64, clientLimit int64) int64 {
	switch {
	case bindingLimit > 0 && clientLimit > 0:
		return min(bindingLimit, clientLimit)
	case bindingLimit > 0:
		return bindingLimit
	case clientLimit > 0:
		return clientLimit
	default:
		return defaultSOAPResponseBodyLimit
	}
}

var _ core.TokenService = (*SOAPClient)(nil)
