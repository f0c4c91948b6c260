package transport

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/google/uuid"
)

const soap12Success = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <RequestTokenResponse xmlns="http://tempuri.org/">
      <RequestTokenResult>
        <Token>tok-123</Token>
        <MessageStatus>0</MessageStatus>
        <MessageDescription>Success</MessageDescription>
      </RequestTokenResult>
    </RequestTokenResponse>
  </soap:Body>
</soap:Envelope>`

const soap11Denied = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <RequestTokenResponse xmlns="http://tempuri.org/">
      <RequestTokenResult>
        <Token></Token>
        <MessageStatus>-2</MessageStatus>
        <MessageDescription>Invalid user or password</MessageDescription>
      </RequestTokenResult>
    </RequestTokenResponse>
  </soap:Body>
</soap:Envelope>`

const soap12Fault = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <soap:Fault>
      <soap:Code><soap:Value>soap:Receiver</soap:Value></soap:Code>
      <soap:Reason><soap:Text xml:lang="en">Server was unable to process request.</soap:Text></soap:Reason>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

const soap11Fault = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Client</faultcode>
      <faultstring>Missing user</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

type capturedRequest struct {
	method  string
	headers http.Header
	body    string
}

type soapServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
	delay    time.Duration
}

func (s *soapServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, capturedRequest{method: r.Method, headers: r.Header.Clone(), body: string(body)})
		status, response, delay := s.status, s.body, s.delay
		s.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	})
}

func (s *soapServer) last(t *testing.T) capturedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatalf("expected a request to reach the server")
	}
	return s.requests[len(s.requests)-1]
}

func startSOAPServer(t *testing.T, fake *soapServer) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return server
}

func resolve(t *testing.T, address string, opts ...core.EndpointOption) core.ResolvedEndpoint {
	t.Helper()
	endpoint, err := core.ResolveString(address, opts...)
	if err != nil {
		t.Fatalf("resolve endpoint: %v", err)
	}
	return endpoint
}

func TestSOAPClient_RequestTokenSOAP12(t *testing.T) {
	fake := &soapServer{body: soap12Success}
	server := startSOAPServer(t, fake)
	client := NewSOAPClient(server.Client(), WithDefaultHeader("X-Client", "soasecurity"))

	result, err := client.RequestToken(context.Background(), resolve(t, server.URL+"/SecurityManagement.asmx"), "svc<user>", "p&ss")
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	if result.Token != "tok-123" || result.StatusCode != 0 || result.Description != "Success" {
		t.Fatalf("unexpected result %#v", result)
	}

	req := fake.last(t)
	if req.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", req.method)
	}
	contentType := req.headers.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/soap+xml") || !strings.Contains(contentType, `action="http://tempuri.org/RequestToken"`) {
		t.Fatalf("unexpected soap 1.2 content type %q", contentType)
	}
	if req.headers.Get("SOAPAction") != "" {
		t.Fatalf("expected no SOAPAction header for soap 1.2")
	}
	if req.headers.Get("X-Client") != "soasecurity" {
		t.Fatalf("expected default header to be sent")
	}

	var envelope struct {
		XMLName xml.Name
		Body    struct {
			Call struct {
				XMLName  xml.Name
				User     string `xml:"user"`
				Password string `xml:"password"`
			} `xml:"RequestToken"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal([]byte(req.body), &envelope); err != nil {
		t.Fatalf("decode request envelope: %v", err)
	}
	if envelope.XMLName.Space != soap12EnvelopeNamespace {
		t.Fatalf("expected soap 1.2 envelope namespace, got %q", envelope.XMLName.Space)
	}
	if envelope.Body.Call.XMLName.Space != DefaultServiceNamespace {
		t.Fatalf("expected service namespace, got %q", envelope.Body.Call.XMLName.Space)
	}
	if envelope.Body.Call.User != "svc<user>" || envelope.Body.Call.Password != "p&ss" {
		t.Fatalf("expected escaped credentials to round trip, got %#v", envelope.Body.Call)
	}
}

func TestSOAPClient_RequestTokenSOAP11(t *testing.T) {
	fake := &soapServer{body: soap11Denied}
	server := startSOAPServer(t, fake)
	client := NewSOAPClient(server.Client(), WithNamespace("http://fi.ecm/security/"))

	endpoint := resolve(t, server.URL, core.WithProtocolVersion(core.ProtocolLegacy))
	result, err := client.RequestToken(context.Background(), endpoint, "user", "wrong")
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	if result.Succeeded() || result.StatusCode != -2 || result.Description != "Invalid user or password" {
		t.Fatalf("unexpected result %#v", result)
	}

	req := fake.last(t)
	if got := req.headers.Get("Content-Type"); !strings.HasPrefix(got, "text/xml") {
		t.Fatalf("unexpected soap 1.1 content type %q", got)
	}
	if got := req.headers.Get("SOAPAction"); got != `"http://fi.ecm/security/RequestToken"` {
		t.Fatalf("unexpected SOAPAction %q", got)
	}
	if !strings.Contains(req.body, soap11EnvelopeNamespace) {
		t.Fatalf("expected soap 1.1 envelope namespace in body")
	}
}

func TestSOAPClient_BindingHeadersAndTimeout(t *testing.T) {
	fake := &soapServer{body: soap12Success, delay: time.Second}
	server := startSOAPServer(t, fake)
	client := NewSOAPClient(server.Client())

	endpoint := resolve(t, server.URL, core.WithBinding(&core.Binding{
		Name:    "fast",
		Timeout: 50 * time.Millisecond,
		Headers: map[string]string{"X-Binding": "fast"},
	}))
	_, err := client.RequestToken(context.Background(), endpoint, "user", "secret")
	if err == nil {
		t.Fatalf("expected binding timeout to abort the call")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
	if got := fake.last(t).headers.Get("X-Binding"); got != "fast" {
		t.Fatalf("expected binding header, got %q", got)
	}
}

func TestSOAPClient_Faults(t *testing.T) {
	for name, body := range map[string]string{"soap12": soap12Fault, "soap11": soap11Fault} {
		t.Run(name, func(t *testing.T) {
			fake := &soapServer{status: http.StatusInternalServerError, body: body}
			server := startSOAPServer(t, fake)
			client := NewSOAPClient(server.Client())

			_, err := client.RequestToken(context.Background(), resolve(t, server.URL), "user", "secret")
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope, got %T", err)
			}
			if rich.TextCode != ErrorSOAPFault {
				t.Fatalf("expected soap fault text code, got %q", rich.TextCode)
			}
			if rich.Metadata["fault_code"] == "" {
				t.Fatalf("expected fault code metadata")
			}
		})
	}
}

func TestSOAPClient_HTTPErrorWithoutEnvelope(t *testing.T) {
	fake := &soapServer{status: http.StatusServiceUnavailable, body: "maintenance"}
	server := startSOAPServer(t, fake)
	client := NewSOAPClient(server.Client())

	_, err := client.RequestToken(context.Background(), resolve(t, server.URL), "user", "secret")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != ErrorTransportFailure || rich.Metadata["status_code"] != http.StatusServiceUnavailable {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSOAPClient_ResponseLimitReturnsRichError(t *testing.T) {
	fake := &soapServer{body: soap12Success}
	server := startSOAPServer(t, fake)
	client := NewSOAPClient(server.Client(), WithMaxResponseBodyBytes(16))

	_, err := client.RequestToken(context.Background(), resolve(t, server.URL), "user", "secret")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestSOAPClient_MissingResult(t *testing.T) {
	fake := &soapServer{body: `<Envelope><Body><Other/></Body></Envelope>`}
	server := startSOAPServer(t, fake)
	client := NewSOAPClient(server.Client())
	if _, err := client.RequestToken(context.Background(), resolve(t, server.URL), "user", "secret"); err == nil {
		t.Fatalf("expected missing result error")
	}
}

func TestSOAPClient_NilReturnsRichError(t *testing.T) {
	var client *SOAPClient
	_, err := client.RequestToken(context.Background(), core.ResolvedEndpoint{}, "user", "secret")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != ErrorTransportInternal {
		t.Fatalf("expected %q text code, got %q", ErrorTransportInternal, rich.TextCode)
	}
}

func TestSOAPClient_DefaultsToPooledClient(t *testing.T) {
	client := NewSOAPClient(nil)
	if client.Client == nil {
		t.Fatalf("expected default http client")
	}
	if client.Kind() != KindSOAP {
		t.Fatalf("unexpected kind %q", client.Kind())
	}
}

func TestSOAPClient_DrivesTokenRepository(t *testing.T) {
	fake := &soapServer{body: soap12Success}
	server := startSOAPServer(t, fake)

	credential, err := core.NewCredential("svc-account", "hunter2")
	if err != nil {
		t.Fatalf("new credential: %v", err)
	}
	repo, err := core.NewTokenRepository(resolve(t, server.URL), credential, NewSOAPClient(server.Client()))
	if err != nil {
		t.Fatalf("new token repository: %v", err)
	}
	reply := <-repo.GetTokenAsync(context.Background(), uuid.New())
	if reply.Err != nil {
		t.Fatalf("get token async: %v", reply.Err)
	}
	if reply.Result.Token != "tok-123" {
		t.Fatalf("unexpected token %q", reply.Result.Token)
	}
}

func TestSOAPClient_FaultReachesRepositoryCaller(t *testing.T) {
	fake := &soapServer{status: http.StatusInternalServerError, body: soap12Fault}
	server := startSOAPServer(t, fake)

	credential, err := core.NewCredential("svc-account", "hunter2")
	if err != nil {
		t.Fatalf("new credential: %v", err)
	}
	repo, err := core.NewTokenRepository(resolve(t, server.URL), credential, NewSOAPClient(server.Client()))
	if err != nil {
		t.Fatalf("new token repository: %v", err)
	}

	_, err = repo.GetToken(context.Background(), uuid.New())
	if !core.IsRepositoryFailure(err) {
		t.Fatalf("expected repository failure, got %v", err)
	}
	var cause *goerrors.Error
	if !goerrors.As(errors.Unwrap(err), &cause) {
		t.Fatalf("expected transport error under the repository failure, got %v", errors.Unwrap(err))
	}
	if cause.TextCode != ErrorSOAPFault || cause.Metadata["fault_code"] == "" {
		t.Fatalf("expected soap fault cause, got %q %#v", cause.TextCode, cause.Metadata)
	}
}
