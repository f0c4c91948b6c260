package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ProtocolVersion selects the SOAP envelope version spoken to the endpoint.
type ProtocolVersion string

const (
	ProtocolLegacy  ProtocolVersion = "soap11"
	ProtocolCurrent ProtocolVersion = "soap12"
)

const (
	defaultBindingTimeout          = 30 * time.Second
	defaultBindingMaxResponseBytes = 1 << 20 // 1 MiB
)

func (p ProtocolVersion) Valid() bool {
	return p == ProtocolLegacy || p == ProtocolCurrent
}

// ParseProtocolVersion accepts the canonical names plus the SOAP version
// numbers. An empty value resolves to ProtocolCurrent.
func ParseProtocolVersion(value string) (ProtocolVersion, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ProtocolCurrent), "1.2", "current":
		return ProtocolCurrent, nil
	case string(ProtocolLegacy), "1.1", "legacy":
		return ProtocolLegacy, nil
	default:
		return "", invalidArgumentError("endpointConfiguration", fmt.Sprintf("unsupported protocol version %q", value))
	}
}

// Binding describes how the channel to the endpoint is built.
type Binding struct {
	Name             string
	Protocol         ProtocolVersion
	Timeout          time.Duration
	MaxResponseBytes int64
	Headers          map[string]string
}

// DefaultBinding returns the binding used when no override is supplied.
func DefaultBinding(protocol ProtocolVersion) Binding {
	if !protocol.Valid() {
		protocol = ProtocolCurrent
	}
	return Binding{
		Name:             "default-" + string(protocol),
		Protocol:         protocol,
		Timeout:          defaultBindingTimeout,
		MaxResponseBytes: defaultBindingMaxResponseBytes,
		Headers:          map[string]string{},
	}
}

func (b Binding) normalized(protocol ProtocolVersion) Binding {
	out := b
	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		out.Name = "custom"
	}
	if !out.Protocol.Valid() {
		out.Protocol = protocol
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultBindingTimeout
	}
	if out.MaxResponseBytes <= 0 {
		out.MaxResponseBytes = defaultBindingMaxResponseBytes
	}
	headers := make(map[string]string, len(b.Headers))
	for key, value := range b.Headers {
		if key = strings.TrimSpace(key); key != "" {
			headers[key] = strings.TrimSpace(value)
		}
	}
	out.Headers = headers
	return out
}

// ResolvedEndpoint is a validated, immutable channel descriptor.
type ResolvedEndpoint struct {
	address     string
	protocol    ProtocolVersion
	binding     Binding
	overridden  bool
	environment EnvironmentTag
}

func (e ResolvedEndpoint) Address() string { return e.address }

func (e ResolvedEndpoint) Protocol() ProtocolVersion { return e.protocol }

func (e ResolvedEndpoint) Environment() EnvironmentTag { return e.environment }

// HasBindingOverride reports whether the binding was supplied by the caller
// rather than derived from the protocol version.
func (e ResolvedEndpoint) HasBindingOverride() bool { return e.overridden }

// Binding returns a copy of the effective binding.
func (e ResolvedEndpoint) Binding() Binding {
	out := e.binding
	out.Headers = make(map[string]string, len(e.binding.Headers))
	for key, value := range e.binding.Headers {
		out.Headers[key] = value
	}
	return out
}

func (e ResolvedEndpoint) IsZero() bool { return e.address == "" }

// WithBinding returns a copy of e using binding. A nil binding leaves e as is.
func (e ResolvedEndpoint) WithBinding(binding *Binding) ResolvedEndpoint {
	if binding == nil {
		return e
	}
	out := e
	out.binding = binding.normalized(e.protocol)
	out.protocol = out.binding.Protocol
	out.overridden = true
	return out
}

func (e ResolvedEndpoint) String() string {
	return fmt.Sprintf("%s (%s, %s)", e.address, e.protocol, e.binding.Name)
}

type EndpointOption func(*endpointSettings)

type endpointSettings struct {
	protocol    ProtocolVersion
	protocolSet bool
	binding     *Binding
	bindingSet  bool
}

// WithProtocolVersion overrides the default ProtocolCurrent.
func WithProtocolVersion(protocol ProtocolVersion) EndpointOption {
	return func(s *endpointSettings) {
		s.protocol = protocol
		s.protocolSet = true
	}
}

// WithBinding supplies a transport override. Passing nil is a MissingTransport
// failure, not a request for the default binding.
func WithBinding(binding *Binding) EndpointOption {
	return func(s *endpointSettings) {
		s.binding = binding
		s.bindingSet = true
	}
}

// ResolveEnvironment resolves tag through catalog.
func ResolveEnvironment(tag EnvironmentTag, catalog EnvironmentCatalog, opts ...EndpointOption) (ResolvedEndpoint, error) {
	const parameter = "environmentConfiguration"
	tag = tag.Normalize()
	if tag == "" {
		return ResolvedEndpoint{}, missingEndpointError(parameter)
	}
	if catalog == nil {
		return ResolvedEndpoint{}, invalidArgumentError("environmentCatalog", "an environment catalog is required to resolve environment tags")
	}
	entry, ok := catalog.Lookup(tag)
	if !ok || strings.TrimSpace(entry.Address) == "" {
		return ResolvedEndpoint{}, missingEndpointError(parameter)
	}
	settings := applyEndpointOptions(opts)
	if !settings.protocolSet && entry.Protocol != "" {
		settings.protocol = entry.Protocol
		settings.protocolSet = true
	}
	endpoint, err := resolveEndpoint(parameter, entry.Address, settings)
	if err != nil {
		return ResolvedEndpoint{}, err
	}
	endpoint.environment = tag
	return endpoint, nil
}

// ResolveURL resolves an already parsed address.
func ResolveURL(address *url.URL, opts ...EndpointOption) (ResolvedEndpoint, error) {
	const parameter = "endpointAddress"
	if address == nil {
		return ResolvedEndpoint{}, missingEndpointError(parameter)
	}
	raw := address.String()
	if strings.TrimSpace(raw) == "" {
		return ResolvedEndpoint{}, missingEndpointError(parameter)
	}
	if reason := rawComponentViolation(address); reason != "" {
		return ResolvedEndpoint{}, invalidEndpointFormatError(parameter, reason)
	}
	return resolveEndpoint(parameter, raw, applyEndpointOptions(opts))
}

// ResolveString resolves a raw address string.
func ResolveString(address string, opts ...EndpointOption) (ResolvedEndpoint, error) {
	const parameter = "endpointAddress"
	if strings.TrimSpace(address) == "" {
		return ResolvedEndpoint{}, missingEndpointError(parameter)
	}
	return resolveEndpoint(parameter, address, applyEndpointOptions(opts))
}

func applyEndpointOptions(opts []EndpointOption) endpointSettings {
	settings := endpointSettings{protocol: ProtocolCurrent}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&settings)
	}
	return settings
}

// resolveEndpoint is the single validation routine shared by every input
// form. Checks run in order: format, transport, protocol version. Presence is
// checked by the callers because each form has its own notion of "empty".
func resolveEndpoint(parameter string, raw string, settings endpointSettings) (ResolvedEndpoint, error) {
	address, err := validateEndpointAddress(parameter, raw)
	if err != nil {
		return ResolvedEndpoint{}, err
	}
	if settings.bindingSet && settings.binding == nil {
		return ResolvedEndpoint{}, missingTransportError()
	}

	protocol := settings.protocol
	if protocol == "" {
		protocol = ProtocolCurrent
	}
	if !protocol.Valid() {
		return ResolvedEndpoint{}, invalidArgumentError("endpointConfiguration", fmt.Sprintf("unsupported protocol version %q", protocol))
	}

	endpoint := ResolvedEndpoint{
		address:  address,
		protocol: protocol,
		binding:  DefaultBinding(protocol),
	}
	if settings.binding != nil {
		endpoint = endpoint.WithBinding(settings.binding)
	}
	return endpoint, nil
}

func validateEndpointAddress(parameter string, raw string) (string, error) {
	if reason := wellFormedViolation(raw); reason != "" {
		return "", invalidEndpointFormatError(parameter, reason)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", invalidEndpointFormatError(parameter, "unparseable address")
	}
	if !parsed.IsAbs() {
		return "", invalidEndpointFormatError(parameter, "address must be absolute")
	}
	if strings.EqualFold(parsed.Scheme, "file") {
		return "", invalidEndpointFormatError(parameter, "local file addresses are not allowed")
	}
	if parsed.Host == "" || parsed.Opaque != "" {
		return "", invalidEndpointFormatError(parameter, "address must name a host")
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String(), nil
}

// wellFormedViolation rejects addresses that parse but are not in their
// canonical escaped form, such as raw spaces in a path or query.
func wellFormedViolation(raw string) string {
	if raw != strings.TrimSpace(raw) {
		return "leading or trailing whitespace"
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c <= 0x20 || c == 0x7f:
			return "contains whitespace or control characters"
		case c >= 0x80:
			return "contains unescaped non-ASCII characters"
		case strings.IndexByte("\"<>\\^`{|}", c) >= 0:
			return fmt.Sprintf("contains unescaped character %q", c)
		case c == '%':
			if i+2 >= len(raw) || !isHexDigit(raw[i+1]) || !isHexDigit(raw[i+2]) {
				return "contains an invalid percent escape"
			}
		}
	}
	if strings.Count(raw, "#") > 1 {
		return "contains more than one fragment delimiter"
	}
	return ""
}

// rawComponentViolation checks the text a parsed URL kept verbatim. String
// re-escapes path and fragment, so a malformed original would otherwise pass.
func rawComponentViolation(address *url.URL) string {
	for _, raw := range []string{address.RawPath, address.RawFragment} {
		if raw == "" {
			continue
		}
		if reason := wellFormedViolation(raw); reason != "" {
			return reason
		}
	}
	return ""
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
