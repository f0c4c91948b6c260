package soasecurity

import (
	"context"

	"github.com/goliatone/go-soasecurity/core"
)

type Config = core.Config

type EnvironmentConfig = core.EnvironmentConfig
type EndpointConfig = core.EndpointConfig
type CredentialsConfig = core.CredentialsConfig
type RetryConfig = core.RetryConfig
type DatabaseConfig = core.DatabaseConfig

type Option = core.Option

type TokenRepository = core.TokenRepository
type TokenResult = core.TokenResult
type TokenReply = core.TokenReply
type TokenService = core.TokenService

type CredentialInfo = core.CredentialInfo
type ResolvedEndpoint = core.ResolvedEndpoint
type Binding = core.Binding
type ProtocolVersion = core.ProtocolVersion
type EnvironmentTag = core.EnvironmentTag
type EnvironmentCatalog = core.EnvironmentCatalog

type AnonymizationRequest = core.AnonymizationRequest
type AnonymizationRecord = core.AnonymizationRecord

const (
	ProtocolLegacy  = core.ProtocolLegacy
	ProtocolCurrent = core.ProtocolCurrent
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig layers provider output between the defaults and runtime.
func LoadConfig(ctx context.Context, runtime Config, provider core.ConfigProvider, resolver core.OptionsResolver) (Config, error) {
	return core.LoadConfig(ctx, runtime, provider, resolver)
}
