package soasecurity

import (
	"context"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-soasecurity/core"
	"github.com/goliatone/go-soasecurity/migrations"
	"github.com/goliatone/go-soasecurity/security"
	sqlstore "github.com/goliatone/go-soasecurity/store/sql"
	"github.com/goliatone/go-soasecurity/transport"
	"github.com/uptrace/bun"
)

type SetupOption func(*setupOptions)

type setupOptions struct {
	repositoryOptions []core.Option
	tokenService      core.TokenService
	httpClient        transport.HTTPDoer
	soapOptions       []transport.SOAPOption
	secretProvider    core.SecretProvider
	catalog           core.EnvironmentCatalog
	binding           *core.Binding
}

func WithRepositoryOptions(opts ...Option) SetupOption {
	return func(o *setupOptions) {
		o.repositoryOptions = append(o.repositoryOptions, opts...)
	}
}

// WithTokenService replaces the SOAP transport.
func WithTokenService(service core.TokenService) SetupOption {
	return func(o *setupOptions) {
		o.tokenService = service
	}
}

func WithHTTPClient(client transport.HTTPDoer) SetupOption {
	return func(o *setupOptions) {
		o.httpClient = client
	}
}

func WithSOAPOptions(opts ...transport.SOAPOption) SetupOption {
	return func(o *setupOptions) {
		o.soapOptions = append(o.soapOptions, opts...)
	}
}

// WithSecretProvider decrypts encrypted credentials with provider instead of
// the app key named in the configuration.
func WithSecretProvider(provider core.SecretProvider) SetupOption {
	return func(o *setupOptions) {
		o.secretProvider = provider
	}
}

// WithEnvironmentCatalog replaces the catalog built from Config.Environments.
func WithEnvironmentCatalog(catalog core.EnvironmentCatalog) SetupOption {
	return func(o *setupOptions) {
		o.catalog = catalog
	}
}

// WithEndpointBinding takes precedence over endpoint.timeout_ms.
func WithEndpointBinding(binding core.Binding) SetupOption {
	return func(o *setupOptions) {
		o.binding = &binding
	}
}

// Setup builds a TokenRepository from cfg: endpoint, credentials, then the
// SOAP transport unless a token service is supplied.
func Setup(ctx context.Context, cfg Config, opts ...SetupOption) (*core.TokenRepository, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	settings := setupOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	catalog := settings.catalog
	if catalog == nil {
		catalog = core.NewEnvironmentCatalog(cfg.Environments)
	}
	endpoint, err := ResolveEndpoint(cfg.Endpoint, catalog, settings.binding)
	if err != nil {
		return nil, err
	}
	credentials, err := NewCredentials(cfg.Credentials, settings.secretProvider)
	if err != nil {
		return nil, err
	}

	service := settings.tokenService
	if service == nil {
		service = transport.NewSOAPClient(settings.httpClient, settings.soapOptions...)
	}
	return core.NewTokenRepository(endpoint, credentials, service, settings.repositoryOptions...)
}

// ResolveEndpoint resolves the configured address, or the environment tag
// through catalog when no address is set. A protocol declared by the catalog
// entry wins over endpoint.protocol.
func ResolveEndpoint(cfg core.EndpointConfig, catalog core.EnvironmentCatalog, binding *core.Binding) (core.ResolvedEndpoint, error) {
	protocol, err := core.ParseProtocolVersion(cfg.Protocol)
	if err != nil {
		return core.ResolvedEndpoint{}, err
	}
	if binding == nil && cfg.TimeoutMS > 0 {
		binding = &core.Binding{
			Name:    "config",
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		}
	}
	var options []core.EndpointOption
	if binding != nil {
		options = append(options, core.WithBinding(binding))
	}

	if strings.TrimSpace(cfg.Address) != "" {
		return core.ResolveString(cfg.Address, append(options, core.WithProtocolVersion(protocol))...)
	}
	tag := core.EnvironmentTag(cfg.Environment)
	if catalog != nil {
		if entry, ok := catalog.Lookup(tag); !ok || entry.Protocol == "" {
			options = append(options, core.WithProtocolVersion(protocol))
		}
	}
	return core.ResolveEnvironment(tag, catalog, options...)
}

// NewCredentials builds the configured credential. Encrypted values are
// opened with provider, or with an app key provider over
// credentials.encryption_key when provider is nil.
func NewCredentials(cfg core.CredentialsConfig, provider core.SecretProvider) (core.CredentialInfo, error) {
	if !cfg.Encrypted {
		return core.NewCredential(cfg.Principal, cfg.Secret)
	}
	if provider == nil {
		if strings.TrimSpace(cfg.EncryptionKey) == "" {
			return core.CredentialInfo{}, core.NewInvalidArgumentError("encryptionKey", "credentials.encryption_key is required for encrypted credentials")
		}
		appKey, err := security.NewAppKeySecretProviderFromString(cfg.EncryptionKey, security.WithKeyID(cfg.EncryptionKeyID))
		if err != nil {
			return core.CredentialInfo{}, err
		}
		provider = appKey
	}
	decrypt, err := security.NewDecryptor(provider)
	if err != nil {
		return core.CredentialInfo{}, err
	}
	return core.NewEncryptedCredential(cfg.Principal, cfg.Secret, decrypt)
}

// SetupAnonymization builds the anonymization repository over db with the
// retry budget and backoff of cfg.Retry.
func SetupAnonymization(db *bun.DB, cfg Config, opts ...sqlstore.AnonymizationOption) (*sqlstore.AnonymizationRepository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []sqlstore.AnonymizationOption{
		sqlstore.WithMaxAttempts(cfg.Retry.MaxAttempts),
		sqlstore.WithRetryOptions(core.WithBackOffIntervals(cfg.Retry.InitialBackoff(), cfg.Retry.MaxBackoff())),
	}
	return sqlstore.NewAnonymizationRepository(db, append(base, opts...)...)
}

// OpenAnonymizationStore opens cfg.Database, applies the embedded migrations
// for its driver and builds the anonymization repository over the handle.
// The caller owns the returned client and must close it.
func OpenAnonymizationStore(ctx context.Context, cfg Config, opts ...sqlstore.AnonymizationOption) (*sqlstore.AnonymizationRepository, *persistence.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	client, err := sqlstore.NewPersistenceClient(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(ctx, client, cfg.Database.Driver, GetMigrationsFS()); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	repository, err := SetupAnonymization(client.DB(), cfg, opts...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return repository, client, nil
}
