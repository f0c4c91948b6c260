package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

const loggerName = "soasecurity"

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type repositoryBuilder struct {
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	clock           Clock
}

type Option func(*repositoryBuilder)

func WithLogger(logger Logger) Option {
	return func(b *repositoryBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *repositoryBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *repositoryBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithClock(clock Clock) Option {
	return func(b *repositoryBuilder) {
		b.clock = clock
	}
}

func buildRepositoryDependencies(options []Option) repositoryBuilder {
	builder := repositoryBuilder{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	builder.logger = resolveLogger(builder.loggerProvider, builder.logger)
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}
	return builder
}

// resolveLogger applies provider > logger > nop precedence.
func resolveLogger(provider LoggerProvider, logger Logger) Logger {
	resolvedProvider, resolved := glog.Resolve(loggerName, provider, logger)
	resolved = glog.Ensure(resolved)
	if resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(loggerName); named != nil {
			resolved = glog.Ensure(named)
		}
	}
	return resolved
}

// LoadConfig loads configuration through provider and layers it between the
// defaults and the runtime overrides.
func LoadConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)

	if includeZero || len(cfg.Environments) > 0 {
		names := make([]string, 0, len(cfg.Environments))
		for name := range cfg.Environments {
			names = append(names, name)
		}
		sort.Strings(names)
		environments := make(map[string]any, len(names))
		for _, name := range names {
			entry := cfg.Environments[name]
			environments[name] = map[string]any{
				"address":  entry.Address,
				"protocol": entry.Protocol,
			}
		}
		layer["environments"] = environments
	}

	endpoint := map[string]any{}
	putString(endpoint, "environment", cfg.Endpoint.Environment, includeZero)
	putString(endpoint, "address", cfg.Endpoint.Address, includeZero)
	putString(endpoint, "protocol", cfg.Endpoint.Protocol, includeZero)
	putInt(endpoint, "timeout_ms", cfg.Endpoint.TimeoutMS, includeZero)
	putSection(layer, "endpoint", endpoint)

	credentials := map[string]any{}
	putString(credentials, "principal", cfg.Credentials.Principal, includeZero)
	putString(credentials, "secret", cfg.Credentials.Secret, includeZero)
	if includeZero || cfg.Credentials.Encrypted {
		credentials["encrypted"] = cfg.Credentials.Encrypted
	}
	putString(credentials, "encryption_key", cfg.Credentials.EncryptionKey, includeZero)
	putString(credentials, "encryption_key_id", cfg.Credentials.EncryptionKeyID, includeZero)
	putSection(layer, "credentials", credentials)

	retry := map[string]any{}
	putInt(retry, "max_attempts", cfg.Retry.MaxAttempts, includeZero)
	putInt(retry, "initial_backoff_ms", cfg.Retry.InitialBackoffMS, includeZero)
	putInt(retry, "max_backoff_ms", cfg.Retry.MaxBackoffMS, includeZero)
	putSection(layer, "retry", retry)

	database := map[string]any{}
	putString(database, "driver", cfg.Database.Driver, includeZero)
	putString(database, "dsn", cfg.Database.DSN, includeZero)
	putSection(layer, "database", database)

	return layer
}

func putString(target map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		target[key] = value
	}
}

func putInt(target map[string]any, key string, value int, includeZero bool) {
	if includeZero || value != 0 {
		target[key] = value
	}
}

func putSection(target map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		target[key] = section
	}
}
