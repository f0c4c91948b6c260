package core

import (
	"fmt"
	"strings"
	"time"
)

type EnvironmentConfig struct {
	Address  string `koanf:"address" mapstructure:"address"`
	Protocol string `koanf:"protocol" mapstructure:"protocol"`
}

type EndpointConfig struct {
	Environment string `koanf:"environment" mapstructure:"environment"`
	Address     string `koanf:"address" mapstructure:"address"`
	Protocol    string `koanf:"protocol" mapstructure:"protocol"`
	TimeoutMS   int    `koanf:"timeout_ms" mapstructure:"timeout_ms"`
}

type CredentialsConfig struct {
	Principal       string `koanf:"principal" mapstructure:"principal"`
	Secret          string `koanf:"secret" mapstructure:"secret"`
	Encrypted       bool   `koanf:"encrypted" mapstructure:"encrypted"`
	EncryptionKey   string `koanf:"encryption_key" mapstructure:"encryption_key"`
	EncryptionKeyID string `koanf:"encryption_key_id" mapstructure:"encryption_key_id"`
}

type RetryConfig struct {
	MaxAttempts      int `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int `koanf:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int `koanf:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

func (c RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMS) * time.Millisecond
}

func (c RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMS) * time.Millisecond
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type Config struct {
	ServiceName  string                       `koanf:"service_name" mapstructure:"service_name"`
	Environments map[string]EnvironmentConfig `koanf:"environments" mapstructure:"environments"`
	Endpoint     EndpointConfig               `koanf:"endpoint" mapstructure:"endpoint"`
	Credentials  CredentialsConfig            `koanf:"credentials" mapstructure:"credentials"`
	Retry        RetryConfig                  `koanf:"retry" mapstructure:"retry"`
	Database     DatabaseConfig               `koanf:"database" mapstructure:"database"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:  "soasecurity",
		Environments: map[string]EnvironmentConfig{},
		Endpoint: EndpointConfig{
			Protocol: string(ProtocolCurrent),
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMS: 200,
			MaxBackoffMS:     5000,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Endpoint.Environment) != "" && strings.TrimSpace(c.Endpoint.Address) != "" {
		return fmt.Errorf("core: endpoint.environment and endpoint.address are mutually exclusive")
	}
	if _, err := ParseProtocolVersion(c.Endpoint.Protocol); err != nil {
		return fmt.Errorf("core: endpoint.protocol is invalid: %w", err)
	}
	if c.Endpoint.TimeoutMS < 0 {
		return fmt.Errorf("core: endpoint.timeout_ms must be >= 0")
	}
	for name, entry := range c.Environments {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("core: environments require a non-empty tag")
		}
		if _, err := ParseProtocolVersion(entry.Protocol); err != nil {
			return fmt.Errorf("core: environments.%s.protocol is invalid: %w", name, err)
		}
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("core: retry.max_attempts must be >= 0")
	}
	if c.Retry.InitialBackoffMS < 0 || c.Retry.MaxBackoffMS < 0 {
		return fmt.Errorf("core: retry backoff values must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "postgres", "sqlite3", "sqlite":
	default:
		return fmt.Errorf("core: database.driver %q is not supported", c.Database.Driver)
	}
	return nil
}
