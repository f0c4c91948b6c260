package security

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/goliatone/go-soasecurity/core"
)

// EncryptString seals value and returns it in the single line text form
// stored in configuration files.
func EncryptString(ctx context.Context, provider core.SecretProvider, value string) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("security: secret provider is required")
	}
	if value == "" {
		return "", fmt.Errorf("security: value is required")
	}
	sealed, err := provider.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func DecryptString(ctx context.Context, provider core.SecretProvider, value string) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("security: secret provider is required")
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("security: decode encrypted value: %w", err)
	}
	plaintext, err := provider.Decrypt(ctx, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// NewDecryptor adapts provider to the capability consumed by encrypted
// credentials. Decryption runs detached from any request context.
func NewDecryptor(provider core.SecretProvider) (core.Decryptor, error) {
	if provider == nil {
		return nil, fmt.Errorf("security: secret provider is required")
	}
	return func(value string) (string, error) {
		return DecryptString(context.Background(), provider, value)
	}, nil
}
