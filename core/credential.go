package core

import (
	"fmt"
	"strings"
)

// credentialMode is the closed set of credential encodings. A credential is
// either plaintext or encrypted together with the capability to decrypt it.
type credentialMode interface {
	reveal(value string) (string, error)
	encrypted() bool
}

type plaintextMode struct{}

func (plaintextMode) reveal(value string) (string, error) { return value, nil }

func (plaintextMode) encrypted() bool { return false }

type encryptedMode struct {
	decrypt Decryptor
}

func (m encryptedMode) reveal(value string) (string, error) {
	return m.decrypt(value)
}

func (encryptedMode) encrypted() bool { return true }

// CredentialInfo holds the principal and secret used to authenticate with the
// security service. Values are immutable once constructed.
type CredentialInfo struct {
	principal string
	secret    string
	mode      credentialMode
}

// NewCredential builds a plaintext credential.
func NewCredential(principal string, secret string) (CredentialInfo, error) {
	if err := validateCredentialValues(principal, secret); err != nil {
		return CredentialInfo{}, err
	}
	return CredentialInfo{
		principal: principal,
		secret:    secret,
		mode:      plaintextMode{},
	}, nil
}

// NewEncryptedCredential builds a credential whose principal and secret are
// decrypted with decrypt every time they are resolved.
func NewEncryptedCredential(principal string, secret string, decrypt Decryptor) (CredentialInfo, error) {
	if err := validateCredentialValues(principal, secret); err != nil {
		return CredentialInfo{}, err
	}
	if decrypt == nil {
		return CredentialInfo{}, invalidArgumentError("decryptCapability", msgDecryptorRequired)
	}
	return CredentialInfo{
		principal: principal,
		secret:    secret,
		mode:      encryptedMode{decrypt: decrypt},
	}, nil
}

func validateCredentialValues(principal string, secret string) error {
	if strings.TrimSpace(principal) == "" {
		return invalidArgumentError("principal", msgCredentialRequired)
	}
	if strings.TrimSpace(secret) == "" {
		return invalidArgumentError("secret", msgCredentialRequired)
	}
	return nil
}

// IsZero reports whether c was never constructed.
func (c CredentialInfo) IsZero() bool {
	return c.mode == nil
}

func (c CredentialInfo) IsEncrypted() bool {
	return c.mode != nil && c.mode.encrypted()
}

// ResolvePlaintext returns the plain text principal and secret. Encrypted
// values are decrypted on each call; the stored values never change.
func (c CredentialInfo) ResolvePlaintext() (principal string, secret string, err error) {
	if c.mode == nil {
		return "", "", invalidArgumentError("accessCredentials", msgCredentialRequired)
	}
	principal, err = c.mode.reveal(c.principal)
	if err != nil {
		return "", "", fmt.Errorf("core: decrypt principal: %w", err)
	}
	secret, err = c.mode.reveal(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("core: decrypt secret: %w", err)
	}
	return principal, secret, nil
}

func (c CredentialInfo) String() string {
	if c.mode == nil {
		return "CredentialInfo{}"
	}
	return fmt.Sprintf("CredentialInfo{principal:%s secret:%s encrypted:%t}", RedactedValue, RedactedValue, c.IsEncrypted())
}

func (c CredentialInfo) GoString() string {
	return c.String()
}
