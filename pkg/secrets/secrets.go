// Package secrets covers the two secret concerns of the provisioning flow:
// generating one-time credentials and locating the directory bind password.
package secrets

import (
	"crypto/rand"
	"math/big"
	"os"
	"strings"

	dErrors "regdesk/pkg/domain-errors"
)

// CredentialLength is the minimum length of generated one-time credentials.
const CredentialLength = 20

// credentialAlphabet mirrors ASCII letters, digits, and punctuation.
const credentialAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// NewCredential draws length characters from the credential alphabet using a
// cryptographically secure source. The result is handed to the user exactly
// once and must never be persisted or logged in the clear.
func NewCredential(length int) (string, error) {
	if length < CredentialLength {
		length = CredentialLength
	}
	max := big.NewInt(int64(len(credentialAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate credential")
		}
		b.WriteByte(credentialAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Source resolves a secret from a file, falling back to an environment
// variable. Files win so container secret mounts take precedence over env.
type Source struct {
	Path   string
	EnvKey string
}

// Lookup returns the trimmed secret value, or an error when neither the file
// nor the environment variable yields one.
func (s Source) Lookup() (string, error) {
	if s.Path != "" {
		if raw, err := os.ReadFile(s.Path); err == nil {
			if v := strings.TrimSpace(string(raw)); v != "" {
				return v, nil
			}
		}
	}
	if s.EnvKey != "" {
		if v := strings.TrimSpace(os.Getenv(s.EnvKey)); v != "" {
			return v, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInternal, "secret not available")
}
