package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// MinKeySize is the smallest key HS256 accepts, 256 bits.
const MinKeySize = 32

var (
	errEmptySecret = errors.New("jwt secret is empty")
	errShortSecret = errors.New("jwt secret is shorter than 256 bits")
)

// SigningKey is the process-wide HMAC secret. It refuses to print its bytes.
type SigningKey struct {
	b []byte
}

func (k SigningKey) String() string   { return "SigningKey([redacted])" }
func (k SigningKey) GoString() string { return k.String() }

// Len reports the key size in bytes.
func (k SigningKey) Len() int { return len(k.b) }

func (k SigningKey) bytes() []byte { return k.b }

// ParseKey decodes a base64 secret into a signing key.
func ParseKey(secret string) (SigningKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return SigningKey{}, errEmptySecret
	}
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return SigningKey{}, fmt.Errorf("decode jwt secret: %w", err)
	}
	if len(decoded) < MinKeySize {
		return SigningKey{}, fmt.Errorf("%w: got %d bytes", errShortSecret, len(decoded))
	}
	return SigningKey{b: decoded}, nil
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() (SigningKey, error) {
	b := make([]byte, MinKeySize)
	if _, err := rand.Read(b); err != nil {
		return SigningKey{}, fmt.Errorf("generate signing key: %w", err)
	}
	return SigningKey{b: b}, nil
}

// DeriveKey always yields a usable key. A missing or malformed secret is logged once and
// replaced with a random key that lives as long as the process, so tokens do not survive
// a restart in that mode.
func DeriveKey(secret string, logger logrus.FieldLogger) SigningKey {
	key, err := ParseKey(secret)
	if err == nil {
		return key
	}

	if logger == nil {
		logger = logrus.New()
	}
	logger.WithField("reason", err.Error()).
		Warn("invalid jwt secret, falling back to a generated key; set a base64-encoded 256-bit key in jwt.secret")

	key, genErr := GenerateKey()
	if genErr != nil {
		// crypto/rand does not fail on supported platforms.
		panic(genErr)
	}
	return key
}
