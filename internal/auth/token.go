package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL applies when no lifetime is configured.
const DefaultTokenTTL = time.Hour

// ErrInvalidToken is returned when a token is malformed or its signature does not verify.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by every issued token.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and checks HS256 tokens. It holds no mutable state after
// construction and is safe for concurrent use.
type TokenService struct {
	key    SigningKey
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customizes a TokenService.
type Option func(*TokenService)

// WithClock replaces the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService builds a token service. Token timestamps carry whole seconds, so the
// lifetime is rounded up to a whole number of seconds.
func NewTokenService(key SigningKey, ttl time.Duration, opts ...Option) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	s := &TokenService{
		key: key,
		ttl: ttl,
		now: time.Now,
		// Expiry is checked by IsValid with strict semantics, so the parser only
		// verifies structure, algorithm and signature.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject that expires exactly one lifetime after its
// issued-at second.
func (s *TokenService) Issue(subject string) (string, error) {
	now := s.now().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.key.bytes())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ExtractSubject verifies the signature and returns the subject. Expiry is not checked.
func (s *TokenService) ExtractSubject(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether token is authentic, belongs to expectedSubject and has not
// expired. A token is expired at its expiry instant, not after it.
func (s *TokenService) IsValid(token, expectedSubject string) bool {
	claims, err := s.parse(token)
	if err != nil {
		return false
	}
	if claims.Subject != expectedSubject {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.After(s.now())
}

func (s *TokenService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key.bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
