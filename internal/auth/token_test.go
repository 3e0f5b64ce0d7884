package auth

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestService(t *testing.T, ttl time.Duration) (*TokenService, *fakeClock) {
	t.Helper()
	key, err := ParseKey(validSecret())
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return NewTokenService(key, ttl, WithClock(clock.Now)), clock
}

// mutate flips the character at i to a different base64url character.
func mutate(s string, i int) string {
	b := []byte(s)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestIssue_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	subject, err := svc.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
	assert.True(t, svc.IsValid(token, "alice"))
}

func TestIssue_EncodesClaims(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, 90*time.Minute)
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Time.Equal(clock.Now()))
	assert.True(t, claims.ExpiresAt.Time.Equal(clock.Now().Add(90*time.Minute)))
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	a, err := svc.Issue("alice")
	require.NoError(t, err)
	b, err := svc.Issue("alice")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	t.Parallel()

	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, NewTokenService(key, 0).TTL())
	assert.Equal(t, DefaultTokenTTL, NewTokenService(key, -time.Second).TTL())
	assert.Equal(t, time.Minute, NewTokenService(key, time.Minute).TTL())
	assert.Equal(t, time.Second, NewTokenService(key, 500*time.Millisecond).TTL())
	assert.Equal(t, 2*time.Second, NewTokenService(key, 1500*time.Millisecond).TTL())
}

func TestIssue_SubSecondLifetimeIsUsable(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, 500*time.Millisecond)
	clock.Set(time.Date(2026, 1, 2, 3, 4, 10, 200*int(time.Millisecond), time.UTC))

	token, err := svc.Issue("alice")
	require.NoError(t, err)
	assert.True(t, svc.IsValid(token, "alice"))
}

func TestIsValid_ExpiryBoundaryFractionalClock(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, time.Hour)
	clock.Set(time.Date(2026, 1, 2, 3, 4, 10, 900*int(time.Millisecond), time.UTC))
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	issuedAt := claims.IssuedAt.Time
	assert.True(t, issuedAt.Equal(time.Date(2026, 1, 2, 3, 4, 10, 0, time.UTC)))
	assert.True(t, claims.ExpiresAt.Time.Equal(issuedAt.Add(time.Hour)))

	assert.True(t, svc.IsValid(token, "alice"), "right after issue")

	clock.Set(issuedAt.Add(time.Hour - 500*time.Millisecond))
	assert.True(t, svc.IsValid(token, "alice"), "half a second before expiry")

	clock.Set(issuedAt.Add(time.Hour - time.Nanosecond))
	assert.True(t, svc.IsValid(token, "alice"), "just before expiry")

	clock.Set(issuedAt.Add(time.Hour))
	assert.False(t, svc.IsValid(token, "alice"), "at expiry")
}

func TestIsValid_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, time.Hour)
	issuedAt := clock.Now()
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	clock.Set(issuedAt.Add(time.Hour - time.Second))
	assert.True(t, svc.IsValid(token, "alice"), "one second before expiry")

	clock.Set(issuedAt.Add(time.Hour))
	assert.False(t, svc.IsValid(token, "alice"), "at expiry")

	clock.Set(issuedAt.Add(2 * time.Hour))
	assert.False(t, svc.IsValid(token, "alice"), "after expiry")
}

func TestExtractSubject_IgnoresExpiry(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, time.Minute)
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	clock.Set(clock.Now().Add(24 * time.Hour))
	subject, err := svc.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestIsValid_SubjectMismatch(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	token, err := svc.Issue("bob")
	require.NoError(t, err)

	assert.False(t, svc.IsValid(token, "alice"))
	assert.False(t, svc.IsValid(token, "Bob"))
	assert.True(t, svc.IsValid(token, "bob"))
}

func TestTamperedToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payloadAt := len(parts[0]) + 1 + len(parts[1])/2
	signatureAt := len(parts[0]) + 1 + len(parts[1]) + 1 + len(parts[2])/2

	for name, tampered := range map[string]string{
		"payload":   mutate(token, payloadAt),
		"signature": mutate(token, signatureAt),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ExtractSubject(tampered)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.False(t, svc.IsValid(tampered, "alice"))
		})
	}
}

func TestWrongKey(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	token, err := svc.Issue("alice")
	require.NoError(t, err)

	other, err := GenerateKey()
	require.NoError(t, err)
	foreign := NewTokenService(other, time.Hour)

	_, err = foreign.ExtractSubject(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, foreign.IsValid(token, "alice"))
}

func TestMalformedTokens(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	for _, token := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		_, err := svc.ExtractSubject(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
		assert.False(t, svc.IsValid(token, "alice"), token)
	}
}

func TestRejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.False(t, svc.IsValid(token, "alice"))
}

func TestTokenWithoutExpiryIsInvalid(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	})
	token, err := raw.SignedString(svc.key.bytes())
	require.NoError(t, err)

	_, err = svc.ExtractSubject(token)
	require.NoError(t, err)
	assert.False(t, svc.IsValid(token, "alice"))
}

func TestConcurrentIssueAndValidate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := svc.Issue("alice")
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, svc.IsValid(token, "alice"))
		}()
	}
	wg.Wait()
}
