package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
)

var secret = []byte("super-secret")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	svc, err := NewService(secret, 0, WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func TestNewService_EmptySecret(t *testing.T) {
	_, err := NewService(nil, time.Hour)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfiguration, apperr.Code(err))
}

func TestNewService_DefaultTTL(t *testing.T) {
	svc, err := NewService(secret, 0)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, svc.TTL())
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(t, clock)

	tok, err := svc.Issue("user-1", "a@b.com")
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.True(t, clock.t.Equal(claims.IssuedAt.Time))
	assert.True(t, clock.t.Add(7*24*time.Hour).Equal(claims.ExpiresAt.Time))
}

func TestVerify_ExpiryWindow(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issuedAt}
	svc := newService(t, clock)

	tok, err := svc.Issue("user-1", "a@b.com")
	require.NoError(t, err)

	clock.t = issuedAt.Add(6 * 24 * time.Hour)
	_, err = svc.Verify(tok)
	require.NoError(t, err)

	clock.t = issuedAt.Add(8 * 24 * time.Hour)
	_, err = svc.Verify(tok)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenExpired, apperr.Code(err))
	assert.Equal(t, "Token has expired. Please login again", err.Error())
}

// tamper flips one character in the middle of the signature segment, where
// every base64 character maps to a full six bits of signature.
func tamper(tok string) string {
	i := strings.LastIndex(tok, ".") + 10
	b := []byte(tok)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestVerify_TamperedIsMalformed(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issuedAt}
	svc := newService(t, clock)

	tok, err := svc.Issue("user-1", "a@b.com")
	require.NoError(t, err)

	_, err = svc.Verify(tamper(tok))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenMalformed, apperr.Code(err))

	// tampered and expired is still reported as malformed
	clock.t = issuedAt.Add(30 * 24 * time.Hour)
	_, err = svc.Verify(tamper(tok))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenMalformed, apperr.Code(err))
}

func TestVerify_TamperedPayloadIsMalformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, clock)

	tok, err := svc.Issue("user-1", "a@b.com")
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}).SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	// genuine header and signature around a different payload
	parts := strings.Split(tok, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	for _, raw := range []string{forged, spliced} {
		_, err = svc.Verify(raw)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeTokenMalformed, apperr.Code(err))
	}
}

func TestVerify_Malformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, clock)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u"}).SignedString(secret)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour))},
	}).SignedString(secret)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           "u",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour))},
	}).SignedString(secret)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":       "",
		"garbage":     "not.a.jwt",
		"two parts":   "abc.def",
		"no exp":      noExp,
		"no user id":  noUser,
		"wrong alg":   hs512,
		"none alg":    "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VySWQiOiJ1In0.",
		"wrong key":   mustIssue(t, []byte("other"), clock),
		"whitespace ": " " + mustIssue(t, secret, clock),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(raw)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeTokenMalformed, apperr.Code(err))
			assert.Equal(t, "Invalid token. Please login again", err.Error())
		})
	}
}

func TestVerify_ZeroServiceIsConfigurationError(t *testing.T) {
	var svc Service
	_, err := svc.Verify("anything")
	assert.Equal(t, apperr.CodeConfiguration, apperr.Code(err))

	_, err = svc.Issue("u", "e")
	assert.Equal(t, apperr.CodeConfiguration, apperr.Code(err))
}

func mustIssue(t *testing.T, key []byte, clock *fakeClock) string {
	t.Helper()
	svc, err := NewService(key, time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	tok, err := svc.Issue("u", "e@x.io")
	require.NoError(t, err)
	return tok
}
