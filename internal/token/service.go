// Package token issues and verifies the signed session tokens handed out on
// register and login.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the payload carried by a session token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs tokens with a server-held HMAC secret. It holds no mutable
// state and is safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service signing with secret. A zero ttl means DefaultTTL.
func NewService(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, oops.Code(apperr.CodeConfiguration).Errorf("token signing secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{secret: secret, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a signed token for the given principal.
func (s *Service) Issue(userID, email string) (string, error) {
	if len(s.secret) == 0 {
		return "", oops.Code(apperr.CodeConfiguration).Errorf("token signing secret is empty")
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code(apperr.CodeInternal).With("operation", "sign token").Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature of raw and then its expiry. A token whose
// signature checks out but whose exp has passed fails with TOKEN_EXPIRED;
// anything else wrong with it fails with TOKEN_MALFORMED.
func (s *Service) Verify(raw string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, oops.Code(apperr.CodeConfiguration).Errorf("token signing secret is empty")
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, oops.Code(apperr.CodeTokenExpired).Errorf("Token has expired. Please login again")
	default:
		return Claims{}, oops.Code(apperr.CodeTokenMalformed).With("cause", err.Error()).Errorf("Invalid token. Please login again")
	}
	if claims.UserID == "" {
		return Claims{}, oops.Code(apperr.CodeTokenMalformed).Errorf("Invalid token. Please login again")
	}
	return claims, nil
}
