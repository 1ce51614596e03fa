package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/httpx"
)

type principalKey struct{}

type authErrorKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by Require or Optional.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithAuthError returns a copy of ctx carrying the failure of a token that
// was presented but did not verify.
func WithAuthError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, authErrorKey{}, err)
}

// AuthErrorFrom returns the failure recorded by Optional, if any. A request
// without any token records nothing.
func AuthErrorFrom(ctx context.Context) error {
	err, _ := ctx.Value(authErrorKey{}).(error)
	return err
}

// Require rejects requests that do not resolve to a principal with 401 and
// the failure's message; otherwise the principal is attached to the request
// context.
func (res *Resolver) Require(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := res.Resolve(r)
			if err != nil {
				httpx.WriteError(w, logger, "authentication failed", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Optional attaches the principal when the request carries a valid token
// and passes every request through. When a token is present but fails, the
// typed failure is attached instead. Downstream handlers decide visibility
// from PrincipalFrom and AuthErrorFrom.
func (res *Resolver) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := res.Resolve(r)
			switch {
			case err == nil:
				r = r.WithContext(WithPrincipal(r.Context(), p))
			case apperr.Code(err) != apperr.CodeUnauthenticated:
				r = r.WithContext(WithAuthError(r.Context(), err))
			}
			next.ServeHTTP(w, r)
		})
	}
}
