// Package auth resolves the authenticated principal of an HTTP request.
//
// A Resolver looks for a session token in a fixed precedence order, verifies
// it and yields either a Principal or a coded failure. Handlers that need a
// principal either call Resolve directly or sit behind Require/Optional and
// read the result back with PrincipalFrom.
package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/token"
)

// CookieName is the session cookie set on register and login.
const CookieName = "token"

// Principal is the identity attached to one request.
type Principal struct {
	ID    string
	Email string
}

// Verifier checks a raw session token.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// Source extracts a candidate token from a request. It returns "" when the
// request carries none.
type Source func(r *http.Request) string

// DefaultSources is the precedence order used by NewResolver when no
// sources are given: header, cookie, body, query.
var DefaultSources = []Source{FromBearer, FromCookie, FromBody, FromQuery}

// Resolver turns a request into a Principal.
type Resolver struct {
	tokens  Verifier
	sources []Source
}

// NewResolver returns a Resolver trying sources in order. With no sources
// it uses DefaultSources.
func NewResolver(tokens Verifier, sources ...Source) *Resolver {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Resolver{tokens: tokens, sources: sources}
}

// BearerOnly returns a Resolver that accepts the Authorization header only.
func BearerOnly(tokens Verifier) *Resolver {
	return NewResolver(tokens, FromBearer)
}

// Resolve finds the first non-empty token and verifies it. Sources are never
// merged: a bad header token fails even when a good cookie is present.
func (res *Resolver) Resolve(r *http.Request) (Principal, error) {
	raw := res.candidate(r)
	if raw == "" {
		return Principal{}, oops.Code(apperr.CodeUnauthenticated).Errorf("No token provided")
	}
	claims, err := res.tokens.Verify(raw)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: claims.UserID, Email: claims.Email}, nil
}

func (res *Resolver) candidate(r *http.Request) string {
	for _, src := range res.sources {
		if tok := src(r); tok != "" {
			return tok
		}
	}
	return ""
}

// FromBearer reads "Authorization: Bearer <token>".
func FromBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(tok)
}

// FromCookie reads the session cookie.
func FromCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// FromQuery reads the "token" query parameter.
func FromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// FromBody reads a "token" field from a JSON or urlencoded body. The body is
// put back so the handler can still decode it.
func FromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	if mt != "application/json" && mt != "application/x-www-form-urlencoded" {
		return ""
	}

	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		// replay the read error after the bytes so the handler sees it too
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), failingReader{err}))
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if mt == "application/x-www-form-urlencoded" {
		vals, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		return vals.Get("token")
	}
	var body struct {
		Token any `json:"token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	s, _ := body.Token.(string)
	return s
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }
