package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/entity"
)

// CookieOptions controls the session cookie written on register and login.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Handler exposes HTTP endpoints for the auth flow.
type Handler struct {
	svc    *UserService
	bearer *auth.Resolver
	cookie CookieOptions
	logger *zap.SugaredLogger
}

// NewHandler wires svc behind the auth endpoints. tokens verifies the
// Bearer-only endpoints (profile, verify).
func NewHandler(svc *UserService, tokens auth.Verifier, cookie CookieOptions, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, bearer: auth.BearerOnly(tokens), cookie: cookie, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    entity.PublicUser `json:"user"`
}

// UserResponse carries a single user view.
type UserResponse struct {
	Success bool              `json:"success"`
	User    entity.PublicUser `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, tok, err := h.svc.Register(r.Context(), RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		httpx.WriteError(w, h.logger, "register failed", err)
		return
	}
	h.logger.Infow("user registered", "user_id", u.ID)
	h.setSessionCookie(w, tok)
	httpx.WriteJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   tok,
		User:    u.Registered(),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, tok, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, h.logger, "login failed", err)
		return
	}
	h.setSessionCookie(w, tok)
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   tok,
		User:    u.LoggedIn(),
	})
}

// Logout clears the session cookie. Tokens already handed out stay valid
// until they expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookieWith("", -1))
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Logged out successfully"})
}

// Me returns the user for the principal attached upstream. An expired or
// invalid token is reported as such rather than as a missing one.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		if err := auth.AuthErrorFrom(r.Context()); err != nil {
			httpx.WriteError(w, h.logger, "me", err)
			return
		}
		httpx.WriteError(w, h.logger, "me", oops.Code(apperr.CodeUnauthenticated).Errorf("Not authenticated"))
		return
	}
	u, err := h.svc.GetByID(r.Context(), p.ID)
	if err != nil {
		httpx.WriteError(w, h.logger, "fetch current user failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, UserResponse{Success: true, User: u.Profile()})
}

// Profile is Me for clients that authenticate with the Authorization header only.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.bearer.Resolve(r)
	if err != nil {
		httpx.WriteError(w, h.logger, "profile auth failed", err)
		return
	}
	u, err := h.svc.GetByID(r.Context(), p.ID)
	if err != nil {
		httpx.WriteError(w, h.logger, "fetch profile failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, UserResponse{Success: true, User: u.Profile()})
}

// Verify checks a Bearer token and echoes its user. A token whose user is
// gone is rejected like any other bad token.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	p, err := h.bearer.Resolve(r)
	if err != nil {
		httpx.WriteError(w, h.logger, "verify failed", err)
		return
	}
	u, err := h.svc.GetByID(r.Context(), p.ID)
	if err != nil {
		if apperr.Code(err) == apperr.CodeUserNotFound {
			err = oops.Code(apperr.CodeUnauthenticated).Errorf("User not found")
		}
		httpx.WriteError(w, h.logger, "verify failed", err)
		return
	}
	view := u.Registered()
	httpx.WriteJSON(w, http.StatusOK, UserResponse{Success: true, User: view})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, h.logger, "payload too large",
				oops.Code(apperr.CodePayloadTooLarge).With("limit", tooLarge.Limit).Errorf("Request body too large"))
			return false
		}
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, tok string) {
	maxAge := h.cookie.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	http.SetCookie(w, h.cookieWith(tok, int(maxAge/time.Second)))
}

// cookieWith builds the session cookie. Clearing reuses the same attributes
// so browsers match it to the one being replaced.
func (h *Handler) cookieWith(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteNoneMode,
	}
}
