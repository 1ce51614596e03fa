package user

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/pkg/utilities"
)

const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store is the user persistence the service depends on. Create must fail
// with USER_EXISTS when the email is already taken, enforced by the store
// itself so concurrent registrations cannot both succeed.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	CreateIfAbsent(ctx context.Context, u *entity.User) (*entity.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// UserService orchestrates registration, login and profile lookups.
type UserService struct {
	store  Store
	hasher PasswordHasher
	tokens TokenIssuer
	newID  func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(store Store, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: DefaultCost}
	}
	return &UserService{store: store, hasher: hasher, tokens: tokens, newID: utilities.NewSnowflakeID}
}

// NormalizeEmail trims and lower-cases an email; the result is the uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (in RegisterInput) validate() (RegisterInput, error) {
	out := RegisterInput{Name: strings.TrimSpace(in.Name), Email: NormalizeEmail(in.Email), Password: in.Password}
	if out.Name == "" || out.Email == "" || out.Password == "" {
		return out, oops.Code(apperr.CodeValidation).Errorf("Name, email and password are required")
	}
	if !emailPattern.MatchString(out.Email) {
		return out, oops.Code(apperr.CodeValidation).Errorf("Invalid email format")
	}
	if err := validatePassword(out.Password); err != nil {
		return out, err
	}
	return out, nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return oops.Code(apperr.CodeValidation).Errorf("Password must be at least 6 characters long")
	}
	if len(pw) > maxPasswordBytes {
		return oops.Code(apperr.CodeValidation).Errorf("Password must be at most 72 bytes long")
	}
	return nil
}

// Register validates in, stores a new user with a hashed password and
// returns it with a fresh session token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, string, error) {
	in, err := in.validate()
	if err != nil {
		return nil, "", err
	}

	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", oops.Code(apperr.CodeUserExists).With("email", in.Email).Errorf("User already exists with this email")
	} else if apperr.Code(err) != apperr.CodeUserNotFound {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}
	u := &entity.User{ID: s.newID(), Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, "", err
	}

	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// Login checks credentials and returns the user with a fresh session token.
// An unknown email and a wrong password fail identically.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", oops.Code(apperr.CodeValidation).Errorf("Email and password are required")
	}

	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Code(err) != apperr.CodeUserNotFound {
			return nil, "", err
		}
		// spend the same bcrypt time as a real mismatch
		s.hasher.Verify(s.dummy(), password)
		return nil, "", errBadCredentials()
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, "", errBadCredentials()
	}

	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// GetByID returns the user for a resolved principal, or USER_NOT_FOUND when
// the account was removed after the token was issued.
func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.store.GetByID(ctx, id)
}

// EnsureUser creates the user unless one with the same email exists. The
// existing account, password included, is left untouched.
func (s *UserService) EnsureUser(ctx context.Context, in RegisterInput) (*entity.User, bool, error) {
	in, err := in.validate()
	if err != nil {
		return nil, false, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, false, err
	}
	return s.store.CreateIfAbsent(ctx, &entity.User{ID: s.newID(), Name: in.Name, Email: in.Email, PasswordHash: hash})
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(utilities.NewKSUID())
	})
	return s.dummyHash
}

func errBadCredentials() error {
	return oops.Code(apperr.CodeInvalidCredentials).Errorf("Invalid email or password")
}
