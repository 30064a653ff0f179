// Package auth resolves the current owner from the stored session record and
// writes that record on sign-up, sign-in and sign-out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"rollcall/internal/store"
)

// ErrUnauthenticated is returned when no usable session record exists.
var ErrUnauthenticated = errors.New("user not authenticated")

// ErrInvalidCredentials wraps sign-up and sign-in input failures.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity is the session record persisted under the session key.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

// Options configures where the session lives and how its token is checked.
// An empty SigningKey disables token issue and verification.
type Options struct {
	Key        string
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// Sessions reads and writes the session record.
type Sessions struct {
	storage  store.Storage
	opts     Options
	validate *validator.Validate
}

// NewSessions creates a session manager over storage.
func NewSessions(storage store.Storage, opts Options) *Sessions {
	if opts.Key == "" {
		opts.Key = "auth_user"
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Sessions{storage: storage, opts: opts, validate: validator.New()}
}

// Current returns the stored identity, failing with ErrUnauthenticated when the
// record is missing, malformed, or carries a token that does not verify.
func (s *Sessions) Current(ctx context.Context) (Identity, error) {
	raw, err := s.storage.Get(ctx, s.opts.Key)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: read session: %v", ErrUnauthenticated, err)
	}
	if raw == nil {
		return Identity{}, ErrUnauthenticated
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, fmt.Errorf("%w: malformed session: %v", ErrUnauthenticated, err)
	}
	if strings.TrimSpace(id.ID) == "" {
		return Identity{}, fmt.Errorf("%w: session has no user id", ErrUnauthenticated)
	}
	if s.opts.SigningKey != "" {
		claims, err := Parse(id.Token, s.opts.SigningKey, s.opts.Issuer)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		if claims.Subject != id.ID {
			return Identity{}, fmt.Errorf("%w: token subject mismatch", ErrUnauthenticated)
		}
	}
	return id, nil
}

// CurrentOwnerID returns the id of the signed-in user.
func (s *Sessions) CurrentOwnerID(ctx context.Context) (string, error) {
	id, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return id.ID, nil
}

// SignUpInput is the account form.
type SignUpInput struct {
	FullName        string `validate:"required"`
	Email           string `validate:"required,email"`
	SchoolName      string
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// SignUp validates the form and starts a session for a new owner.
func (s *Sessions) SignUp(ctx context.Context, in SignUpInput) (Identity, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return s.start(ctx, in.Email, in.FullName)
}

type signInInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// SignIn accepts any non-empty email and password and starts a session whose
// display name is the local part of the email. There is no credential store.
func (s *Sessions) SignIn(ctx context.Context, email, password string) (Identity, error) {
	in := signInInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	name, _, _ := strings.Cut(in.Email, "@")
	return s.start(ctx, in.Email, name)
}

// SignOut clears the session record.
func (s *Sessions) SignOut(ctx context.Context) error {
	return s.storage.Delete(ctx, s.opts.Key)
}

// ownerNamespace scopes owner ids derived from email addresses.
var ownerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("rollcall:owner"))

// OwnerIDFor returns the stable owner id for an email, ignoring case.
func OwnerIDFor(email string) string {
	return uuid.NewSHA1(ownerNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

func (s *Sessions) start(ctx context.Context, email, name string) (Identity, error) {
	id := Identity{ID: OwnerIDFor(email), Email: email, Name: name}
	if s.opts.SigningKey != "" {
		tok, err := Issue(id.ID, email, name, s.opts.Issuer, s.opts.SigningKey, s.opts.TTL)
		if err != nil {
			return Identity{}, fmt.Errorf("issue token: %w", err)
		}
		id.Token = tok.Value
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return Identity{}, err
	}
	if err := s.storage.Set(ctx, s.opts.Key, raw); err != nil {
		return Identity{}, fmt.Errorf("write session: %w", err)
	}
	return id, nil
}
