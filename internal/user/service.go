package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wichananm65/auth-api/internal/auth"
)

// TokenIssuer mints a session token for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Session is the result of a successful signup or signin.
type Session struct {
	User  User
	Token string
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Phones   []Phone
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens, now: time.Now}
}

// Signup creates a user and opens a session for it. The email lookup is only
// a fast path; the repository's unique constraint has the final word.
func (s *Service) Signup(ctx context.Context, input SignupInput) (Session, error) {
	email := normalizeEmail(input.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return Session{}, err
	}

	created, err := s.repo.Create(ctx, User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Phones:       input.Phones,
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	return s.openSession(created)
}

// Signin checks the credentials and records the login. Unknown email and
// wrong password both yield ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, email, password string) (Session, error) {
	found, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// keep the response time close to a real password check
			auth.VerifyPassword(password, s.decoy())
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup email: %w", err)
	}

	if !auth.VerifyPassword(password, found.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	updated, err := s.repo.TouchLastLogin(ctx, found.ID, s.now())
	if err != nil {
		return Session{}, fmt.Errorf("record login: %w", err)
	}

	return s.openSession(updated)
}

// Profile returns the user behind an authenticated id.
func (s *Service) Profile(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) openSession(u User) (Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: u, Token: token}, nil
}

func (s *Service) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = auth.Hash("decoy-password")
	})
	return s.decoyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
