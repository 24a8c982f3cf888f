package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/salesdesk/salesdesk/internal/log"
)

// Service authenticates credentials and issues tokens.
type Service struct {
	users  *UserStore
	tokens *TokenService
	logger log.Logger
}

// NewService wires the user store and token service together.
func NewService(users *UserStore, tokens *TokenService, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Result is a successful authentication: the account plus a signed token.
type Result struct {
	User      User
	Token     string
	ExpiresIn time.Duration
}

// Authenticate checks the password against the stored bcrypt hash and
// issues a token on success. Unknown email and bad password both return
// ErrInvalidCredentials.
func (s *Service) Authenticate(email, password string) (Result, error) {
	user, ok := s.users.FindByEmail(email)
	if !ok {
		s.logger.Warn("login failed", "email", email, "reason", "unknown user")
		return Result{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn("login failed", "email", email, "reason", "bad password")
		return Result{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("login ok", "user_id", user.ID, "email", email)
	return Result{User: user, Token: token, ExpiresIn: s.tokens.TTL()}, nil
}
