package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown email and wrong password, so the
// response never reveals which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is an account record. PasswordHash is a bcrypt hash, never the
// plaintext password.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Roles        []string
	TenantID     string
}

// UserStore holds accounts in memory. The demo accounts are seeded at
// construction and the store is read-only afterward, so lookups need no
// locking.
type UserStore struct {
	byEmail map[string]User
}

// seed describes one account created by NewUserStore.
type seed struct {
	id       string
	email    string
	password string
	role     string
}

var seeds = []seed{
	{"u1", "guest@demo", "guest", RoleGuest},
	{"u2", "analyst@demo", "analyst", RoleAnalyst},
	{"u3", "admin@demo", "admin", RoleAdmin},
}

// NewUserStore builds the store with the fixed demo accounts, all in the
// same tenant as anonymous callers.
func NewUserStore() (*UserStore, error) {
	byEmail := make(map[string]User, len(seeds))
	for _, s := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", s.email, err)
		}
		byEmail[s.email] = User{
			ID:           s.id,
			Email:        s.email,
			PasswordHash: hash,
			Roles:        []string{s.role},
			TenantID:     anonymousTenant,
		}
	}
	return &UserStore{byEmail: byEmail}, nil
}

// FindByEmail returns the user for the given email.
func (s *UserStore) FindByEmail(email string) (User, bool) {
	u, ok := s.byEmail[email]
	return u, ok
}
