package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenAudience is the fixed audience claim stamped onto every token.
const tokenAudience = "api"

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the token payload. Scopes are materialized at issue time so
// verification never has to consult the role table.
type Claims struct {
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	issuer string
	key    []byte
	ttl    time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewTokenService returns a service signing with the given secret. The
// expiry is expressed in minutes to match the configuration surface.
func NewTokenService(issuer, secret string, expiresMinutes int) *TokenService {
	return &TokenService{
		issuer: issuer,
		key:    []byte(secret),
		ttl:    time.Duration(expiresMinutes) * time.Minute,
		now:    time.Now,
	}
}

// TTL returns the token lifetime, for login responses that report it.
func (t *TokenService) TTL() time.Duration { return t.ttl }

// Issue signs a token for the user. Scope grants are derived from the
// user's roles at this moment.
func (t *TokenService) Issue(u User) (string, error) {
	now := t.now()
	claims := Claims{
		Email:  u.Email,
		Roles:  u.Roles,
		Scopes: ScopesForRoles(u.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token's signature, issuer and expiry and returns its
// claims. The signing method is pinned to HS256 so a tampered header
// cannot downgrade verification.
func (t *TokenService) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(_ *jwt.Token) (any, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, err)
	}
	return claims, nil
}

// Identity turns verified claims into the caller context handlers work
// with. Every demo account shares the anonymous tenant.
func (c *Claims) Identity() UserContext {
	return UserContext{
		UserID:   c.Subject,
		TenantID: anonymousTenant,
		Roles:    c.Roles,
		Scopes:   c.Scopes,
	}
}
