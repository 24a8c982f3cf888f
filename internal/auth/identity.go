// Package auth provides caller identity: the in-memory user store, bcrypt
// password verification, HS256 bearer tokens, and the role and scope model
// the rest of the system makes access decisions against.
package auth

import "slices"

// Role names carried in tokens and user records.
const (
	RoleGuest   = "ROLE_GUEST"
	RoleAnalyst = "ROLE_ANALYST"
	RoleAdmin   = "ROLE_ADMIN"
)

// Role levels form a strict total order. Access checks compare levels,
// never role names.
const (
	LevelGuest   = 1
	LevelAnalyst = 2
	LevelAdmin   = 3
)

// anonymousTenant is the tenant every unauthenticated caller lands in.
const anonymousTenant = "t1"

// UserContext is the resolved identity of one request. It is built fresh
// per request and passed explicitly; nothing reads it from ambient state.
type UserContext struct {
	UserID   string
	TenantID string
	Roles    []string
	Scopes   []string

	// AllowedTags restricts which knowledge tags the caller may see.
	// Empty means no tag restriction.
	AllowedTags []string
}

// RoleLevel returns the caller's effective level, taking the highest of the
// caller's roles. Unknown role names count as guest.
func (u UserContext) RoleLevel() int {
	switch {
	case slices.Contains(u.Roles, RoleAdmin):
		return LevelAdmin
	case slices.Contains(u.Roles, RoleAnalyst):
		return LevelAnalyst
	default:
		return LevelGuest
	}
}

// HasScope reports whether the caller holds the given scope.
func (u UserContext) HasScope(scope string) bool {
	return slices.Contains(u.Scopes, scope)
}

// Anonymous returns the fixed guest identity used when a request carries no
// valid bearer token.
func Anonymous() UserContext {
	return UserContext{
		UserID:   "guest",
		TenantID: anonymousTenant,
		Roles:    []string{RoleGuest},
		Scopes:   ScopesForRoles([]string{RoleGuest}),
	}
}
