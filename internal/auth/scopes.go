package auth

import (
	"slices"
	"sort"
)

// Scope names granted per role. Handlers check scopes, not role names, so
// a future role only needs an entry here.
const (
	ScopeChatInvoke      = "chat:invoke"
	ScopeKBReadAggregate = "kb:read:aggregate"
	ScopeKBReadDetail    = "kb:read:detail"
	ScopeConvRead        = "conv:read"
	ScopeConvReadAny     = "conv:read:any"
	ScopeConvWrite       = "conv:write"
	ScopeAdminModelSet   = "admin:model:set"
	ScopeAuditRead       = "audit:read"
)

// scopesByRole is the least-privilege grant table.
var scopesByRole = map[string][]string{
	RoleGuest:   {ScopeChatInvoke, ScopeKBReadAggregate, ScopeConvRead, ScopeConvWrite},
	RoleAnalyst: {ScopeChatInvoke, ScopeKBReadDetail, ScopeConvRead, ScopeConvWrite},
	RoleAdmin: {
		ScopeChatInvoke, ScopeKBReadDetail,
		ScopeConvRead, ScopeConvReadAny, ScopeConvWrite,
		ScopeAdminModelSet, ScopeAuditRead,
	},
}

// ScopesForRoles returns the union of the scopes granted by the given roles,
// sorted and deduplicated. Unknown roles grant nothing.
func ScopesForRoles(roles []string) []string {
	var out []string
	for _, r := range roles {
		for _, s := range scopesByRole[r] {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
