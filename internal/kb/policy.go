package kb

import (
	"slices"

	"github.com/salesdesk/salesdesk/internal/auth"
)

// CanSee decides whether a caller may read a chunk. It is pure: the same
// inputs always give the same answer, and nothing is logged or mutated.
//
// Three rules, all of which must pass:
//  1. The caller's role level meets the chunk's minimum role.
//  2. A tenant-scoped chunk is only visible inside its own tenant.
//  3. A caller restricted to certain tags sees only chunks carrying at
//     least one of them. An untagged chunk is never visible to such a
//     caller; that is the least-privilege default.
func CanSee(caller auth.UserContext, c Chunk) bool {
	if caller.RoleLevel() < int(c.MinRole) {
		return false
	}

	if c.TenantID != "" && c.TenantID != caller.TenantID {
		return false
	}

	if len(caller.AllowedTags) > 0 {
		any := slices.ContainsFunc(c.Tags, func(tag string) bool {
			return slices.Contains(caller.AllowedTags, tag)
		})
		if !any {
			return false
		}
	}

	return true
}
