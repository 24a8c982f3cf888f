// Package kb implements the knowledge base: loading a flat text corpus into
// attribute-tagged chunks at startup, the access policy deciding which
// chunks a caller may see, and lexical retrieval of the top scoring chunks
// for a query.
package kb

import "github.com/google/uuid"

// AccessScope classifies how sensitive a chunk's content is.
type AccessScope string

const (
	ScopeAggregate    AccessScope = "AGGREGATE"
	ScopeDetail       AccessScope = "DETAIL"
	ScopeConfidential AccessScope = "CONFIDENTIAL"
)

// MinRole is the lowest role level allowed to read a chunk. The numeric
// values line up with the auth package's role levels so the policy can
// compare them directly.
type MinRole int

const (
	MinRoleGuest MinRole = iota + 1
	MinRoleAnalyst
	MinRoleAdmin
)

func (r MinRole) String() string {
	switch r {
	case MinRoleAdmin:
		return "ADMIN"
	case MinRoleAnalyst:
		return "ANALYST"
	default:
		return "GUEST"
	}
}

// Chunk is one retrievable unit of knowledge-base text. Chunks are built
// once at load time and never mutated, so they are safe to share across
// requests.
type Chunk struct {
	ID    uuid.UUID
	DocID string
	Title string
	Text  string

	// TenantID scopes the chunk to one tenant. Empty means global.
	TenantID string

	Scope   AccessScope
	MinRole MinRole
	Tags    []string
}
