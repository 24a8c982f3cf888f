package kb

import "strings"

// Keyword classification is deliberately a pure string-contains heuristic:
// the same corpus always produces the same attributes.

// tagVocabulary is the fixed set of product and region tags recognized in
// chunk text.
var tagVocabulary = []string{"iphone", "services", "apac", "emea", "amer"}

func inferMinRole(title string) MinRole {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "confidential") || strings.Contains(t, "internal"):
		return MinRoleAdmin
	case strings.Contains(t, "detail") || strings.Contains(t, "sku") || strings.Contains(t, "unit"):
		return MinRoleAnalyst
	default:
		return MinRoleGuest
	}
}

func inferScope(title string) AccessScope {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "executive") || strings.Contains(t, "summary"):
		return ScopeAggregate
	case strings.Contains(t, "confidential"):
		return ScopeConfidential
	default:
		return ScopeDetail
	}
}

func inferTags(title, body string) []string {
	s := strings.ToLower(title + " " + body)
	var tags []string
	for _, tag := range tagVocabulary {
		if strings.Contains(s, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}
