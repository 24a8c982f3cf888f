package kb

import (
	"regexp"
	"slices"
	"strings"

	"github.com/salesdesk/salesdesk/internal/auth"
)

// wordPattern keeps letters, digits and the characters that show up in
// product names and figures (A17, 14.5%, M3+).
var wordPattern = regexp.MustCompile(`[A-Za-z0-9+.%]+`)

// stopWords are dropped from queries and chunk text before scoring.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "for": {},
	"to": {}, "in": {}, "on": {}, "by": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "with": {}, "at": {}, "as": {}, "from": {}, "that": {},
	"this": {}, "it": {},
}

// titleWeight makes a title hit count three times a body hit.
const titleWeight = 3

// Retriever ranks policy-visible chunks against a query by token overlap.
type Retriever struct {
	topK int
}

// NewRetriever returns a retriever that keeps the best topK chunks.
func NewRetriever(topK int) *Retriever {
	return &Retriever{topK: topK}
}

// TopK filters all chunks through the access policy, scores the survivors
// against the query, and returns the best topK in descending score order.
// Ties keep corpus order, so results are deterministic.
func (r *Retriever) TopK(query string, all []Chunk, caller auth.UserContext) []Chunk {
	pool := make([]Chunk, 0, len(all))
	for _, c := range all {
		if CanSee(caller, c) {
			pool = append(pool, c)
		}
	}

	q := Tokenize(query)
	scores := make(map[int]int, len(pool))
	for i, c := range pool {
		scores[i] = score(q, c.Title, c.Text)
	}

	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return scores[b] - scores[a]
	})

	n := min(r.topK, len(pool))
	out := make([]Chunk, 0, n)
	for _, i := range order[:n] {
		out = append(out, pool[i])
	}
	return out
}

func score(query map[string]struct{}, title, body string) int {
	return overlap(query, Tokenize(title))*titleWeight + overlap(query, Tokenize(body))
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}

// Tokenize lowercases the text and extracts its distinct word tokens,
// dropping stop words and single characters.
func Tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if len(t) <= 1 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}
