package kb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/auth"
)

const testCorpus = `# Executive Summary Q3
iPhone revenue grew 6% year over year across AMER and EMEA.

# iPhone Unit Detail Q3
iPhone 15 Pro units in APAC: 4.2M. ASP held at $1,099.

# Confidential Margin Notes
Services gross margin target for EMEA is 71.5%.
`

func writeCorpus(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func loadCorpus(t *testing.T, text string, chunkSize int) *Store {
	t.Helper()
	s := NewStore(writeCorpus(t, text), chunkSize, nil)
	require.NoError(t, s.Load())
	return s
}

func guest() auth.UserContext { return auth.Anonymous() }

func analyst() auth.UserContext {
	return auth.UserContext{UserID: "u2", TenantID: "t1", Roles: []string{auth.RoleAnalyst}}
}
func admin() auth.UserContext {
	return auth.UserContext{UserID: "u3", TenantID: "t1", Roles: []string{auth.RoleAdmin}}
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	s := loadCorpus(t, testCorpus, 700)
	chunks := s.All()
	require.Len(t, chunks, 3)

	assert.Equal(t, "Executive Summary Q3", chunks[0].Title)
	assert.Equal(t, ScopeAggregate, chunks[0].Scope)
	assert.Equal(t, MinRoleGuest, chunks[0].MinRole)
	assert.ElementsMatch(t, []string{"iphone", "amer", "emea"}, chunks[0].Tags)

	assert.Equal(t, "iPhone Unit Detail Q3", chunks[1].Title)
	assert.Equal(t, ScopeDetail, chunks[1].Scope)
	assert.Equal(t, MinRoleAnalyst, chunks[1].MinRole)
	assert.Contains(t, chunks[1].Tags, "apac")

	assert.Equal(t, "Confidential Margin Notes", chunks[2].Title)
	assert.Equal(t, ScopeConfidential, chunks[2].Scope)
	assert.Equal(t, MinRoleAdmin, chunks[2].MinRole)

	for _, c := range chunks {
		assert.Equal(t, "kb.txt", c.DocID)
		assert.Empty(t, c.TenantID)
		assert.NotEmpty(t, c.Text)
	}
}

func TestStore_Load_DeterministicIDs(t *testing.T) {
	t.Parallel()

	a := loadCorpus(t, testCorpus, 700)
	b := loadCorpus(t, testCorpus, 700)
	require.Len(t, b.All(), len(a.All()))
	for i := range a.All() {
		assert.Equal(t, a.All()[i].ID, b.All()[i].ID)
	}
}

func TestStore_Load_PreambleGetsDefaultTitle(t *testing.T) {
	t.Parallel()

	s := loadCorpus(t, "intro text before any heading\n\n# Real Section\nbody\n", 700)
	chunks := s.All()
	require.Len(t, chunks, 2)
	assert.Equal(t, "General", chunks[0].Title)
	assert.Equal(t, "intro text before any heading", chunks[0].Text)
	assert.Equal(t, "Real Section", chunks[1].Title)
}

func TestStore_Load_MissingFile(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "absent.txt"), 700, nil)
	assert.Error(t, s.Load())
}

func TestSplitBySize(t *testing.T) {
	t.Parallel()

	t.Run("short body untouched", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"hello"}, splitBySize("hello", 100))
	})

	t.Run("splits at paragraph boundary", func(t *testing.T) {
		t.Parallel()
		body := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40)
		parts := splitBySize(body, 50)
		require.Len(t, parts, 2)
		assert.Equal(t, strings.Repeat("a", 40), parts[0])
		assert.Equal(t, strings.Repeat("b", 40), strings.TrimSpace(parts[1]))
	})

	t.Run("hard cut when no boundary fits", func(t *testing.T) {
		t.Parallel()
		body := strings.Repeat("x", 120)
		parts := splitBySize(body, 50)
		require.Len(t, parts, 3)
		assert.Equal(t, 50, len(parts[0]))
	})

	t.Run("pieces rejoin to the original", func(t *testing.T) {
		t.Parallel()
		body := strings.Repeat("para one\n\n", 20)
		assert.Equal(t, body, strings.Join(splitBySize(body, 50), ""))
	})
}

func TestStore_Load_OversizedSection(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("paragraph about services growth\n\n", 10)
	s := loadCorpus(t, "# Services Overview\n"+body, 80)
	chunks := s.All()
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, "Services Overview", c.Title)
		assert.Contains(t, c.Tags, "services")
	}
}

func TestCanSee(t *testing.T) {
	t.Parallel()

	adminChunk := Chunk{MinRole: MinRoleAdmin, Tags: []string{"iphone"}}
	analystChunk := Chunk{MinRole: MinRoleAnalyst, Tags: []string{"apac"}}
	guestChunk := Chunk{MinRole: MinRoleGuest, Tags: []string{"emea"}}

	tests := []struct {
		name   string
		caller auth.UserContext
		chunk  Chunk
		want   bool
	}{
		{"guest sees guest chunk", guest(), guestChunk, true},
		{"guest denied analyst chunk", guest(), analystChunk, false},
		{"guest denied admin chunk", guest(), adminChunk, false},
		{"analyst sees analyst chunk", analyst(), analystChunk, true},
		{"analyst denied admin chunk", analyst(), adminChunk, false},
		{"admin sees everything", admin(), adminChunk, true},
		{"tenant mismatch denied", analyst(), Chunk{MinRole: MinRoleGuest, TenantID: "t2"}, false},
		{"tenant match allowed", analyst(), Chunk{MinRole: MinRoleGuest, TenantID: "t1"}, true},
		{"global chunk visible to any tenant", auth.UserContext{TenantID: "t9", Roles: []string{auth.RoleGuest}}, guestChunk, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanSee(tt.caller, tt.chunk))
		})
	}
}

func TestCanSee_TagRestriction(t *testing.T) {
	t.Parallel()

	restricted := analyst()
	restricted.AllowedTags = []string{"apac"}

	t.Run("matching tag allowed", func(t *testing.T) {
		t.Parallel()
		assert.True(t, CanSee(restricted, Chunk{MinRole: MinRoleGuest, Tags: []string{"apac", "iphone"}}))
	})

	t.Run("disjoint tags denied", func(t *testing.T) {
		t.Parallel()
		assert.False(t, CanSee(restricted, Chunk{MinRole: MinRoleGuest, Tags: []string{"emea"}}))
	})

	t.Run("untagged chunk denied for restricted caller", func(t *testing.T) {
		t.Parallel()
		assert.False(t, CanSee(restricted, Chunk{MinRole: MinRoleGuest}))
	})

	t.Run("untagged chunk visible without restriction", func(t *testing.T) {
		t.Parallel()
		assert.True(t, CanSee(analyst(), Chunk{MinRole: MinRoleGuest}))
	})
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("The iPhone 15 Pro grew 6.2% in APAC, and it was strong")
	assert.Contains(t, got, "iphone")
	assert.Contains(t, got, "15")
	assert.Contains(t, got, "6.2%")
	assert.Contains(t, got, "apac")
	assert.Contains(t, got, "strong")

	// Stop words and single characters are dropped.
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "and")
	assert.NotContains(t, got, "it")
	assert.NotContains(t, got, "in")
	assert.NotContains(t, got, "a")
}

func TestRetriever_TitleOutweighsBody(t *testing.T) {
	t.Parallel()

	chunks := []Chunk{
		{Title: "Mac Overview", Text: "iphone iphone iphone mentioned in passing", MinRole: MinRoleGuest},
		{Title: "iPhone Overview", Text: "nothing relevant here", MinRole: MinRoleGuest},
	}

	r := NewRetriever(1)
	got := r.TopK("iphone", chunks, admin())
	require.Len(t, got, 1)
	// One title hit scores 3, one body hit scores 1 (tokens are distinct).
	assert.Equal(t, "iPhone Overview", got[0].Title)
}

func TestRetriever_StableTieOrder(t *testing.T) {
	t.Parallel()

	chunks := []Chunk{
		{Title: "First", Text: "services growth", MinRole: MinRoleGuest},
		{Title: "Second", Text: "services growth", MinRole: MinRoleGuest},
		{Title: "Third", Text: "services growth", MinRole: MinRoleGuest},
	}

	r := NewRetriever(3)
	got := r.TopK("services", chunks, admin())
	require.Len(t, got, 3)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "Second", got[1].Title)
	assert.Equal(t, "Third", got[2].Title)
}

func TestRetriever_FiltersBeforeRanking(t *testing.T) {
	t.Parallel()

	chunks := []Chunk{
		{Title: "iPhone Unit Detail", Text: "iphone units", MinRole: MinRoleAnalyst},
		{Title: "iPhone Summary", Text: "iphone at a glance", MinRole: MinRoleGuest},
	}

	r := NewRetriever(4)

	got := r.TopK("iphone units", chunks, guest())
	require.Len(t, got, 1)
	assert.Equal(t, "iPhone Summary", got[0].Title)

	got = r.TopK("iphone units", chunks, analyst())
	require.Len(t, got, 2)
	assert.Equal(t, "iPhone Unit Detail", got[0].Title)
}

func TestRetriever_RespectsTopK(t *testing.T) {
	t.Parallel()

	var chunks []Chunk
	for range 10 {
		chunks = append(chunks, Chunk{Title: "Services", Text: "services", MinRole: MinRoleGuest})
	}

	got := NewRetriever(4).TopK("services", chunks, guest())
	assert.Len(t, got, 4)
}

func TestRetriever_EndToEndCorpus(t *testing.T) {
	t.Parallel()

	s := loadCorpus(t, testCorpus, 700)
	r := NewRetriever(4)

	guestView := r.TopK("iphone units apac", s.All(), guest())
	require.Len(t, guestView, 1)
	assert.Equal(t, "Executive Summary Q3", guestView[0].Title)

	analystView := r.TopK("iphone units apac", s.All(), analyst())
	require.Len(t, analystView, 2)
	assert.Equal(t, "iPhone Unit Detail Q3", analystView[0].Title)

	adminView := r.TopK("margin target emea", s.All(), admin())
	require.Len(t, adminView, 3)
	assert.Equal(t, "Confidential Margin Notes", adminView[0].Title)
}
