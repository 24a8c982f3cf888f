// Package chat composes grounded prompts from policy-visible knowledge and
// routes them through the selected model provider.
package chat

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/kb"
)

// Role banners styled into the prompt. They tell the model who is asking;
// access decisions never read them.
const (
	bannerAdmin   = "ROLE=ADMIN"
	bannerAnalyst = "ROLE=ANALYST"
	bannerGuest   = "ROLE=GUEST"
)

// groundingInstruction pins the model to the supplied context.
const groundingInstruction = "Answer STRICTLY using the CONTEXT. If data is not visible for your role, say so.\n\n"

// PromptLoader reads the system prompt file once and caches it. A missing
// file is a deployment defect surfaced on first use.
type PromptLoader struct {
	path string
	once sync.Once
	text string
	err  error
}

// NewPromptLoader returns a loader for the prompt file at path.
func NewPromptLoader(path string) *PromptLoader {
	return &PromptLoader{path: path}
}

// Load returns the system prompt text. The file is read on the first call
// only; later calls return the cached text or the cached failure.
func (l *PromptLoader) Load() (string, error) {
	l.once.Do(func() {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			l.err = fmt.Errorf("load system prompt %s: %w", l.path, err)
			return
		}
		l.text = strings.TrimRight(string(raw), "\n")
	})
	return l.text, l.err
}

// RoleBanner derives the prompt banner from the caller's highest role. It
// styles the prompt and response metadata only; access decisions never
// consult it.
func RoleBanner(caller auth.UserContext) string {
	switch caller.RoleLevel() {
	case auth.LevelAdmin:
		return bannerAdmin
	case auth.LevelAnalyst:
		return bannerAnalyst
	default:
		return bannerGuest
	}
}

// buildPrompt renders the composite user prompt: banner, grounding
// instruction, each context chunk as a titled block tagged with its id,
// then the question.
func buildPrompt(roleBanner string, contextChunks []kb.Chunk, question string) string {
	var sb strings.Builder
	sb.WriteString(roleBanner)
	sb.WriteByte('\n')
	sb.WriteString(groundingInstruction)
	sb.WriteString("CONTEXT:\n")
	for _, c := range contextChunks {
		fmt.Fprintf(&sb, "### %s [%s]\n%s\n\n", c.Title, c.ID, c.Text)
	}
	sb.WriteString("QUESTION:\n")
	sb.WriteString(question)
	return sb.String()
}
