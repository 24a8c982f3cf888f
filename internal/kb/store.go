package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/log"
)

// defaultTitle is assigned to text that appears before the first heading.
const defaultTitle = "General"

// headingLine matches markdown-style headings: leading hashes, whitespace,
// then the title.
var headingLine = regexp.MustCompile(`^\s*#+\s+(.+)$`)

// chunkNamespace seeds the deterministic chunk ids. Reloading an unchanged
// corpus yields the same ids.
var chunkNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Store loads the corpus file and holds the resulting chunks. Load runs
// once at startup; afterwards the store is read-only and needs no locking.
type Store struct {
	path      string
	chunkSize int
	logger    log.Logger
	chunks    []Chunk
}

// NewStore returns a store for the corpus at path. Chunks longer than
// chunkSize bytes are re-split at paragraph boundaries during Load.
func NewStore(path string, chunkSize int, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{path: path, chunkSize: chunkSize, logger: logger}
}

// Load reads the corpus and builds the chunk list. It must be called once
// before All.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read corpus %s: %w", s.path, err)
	}

	docID := filepath.Base(s.path)
	var out []Chunk
	seq := 0

	for _, sec := range splitByHeadings(string(raw)) {
		for _, piece := range splitBySize(sec.body, s.chunkSize) {
			out = append(out, Chunk{
				ID:      uuid.NewSHA1(chunkNamespace, fmt.Appendf(nil, "kb-%d", seq)),
				DocID:   docID,
				Title:   sec.title,
				Text:    strings.TrimSpace(piece),
				Scope:   inferScope(sec.title),
				MinRole: inferMinRole(sec.title),
				Tags:    inferTags(sec.title, piece),
			})
			seq++
		}
	}

	s.chunks = out
	s.logger.Info("knowledge base loaded", "path", s.path, "chunks", len(out))
	return nil
}

// All returns every chunk. Callers must not mutate the result.
func (s *Store) All() []Chunk { return s.chunks }

type section struct {
	title string
	body  string
}

// splitByHeadings cuts the corpus into titled sections. Text before the
// first heading falls under the default title.
func splitByHeadings(text string) []section {
	var sections []section
	title := defaultTitle
	var buf strings.Builder

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if m := headingLine.FindStringSubmatch(line); m != nil {
			if buf.Len() > 0 {
				sections = append(sections, section{title, strings.TrimSpace(buf.String())})
				buf.Reset()
			}
			title = strings.TrimSpace(m[1])
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if buf.Len() > 0 {
		sections = append(sections, section{title, strings.TrimSpace(buf.String())})
	}
	return sections
}

// splitBySize re-splits an oversized body at the last paragraph break that
// fits, falling back to a hard cut when a paragraph alone exceeds the size.
func splitBySize(body string, size int) []string {
	if len(body) <= size {
		return []string{body}
	}

	var out []string
	i := 0
	for i < len(body) {
		end := min(i+size, len(body))
		cut := strings.LastIndex(body[:min(end+2, len(body))], "\n\n")
		if cut <= i {
			cut = end
		}
		out = append(out, body[i:cut])
		i = cut
	}
	return out
}
