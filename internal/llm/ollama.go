package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/salesdesk/salesdesk/internal/log"
)

const ollamaKey = "ollama"

// Ollama calls an Ollama-compatible /api/chat endpoint. The server answers
// either with a single JSON object or with newline-delimited streaming JSON
// depending on version and configuration; both shapes normalize to the same
// plain text.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	logger  log.Logger
}

// NewOllama returns an adapter for the server at baseURL.
func NewOllama(baseURL, model string, timeout time.Duration, logger log.Logger) *Ollama {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ollama{
		baseURL: normalizeBaseURL(baseURL),
		model:   model,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

func (o *Ollama) Key() string { return ollamaKey }

type ollamaRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ollamaLine is one streamed NDJSON object. The final object has Done set.
type ollamaLine struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat performs one completion, draining a streaming response fully before
// returning. Exactly one attempt is made.
func (o *Ollama) Chat(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", wrapErr(ollamaKey, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", wrapErr(ollamaKey, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", wrapErr(ollamaKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", wrapErr(ollamaKey, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/x-ndjson") {
		text, err := parseNDJSON(resp.Body)
		if err != nil {
			return "", wrapErr(ollamaKey, err)
		}
		return text, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapErr(ollamaKey, fmt.Errorf("read response: %w", err))
	}
	text, err := parseSingleJSON(body)
	if err != nil {
		return "", wrapErr(ollamaKey, err)
	}

	o.logger.Debug("ollama call ok", "model", o.model)
	return text, nil
}

// parseNDJSON concatenates message.content across lines, stopping at the
// first line with done set. Blank lines are skipped.
func parseNDJSON(r io.Reader) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var obj ollamaLine
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return "", fmt.Errorf("decode stream line: %w", err)
		}
		out.WriteString(obj.Message.Content)
		if obj.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return out.String(), nil
}

// parseSingleJSON extracts message.content from one JSON object, falling
// back to the last element of a messages array for servers that echo the
// full conversation.
func parseSingleJSON(body []byte) (string, error) {
	var root struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if root.Message.Content != nil {
		return *root.Message.Content, nil
	}
	if n := len(root.Messages); n > 0 {
		return root.Messages[n-1].Content, nil
	}
	return "", fmt.Errorf("%w: keys %v", ErrMalformedResponse, topLevelKeys(body))
}
