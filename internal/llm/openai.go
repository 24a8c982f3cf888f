package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/salesdesk/salesdesk/internal/log"
)

const openAIKey = "openai"

// OpenAI calls an OpenAI-compatible chat completions endpoint: one JSON
// request, one JSON response.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  log.Logger
}

// NewOpenAI returns an adapter for the endpoint at baseURL. The timeout
// bounds the whole request including reading the response.
func NewOpenAI(baseURL, model, apiKey string, timeout time.Duration, logger log.Logger) *OpenAI {
	if logger == nil {
		logger = log.NewNop()
	}
	return &OpenAI{
		baseURL: normalizeBaseURL(baseURL),
		model:   model,
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

func (o *OpenAI) Key() string { return openAIKey }

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat performs one completion. Exactly one attempt is made; transport and
// shape failures come back tagged with the provider key.
func (o *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(openAIRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", wrapErr(openAIKey, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", wrapErr(openAIKey, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", wrapErr(openAIKey, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapErr(openAIKey, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", wrapErr(openAIKey, fmt.Errorf("unexpected status %d: %s",
			resp.StatusCode, truncate(body, 200)))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", wrapErr(openAIKey, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", wrapErr(openAIKey, fmt.Errorf("%w: keys %v", ErrMalformedResponse, topLevelKeys(body)))
	}

	o.logger.Debug("openai call ok", "model", o.model)
	return parsed.Choices[0].Message.Content, nil
}

// topLevelKeys lists a JSON object's keys for malformed-response errors.
// The raw body may contain prompt text, so only key names are reported.
func topLevelKeys(body []byte) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
