// Package llm talks to interchangeable chat-completion backends. Each
// backend has one adapter that owns its wire format; the rest of the system
// sees a single Provider contract returning plain text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// temperature is fixed for all providers; answers should stay close
	// to the supplied context.
	temperature = 0.2

	// connectTimeout bounds dialing separately from the overall request
	// timeout, so a dead host fails fast.
	connectTimeout = 10 * time.Second
)

var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Message is one chat turn on the wire. Role is "system", "user" or
// "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider executes one chat completion. Implementations make a single
// blocking call with no retries; any failure surfaces as a *Error.
type Provider interface {
	// Chat sends the messages and returns the assistant text.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Key is the stable registry key, e.g. "openai" or "ollama".
	Key() string
}

// Error tags a provider failure with the provider key so callers can tell
// which backend failed without parsing message text.
type Error struct {
	ProviderKey string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.ProviderKey, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr tags err with the provider key unless it is already tagged.
func wrapErr(key string, err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{ProviderKey: key, Err: err}
}

// newHTTPClient builds a client with a bounded connect timeout and a
// bounded total request time. A hung backend fails the call instead of
// hanging the caller.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}
}

// normalizeBaseURL strips a trailing slash so path joins stay predictable.
func normalizeBaseURL(base string) string {
	return strings.TrimRight(base, "/")
}
