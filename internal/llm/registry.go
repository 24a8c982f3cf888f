package llm

import (
	"fmt"
	"sort"

	"github.com/salesdesk/salesdesk/internal/log"
)

// Registry maps provider keys to adapters. It is built once at startup and
// read-only afterwards, so concurrent lookups need no locking.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes the given providers by key.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Key()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider for key.
func (r *Registry) Get(key string) (Provider, bool) {
	p, ok := r.providers[key]
	return p, ok
}

// Keys returns the registered provider keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Selector picks a provider per request: a known override key wins, anything
// else falls back to the configured default.
type Selector struct {
	registry   *Registry
	defaultKey string
	logger     log.Logger
}

// NewSelector returns a selector falling back to defaultKey.
func NewSelector(registry *Registry, defaultKey string, logger log.Logger) *Selector {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Selector{registry: registry, defaultKey: defaultKey, logger: logger}
}

// Select resolves the provider for an optional override key. An override
// that is not registered silently falls back to the default; a missing
// default is a configuration defect and fails loudly.
func (s *Selector) Select(overrideKey string) (Provider, error) {
	key := s.defaultKey
	if overrideKey != "" {
		if _, ok := s.registry.Get(overrideKey); ok {
			key = overrideKey
		}
	}

	p, ok := s.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %v)", ErrUnknownProvider, key, s.registry.Keys())
	}

	s.logger.Info("selected llm provider", "provider", p.Key())
	return p, nil
}
