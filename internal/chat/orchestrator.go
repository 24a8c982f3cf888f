package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/kb"
	"github.com/salesdesk/salesdesk/internal/llm"
	"github.com/salesdesk/salesdesk/internal/log"
)

// ChunkSource yields the loaded knowledge base.
type ChunkSource interface {
	All() []kb.Chunk
}

// ProviderSelector resolves the provider for an optional override key.
type ProviderSelector interface {
	Select(overrideKey string) (llm.Provider, error)
}

// Citation points at one chunk that was placed into the prompt.
type Citation struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Title   string    `json:"title"`
	Tags    []string  `json:"tags"`
}

// Answer is the orchestrator's result: the styled banner, the model's text,
// and exactly the chunks the prompt was grounded on.
type Answer struct {
	RoleBanner string     `json:"role"`
	Text       string     `json:"answer"`
	Citations  []Citation `json:"citations"`
}

// Orchestrator runs the retrieval-augmented pipeline for one question:
// policy-filtered retrieval, prompt composition, provider invocation.
type Orchestrator struct {
	source    ChunkSource
	retriever *kb.Retriever
	selector  ProviderSelector
	prompts   *PromptLoader
	logger    log.Logger
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(source ChunkSource, retriever *kb.Retriever, selector ProviderSelector, prompts *PromptLoader, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		source:    source,
		retriever: retriever,
		selector:  selector,
		prompts:   prompts,
		logger:    logger,
	}
}

// Ask answers a question for the caller. providerOverride may name a
// registered provider; anything else uses the configured default. The
// citations list exactly the chunks rendered into the prompt.
func (o *Orchestrator) Ask(ctx context.Context, caller auth.UserContext, question, providerOverride string) (Answer, error) {
	systemPrompt, err := o.prompts.Load()
	if err != nil {
		return Answer{}, err
	}

	contextChunks := o.retriever.TopK(question, o.source.All(), caller)
	roleBanner := RoleBanner(caller)
	prompt := buildPrompt(roleBanner, contextChunks, question)

	provider, err := o.selector.Select(providerOverride)
	if err != nil {
		return Answer{}, err
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	text, err := provider.Chat(ctx, messages)
	if err != nil {
		return Answer{}, fmt.Errorf("chat completion: %w", err)
	}

	citations := make([]Citation, 0, len(contextChunks))
	for _, c := range contextChunks {
		citations = append(citations, Citation{ChunkID: c.ID, Title: c.Title, Tags: c.Tags})
	}

	o.logger.Info("question answered",
		"user_id", caller.UserID,
		"provider", provider.Key(),
		"context_chunks", len(contextChunks),
	)

	return Answer{RoleBanner: roleBanner, Text: text, Citations: citations}, nil
}
