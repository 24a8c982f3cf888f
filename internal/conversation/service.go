package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/chat"
	"github.com/salesdesk/salesdesk/internal/log"
)

// Repository is the persistence surface the service needs. *Store satisfies
// it; tests use a mock.
type Repository interface {
	CreateConversation(ctx context.Context, title, userID string) (Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error)
	InsertUserMessage(ctx context.Context, conversationID uuid.UUID, content string) (uuid.UUID, error)
	InsertAssistantMessage(ctx context.Context, conversationID, replyTo uuid.UUID, content string, latency time.Duration) (Message, error)
	HasUserMessage(ctx context.Context, conversationID uuid.UUID, content string) (bool, error)
	LastAssistantMessage(ctx context.Context, conversationID uuid.UUID) (Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
}

// Asker runs the grounded question pipeline.
type Asker interface {
	Ask(ctx context.Context, caller auth.UserContext, question, providerOverride string) (chat.Answer, error)
}

// Result is returned from Create and Append: the stored assistant answer
// plus its bookkeeping.
type Result struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Answer         string          `json:"answer"`
	IdempotencyKey uuid.UUID       `json:"idempotency_key"`
	LatencyMS      int64           `json:"latency_ms"`
	RoleBanner     string          `json:"role"`
	Citations      []chat.Citation `json:"citations,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Service runs the conversational flow on top of the repository and the
// chat pipeline.
type Service struct {
	repo   Repository
	asker  Asker
	logger log.Logger
}

// NewService wires the repository and the chat pipeline together.
func NewService(repo Repository, asker Asker, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{repo: repo, asker: asker, logger: logger}
}

// Create starts a conversation. The title doubles as the opening question:
// it is stored as the first user message and answered immediately.
func (s *Service) Create(ctx context.Context, caller auth.UserContext, title string) (Result, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}

	conv, err := s.repo.CreateConversation(ctx, title, caller.UserID)
	if err != nil {
		return Result{}, err
	}
	return s.ask(ctx, caller, conv.ID, title)
}

// Append adds a user message to an existing conversation and answers it.
// If the conversation already contains an identical user message, the most
// recent stored assistant answer is returned instead of invoking the model
// again.
func (s *Service) Append(ctx context.Context, caller auth.UserContext, conversationID uuid.UUID, message string) (Result, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return Result{}, err
	}

	duplicate, err := s.repo.HasUserMessage(ctx, conversationID, message)
	if err != nil {
		return Result{}, err
	}
	if duplicate {
		s.logger.Info("duplicate input, replaying stored answer",
			"conversation_id", conversationID, "user_id", caller.UserID)
		return s.replay(ctx, caller, conversationID)
	}

	return s.ask(ctx, caller, conversationID, message)
}

// Get returns a conversation by id.
func (s *Service) Get(ctx context.Context, conversationID uuid.UUID) (Conversation, error) {
	return s.repo.GetConversation(ctx, conversationID)
}

// Messages returns a conversation's messages, oldest first.
func (s *Service) Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID)
}

// ask stores the user turn, invokes the pipeline, stores the reply.
func (s *Service) ask(ctx context.Context, caller auth.UserContext, conversationID uuid.UUID, question string) (Result, error) {
	userMsgID, err := s.repo.InsertUserMessage(ctx, conversationID, question)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	answer, err := s.asker.Ask(ctx, caller, question, "")
	if err != nil {
		return Result{}, fmt.Errorf("answer question: %w", err)
	}
	latency := time.Since(start)

	assistant, err := s.repo.InsertAssistantMessage(ctx, conversationID, userMsgID, answer.Text, latency)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ConversationID: conversationID,
		Answer:         answer.Text,
		IdempotencyKey: keyOf(assistant),
		LatencyMS:      latency.Milliseconds(),
		RoleBanner:     answer.RoleBanner,
		Citations:      answer.Citations,
		CreatedAt:      assistant.CreatedAt,
	}, nil
}

// replay packages the newest stored assistant answer as a Result.
func (s *Service) replay(ctx context.Context, caller auth.UserContext, conversationID uuid.UUID) (Result, error) {
	last, err := s.repo.LastAssistantMessage(ctx, conversationID)
	if err != nil {
		return Result{}, err
	}

	var latencyMS int64
	if last.LatencyMS != nil {
		latencyMS = *last.LatencyMS
	}
	return Result{
		ConversationID: conversationID,
		Answer:         last.Content,
		IdempotencyKey: keyOf(last),
		LatencyMS:      latencyMS,
		RoleBanner:     chat.RoleBanner(caller),
		CreatedAt:      last.CreatedAt,
	}, nil
}

func keyOf(m Message) uuid.UUID {
	if m.IdempotencyKey == nil {
		return uuid.Nil
	}
	return *m.IdempotencyKey
}
