// Package conversation persists chat history and runs the ask-and-record
// flow: store the user's message, invoke the grounded pipeline, store the
// assistant's reply.
package conversation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means the conversation id does not exist or is deleted.
	ErrNotFound = errors.New("conversation not found")

	// ErrNoAssistantReply means a duplicate user message was detected but
	// no stored assistant answer exists to replay.
	ErrNoAssistantReply = errors.New("no assistant reply recorded")
)

// Message roles as stored in the database.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// defaultTitle is used when a conversation is created without one.
const defaultTitle = "New Conversation"

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one stored turn. LatencyMS, IdempotencyKey and ReplyTo are set
// on assistant messages only.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	LatencyMS      *int64     `json:"latency_ms,omitempty"`
	IdempotencyKey *uuid.UUID `json:"idempotency_key,omitempty"`
	ReplyTo        *uuid.UUID `json:"reply_to_message_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
