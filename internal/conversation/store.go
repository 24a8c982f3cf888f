package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/salesdesk/salesdesk/internal/log"
)

// DB is the slice of the pgx pool the store needs. *pgxpool.Pool satisfies
// it; tests can substitute anything else.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes conversations and messages in PostgreSQL. It is
// safe for concurrent use; every method takes its own context.
type Store struct {
	db     DB
	logger log.Logger
}

// NewStore returns a store over the given connection pool.
func NewStore(db DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// CreateConversation inserts a new conversation and returns it.
func (s *Store) CreateConversation(ctx context.Context, title, userID string) (Conversation, error) {
	var c Conversation
	err := s.db.QueryRow(ctx, `
		INSERT INTO conversations (title, user_id)
		VALUES ($1, $2)
		RETURNING id, title, user_id, created_at, updated_at`,
		title, userID,
	).Scan(&c.ID, &c.Title, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Debug("conversation created", "id", c.ID, "user_id", userID)
	return c, nil
}

// GetConversation returns a conversation by id. Soft-deleted conversations
// count as not found.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var c Conversation
	err := s.db.QueryRow(ctx, `
		SELECT id, title, user_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND NOT deleted`,
		id,
	).Scan(&c.ID, &c.Title, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// InsertUserMessage stores a user turn and returns its id.
func (s *Store) InsertUserMessage(ctx context.Context, conversationID uuid.UUID, content string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id`,
		conversationID, RoleUser, content,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user message: %w", err)
	}
	return id, nil
}

// InsertAssistantMessage stores an assistant turn answering replyTo. Every
// assistant message gets a fresh idempotency key.
func (s *Store) InsertAssistantMessage(ctx context.Context, conversationID, replyTo uuid.UUID, content string, latency time.Duration) (Message, error) {
	latencyMS := latency.Milliseconds()
	key := uuid.New()

	var m Message
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, role, content, latency_ms, idempotency_key, reply_to_message_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, conversation_id, role, content, latency_ms, idempotency_key, reply_to_message_id, created_at`,
		conversationID, RoleAssistant, content, latencyMS, key, replyTo,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.LatencyMS, &m.IdempotencyKey, &m.ReplyTo, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert assistant message: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, conversationID); err != nil {
		return Message{}, fmt.Errorf("touch conversation: %w", err)
	}
	return m, nil
}

// HasUserMessage reports whether the conversation already contains a user
// turn with exactly this content.
func (s *Store) HasUserMessage(ctx context.Context, conversationID uuid.UUID, content string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE conversation_id = $1 AND role = $2 AND content = $3
		)`,
		conversationID, RoleUser, content,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate message: %w", err)
	}
	return exists, nil
}

// LastAssistantMessage returns the newest assistant turn in the
// conversation.
func (s *Store) LastAssistantMessage(ctx context.Context, conversationID uuid.UUID) (Message, error) {
	var m Message
	err := s.db.QueryRow(ctx, `
		SELECT id, conversation_id, role, content, latency_ms, idempotency_key, reply_to_message_id, created_at
		FROM messages
		WHERE conversation_id = $1 AND role = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		conversationID, RoleAssistant,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.LatencyMS, &m.IdempotencyKey, &m.ReplyTo, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNoAssistantReply
	}
	if err != nil {
		return Message{}, fmt.Errorf("last assistant message: %w", err)
	}
	return m, nil
}

// ListMessages returns every message in the conversation, oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, role, content, latency_ms, idempotency_key, reply_to_message_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&m.LatencyMS, &m.IdempotencyKey, &m.ReplyTo, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}
