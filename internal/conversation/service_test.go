package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/chat"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	conversations map[uuid.UUID]Conversation
	messages      map[uuid.UUID][]Message
}

func newMemRepo() *memRepo {
	return &memRepo{
		conversations: map[uuid.UUID]Conversation{},
		messages:      map[uuid.UUID][]Message{},
	}
}

func (r *memRepo) CreateConversation(_ context.Context, title, userID string) (Conversation, error) {
	c := Conversation{ID: uuid.New(), Title: title, UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.conversations[c.ID] = c
	return c, nil
}

func (r *memRepo) GetConversation(_ context.Context, id uuid.UUID) (Conversation, error) {
	c, ok := r.conversations[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

func (r *memRepo) InsertUserMessage(_ context.Context, conversationID uuid.UUID, content string) (uuid.UUID, error) {
	m := Message{ID: uuid.New(), ConversationID: conversationID, Role: RoleUser, Content: content, CreatedAt: time.Now()}
	r.messages[conversationID] = append(r.messages[conversationID], m)
	return m.ID, nil
}

func (r *memRepo) InsertAssistantMessage(_ context.Context, conversationID, replyTo uuid.UUID, content string, latency time.Duration) (Message, error) {
	key := uuid.New()
	latencyMS := latency.Milliseconds()
	m := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        content,
		LatencyMS:      &latencyMS,
		IdempotencyKey: &key,
		ReplyTo:        &replyTo,
		CreatedAt:      time.Now(),
	}
	r.messages[conversationID] = append(r.messages[conversationID], m)
	return m, nil
}

func (r *memRepo) HasUserMessage(_ context.Context, conversationID uuid.UUID, content string) (bool, error) {
	for _, m := range r.messages[conversationID] {
		if m.Role == RoleUser && m.Content == content {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) LastAssistantMessage(_ context.Context, conversationID uuid.UUID) (Message, error) {
	msgs := r.messages[conversationID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleAssistant {
			return msgs[i], nil
		}
	}
	return Message{}, ErrNoAssistantReply
}

func (r *memRepo) ListMessages(_ context.Context, conversationID uuid.UUID) ([]Message, error) {
	return r.messages[conversationID], nil
}

// countingAsker returns canned answers and counts invocations.
type countingAsker struct {
	answer chat.Answer
	err    error
	calls  int
}

func (a *countingAsker) Ask(context.Context, auth.UserContext, string, string) (chat.Answer, error) {
	a.calls++
	if a.err != nil {
		return chat.Answer{}, a.err
	}
	return a.answer, nil
}

func analyst() auth.UserContext {
	return auth.UserContext{UserID: "u2", TenantID: "t1", Roles: []string{auth.RoleAnalyst}}
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	asker := &countingAsker{answer: chat.Answer{RoleBanner: "ROLE=ANALYST", Text: "the answer"}}
	svc := NewService(repo, asker, nil)

	res, err := svc.Create(context.Background(), analyst(), "iphone units in apac")
	require.NoError(t, err)

	assert.Equal(t, "the answer", res.Answer)
	assert.Equal(t, "ROLE=ANALYST", res.RoleBanner)
	assert.NotEqual(t, uuid.Nil, res.IdempotencyKey)
	assert.Equal(t, 1, asker.calls)

	conv, err := svc.Get(context.Background(), res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "iphone units in apac", conv.Title)
	assert.Equal(t, "u2", conv.UserID)

	msgs, err := svc.Messages(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "iphone units in apac", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	require.NotNil(t, msgs[1].ReplyTo)
	assert.Equal(t, msgs[0].ID, *msgs[1].ReplyTo)
}

func TestService_Create_DefaultTitle(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	svc := NewService(repo, &countingAsker{answer: chat.Answer{Text: "ok"}}, nil)

	res, err := svc.Create(context.Background(), analyst(), "   ")
	require.NoError(t, err)

	conv, err := svc.Get(context.Background(), res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", conv.Title)
}

func TestService_Append(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	asker := &countingAsker{answer: chat.Answer{RoleBanner: "ROLE=ANALYST", Text: "first answer"}}
	svc := NewService(repo, asker, nil)

	created, err := svc.Create(context.Background(), analyst(), "opening question")
	require.NoError(t, err)

	res, err := svc.Append(context.Background(), analyst(), created.ConversationID, "follow-up question")
	require.NoError(t, err)
	assert.Equal(t, "first answer", res.Answer)
	assert.Equal(t, 2, asker.calls)

	msgs, err := svc.Messages(context.Background(), created.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestService_Append_DuplicateReplaysStoredAnswer(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	asker := &countingAsker{answer: chat.Answer{RoleBanner: "ROLE=ANALYST", Text: "stored answer"}}
	svc := NewService(repo, asker, nil)

	created, err := svc.Create(context.Background(), analyst(), "same question")
	require.NoError(t, err)
	require.Equal(t, 1, asker.calls)

	res, err := svc.Append(context.Background(), analyst(), created.ConversationID, "same question")
	require.NoError(t, err)

	assert.Equal(t, "stored answer", res.Answer)
	assert.Equal(t, "ROLE=ANALYST", res.RoleBanner)
	// The model must not be invoked again for identical input.
	assert.Equal(t, 1, asker.calls)

	// And no new messages are stored.
	msgs, err := svc.Messages(context.Background(), created.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestService_Append_UnknownConversation(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemRepo(), &countingAsker{}, nil)
	_, err := svc.Append(context.Background(), analyst(), uuid.New(), "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Append_AskerError(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	conv, err := repo.CreateConversation(context.Background(), "t", "u2")
	require.NoError(t, err)

	svc := NewService(repo, &countingAsker{err: errors.New("provider down")}, nil)
	_, err = svc.Append(context.Background(), analyst(), conv.ID, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestService_Messages_UnknownConversation(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemRepo(), &countingAsker{}, nil)
	_, err := svc.Messages(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
