package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/conversation"
	"github.com/salesdesk/salesdesk/internal/log"
)

// maxMessageLen bounds the title and message fields.
const maxMessageLen = 4000

// conversationService is the slice of conversation.Service these handlers
// need.
type conversationService interface {
	Create(ctx context.Context, caller auth.UserContext, title string) (conversation.Result, error)
	Append(ctx context.Context, caller auth.UserContext, conversationID uuid.UUID, message string) (conversation.Result, error)
	Get(ctx context.Context, conversationID uuid.UUID) (conversation.Conversation, error)
	Messages(ctx context.Context, conversationID uuid.UUID) ([]conversation.Message, error)
}

type conversationHandler struct {
	service conversationService
	logger  log.Logger
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (h *conversationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if len(req.Title) > maxMessageLen {
		WriteError(w, http.StatusBadRequest, "invalid_body", "title too long", h.logger)
		return
	}

	caller := callerFromContext(r.Context())
	res, err := h.service.Create(r.Context(), caller, req.Title)
	if err != nil {
		h.writeServiceError(w, r, err, "create conversation")
		return
	}
	WriteJSON(w, http.StatusOK, res, h.logger)
}

type addMessageRequest struct {
	Message string `json:"message"`
}

func (h *conversationHandler) addMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req addMessageRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if strings.TrimSpace(req.Message) == "" || len(req.Message) > maxMessageLen {
		WriteError(w, http.StatusBadRequest, "invalid_body", "message is required and must be at most 4000 characters", h.logger)
		return
	}

	caller := callerFromContext(r.Context())
	res, err := h.service.Append(r.Context(), caller, conversationID, req.Message)
	if err != nil {
		h.writeServiceError(w, r, err, "append message")
		return
	}
	WriteJSON(w, http.StatusOK, res, h.logger)
}

func (h *conversationHandler) get(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	conv, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		h.writeServiceError(w, r, err, "get conversation")
		return
	}
	WriteJSON(w, http.StatusOK, conv, h.logger)
}

type messagesResponse struct {
	ConversationID uuid.UUID              `json:"conversation_id"`
	Messages       []conversation.Message `json:"messages"`
}

func (h *conversationHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	msgs, err := h.service.Messages(r.Context(), conversationID)
	if err != nil {
		h.writeServiceError(w, r, err, "list messages")
		return
	}
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	WriteJSON(w, http.StatusOK, messagesResponse{ConversationID: conversationID, Messages: msgs}, h.logger)
}

func (h *conversationHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid conversation id", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *conversationHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, conversation.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
		return
	}
	h.logger.Error(op+" failed",
		"error", err,
		"request_id", requestIDFromContext(r.Context()),
	)
	WriteError(w, http.StatusInternalServerError, "conversation_failed", op+" failed", h.logger)
}
