package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/conversation"
	"github.com/salesdesk/salesdesk/internal/llm"
	"github.com/salesdesk/salesdesk/internal/log"
)

type chatHandler struct {
	asker  conversation.Asker
	logger log.Logger
}

type chatRequest struct {
	Question string `json:"question"`
	Provider string `json:"provider,omitempty"`
}

// ask answers a one-shot question without persisting anything. Anonymous
// callers are served with guest visibility.
func (h *chatHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_body", "question is required", h.logger)
		return
	}

	caller := callerFromContext(r.Context())
	answer, err := h.asker.Ask(r.Context(), caller, req.Question, req.Provider)
	if err != nil {
		h.logger.Error("chat failed",
			"error", err,
			"user_id", caller.UserID,
			"request_id", requestIDFromContext(r.Context()),
		)
		if errors.Is(err, llm.ErrUnknownProvider) {
			WriteError(w, http.StatusBadGateway, "provider_unavailable", "no such llm provider configured", h.logger)
			return
		}
		var pe *llm.Error
		if errors.As(err, &pe) {
			WriteError(w, http.StatusBadGateway, "llm_failed", "llm backend call failed", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "chat_failed", "failed to answer question", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, answer, h.logger)
}
