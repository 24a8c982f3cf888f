package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/log"
)

// maxBodyBytes bounds request bodies; nothing this API accepts is large.
const maxBodyBytes = 1 << 20

type authHandler struct {
	service *auth.Service
	logger  log.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID           string   `json:"user_id"`
	Email            string   `json:"email"`
	Roles            []string `json:"roles"`
	AccessToken      string   `json:"access_token"`
	TokenType        string   `json:"token_type"`
	ExpiresInSeconds int64    `json:"expires_in_seconds"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_body", "email and password are required", h.logger)
		return
	}

	res, err := h.service.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", h.logger)
			return
		}
		h.logger.Error("login failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "login_failed", "login failed", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, loginResponse{
		UserID:           res.User.ID,
		Email:            res.User.Email,
		Roles:            res.User.Roles,
		AccessToken:      res.Token,
		TokenType:        "Bearer",
		ExpiresInSeconds: int64(res.ExpiresIn.Seconds()),
	}, h.logger)
}

// decodeBody decodes a bounded JSON body into dst, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger log.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", logger)
		return false
	}
	return true
}
