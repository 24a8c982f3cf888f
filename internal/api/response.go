package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/salesdesk/salesdesk/internal/log"
)

// WriteJSON writes a JSON response with the given status code. The body is
// encoded into a buffer first so headers are only sent after successful
// encoding; an encoding failure still gets a proper 500.
func WriteJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("write response body", "error", err)
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a structured error response. code is a stable machine
// readable identifier; message is for humans.
func WriteError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	WriteJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}}, logger)
}
