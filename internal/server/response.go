package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rewired-gh/powerpick/internal/logger"
)

// ErrorResponse is the JSON body of every non-2xx API answer. RequestID matches
// the X-Request-ID response header so a failed call can be found in the logs.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write %d response: %v", status, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID := middleware.GetReqID(r.Context())
	if reqID != "" {
		w.Header().Set("X-Request-ID", reqID)
	}
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   err.Error(),
		Code:      status,
		RequestID: reqID,
	})
}
