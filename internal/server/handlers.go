package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/rewired-gh/powerpick/internal/history"
	"github.com/rewired-gh/powerpick/internal/logger"
	"github.com/rewired-gh/powerpick/internal/models"
	"github.com/rewired-gh/powerpick/internal/picker"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// PickResponse is the body of GET /api/pick.
type PickResponse struct {
	Picks []models.Pick `json:"picks"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type indexData struct {
	Batch *models.Batch
	Error string
}

// handlePick generates a fresh batch for the web client.
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	batch, err := s.generator.Generate(r.Context())
	if err != nil {
		logGenerateError(err)
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("X-Batch-ID", batch.ID)
	writeJSON(w, http.StatusOK, PickResponse{Picks: batch.Picks})
}

// handleIndex renders a fresh batch as HTML.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	data := indexData{}

	batch, err := s.generator.Generate(r.Context())
	if err != nil {
		logGenerateError(err)
		status = http.StatusInternalServerError
		data.Error = err.Error()
	} else {
		data.Batch = batch
		w.Header().Set("X-Batch-ID", batch.ID)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		logger.Error("Failed to render index: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
	})
}

func logGenerateError(err error) {
	var loadErr *history.DataLoadError
	var insufficient *picker.InsufficientCandidatesError
	switch {
	case errors.As(err, &loadErr):
		logger.Error("Draw history unavailable: %v", err)
	case errors.As(err, &insufficient):
		logger.Error("Pick generation failed: %v", err)
	default:
		logger.Warn("Pick generation aborted: %v", err)
	}
}
