// Package api exposes HTTP handlers for the marathon service.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"example.com/marathon/internal/domain"
	"example.com/marathon/internal/logging"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	running      *domain.RunningService
	marathons    *domain.MarathonService
	applications *domain.ApplicationService
}

// NewHandler builds a Handler.
func NewHandler(running *domain.RunningService, marathons *domain.MarathonService, applications *domain.ApplicationService) *Handler {
	return &Handler{running: running, marathons: marathons, applications: applications}
}

func root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello World!"))
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	return json.NewDecoder(body).Decode(dst)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// notFound is the message used for 404 responses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", notFound)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "Server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	payload := map[string]string{
		"type":  code,
		"error": message,
	}
	writeJSON(w, status, payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeJSON encodes before writing the header so that an unencodable
// payload turns into a 500 instead of a 2xx with a broken body.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Int("status", status).Msg("encode response")
		status = http.StatusInternalServerError
		body = []byte(`{"type":"server_error","error":"Server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
