package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/KaramelBytes/ags-analyzer/internal/ai"
	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/dataset"
	"github.com/KaramelBytes/ags-analyzer/internal/insight"
	"github.com/KaramelBytes/ags-analyzer/internal/session"
)

type errorBody struct {
	Error      string                  `json:"error"`
	Kind       string                  `json:"kind,omitempty"`
	State      string                  `json:"state,omitempty"`
	Invalid    int                     `json:"invalid,omitempty"`
	Total      int                     `json:"total,omitempty"`
	Samples    []analysis.InvalidValue `json:"samples,omitempty"`
	RetryAfter int                     `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error onto a response status and body.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var (
		schemaErr *analysis.SchemaError
		typeErr   *analysis.TypeError
		valueErr  *analysis.ValueError
		stateErr  *session.StateError
	)
	switch {
	case errors.As(err, &schemaErr):
		body.Kind = schemaErr.MetricLabel()
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &typeErr):
		body.Kind = typeErr.MetricLabel()
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &valueErr):
		body.Kind = valueErr.MetricLabel()
		body.Invalid = valueErr.Invalid
		body.Total = valueErr.Total
		body.Samples = valueErr.Samples
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &stateErr):
		body.Kind = "invalid_state"
		body.State = stateErr.State.String()
		return http.StatusConflict, body
	case errors.Is(err, session.ErrNotFound):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, dataset.ErrEmptyDataset), errors.Is(err, dataset.ErrUnsupportedFormat):
		body.Kind = "invalid_dataset"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, insight.ErrEmptyQuestion):
		body.Kind = "invalid_question"
		return http.StatusBadRequest, body
	case errors.Is(err, insight.ErrNoRuntime):
		body.Kind = "llm_unavailable"
		return http.StatusServiceUnavailable, body
	case errors.Is(err, insight.ErrEmptyAnswer):
		body.Kind = "llm_error"
		return http.StatusBadGateway, body
	}
	status := ai.HTTPStatus(err)
	if status != http.StatusInternalServerError {
		body.Kind = "llm_error"
	}
	return status, body
}

// writeError answers with the classified status. Server-side failures are
// logged and reported to Sentry.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	} else {
		s.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// badRequest answers 400 for malformed request bodies.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.log.Debug("bad request", "method", r.Method, "path", r.URL.Path, "reason", msg)
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: "bad_request"})
}
