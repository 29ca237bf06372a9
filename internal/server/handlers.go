package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/dataset"
	"github.com/KaramelBytes/ags-analyzer/internal/insight"
	"github.com/KaramelBytes/ags-analyzer/internal/report"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
	"github.com/KaramelBytes/ags-analyzer/internal/session"
)

const (
	defaultPreviewRows = 5
	maxPreviewRows     = 100
)

type uploadResponse struct {
	Session session.Info `json:"session"`
	Preview [][]string   `json:"preview"`
}

// handleCreateSession creates a session from a multipart upload ("file").
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	sess := s.cfg.Store.Create()
	sess.Upload(raw)
	s.log.Info("dataset uploaded", "session", sess.ID, "dataset", raw.Name(), "rows", raw.Len(), "columns", len(raw.Columns()))
	writeJSON(w, http.StatusCreated, uploadResponse{Session: sess.Info(), Preview: raw.Head(defaultPreviewRows)})
}

// handleUpload replaces the dataset of an existing session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	sess.Upload(raw)
	s.log.Info("dataset replaced", "session", sess.ID, "dataset", raw.Name(), "rows", raw.Len())
	writeJSON(w, http.StatusOK, uploadResponse{Session: sess.Info(), Preview: raw.Head(defaultPreviewRows)})
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Raw, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error: fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes),
				Kind:  "too_large",
			})
			return nil, false
		}
		s.badRequest(w, r, "expected a multipart form with a 'file' field")
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, r, "missing 'file' field")
		return nil, false
	}
	defer file.Close()

	opts := dataset.Options{SheetName: r.FormValue("sheet_name")}
	if v := r.FormValue("sheet_index"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 0 {
			s.badRequest(w, r, "sheet_index must be a non-negative integer")
			return nil, false
		}
		opts.SheetIndex = idx
	}
	if v := r.FormValue("delimiter"); v != "" {
		d, size := utf8.DecodeRuneInString(v)
		if size != len(v) {
			s.badRequest(w, r, "delimiter must be a single character")
			return nil, false
		}
		opts.Delimiter = d
	}

	raw, err := dataset.Load(header.Filename, file, opts)
	if err != nil {
		if errors.Is(err, dataset.ErrEmptyDataset) || errors.Is(err, dataset.ErrUnsupportedFormat) {
			s.writeError(w, r, err)
		} else {
			s.badRequest(w, r, err.Error())
		}
		return nil, false
	}
	return raw, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.cfg.Store.Delete(sessionFrom(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

type previewResponse struct {
	Columns []dataset.ColumnInfo `json:"columns"`
	Rows    [][]string           `json:"rows"`
	Total   int                  `json:"total_rows"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	raw, err := sessionFrom(r).Raw()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n := defaultPreviewRows
	if v := r.URL.Query().Get("n"); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil || n < 1 {
			s.badRequest(w, r, "n must be a positive integer")
			return
		}
		n = min(n, maxPreviewRows)
	}
	writeJSON(w, http.StatusOK, previewResponse{Columns: raw.Schema(), Rows: raw.Head(n), Total: raw.Len()})
}

type schemaRequest struct {
	Mapping  map[string]string `json:"mapping"`
	Currency string            `json:"currency"`
}

type metricValue struct {
	Label string          `json:"label"`
	Value retrieval.Float `json:"value"`
}

type metricsResponse struct {
	Currency string        `json:"currency,omitempty"`
	Metrics  []metricValue `json:"metrics"`
	Table    string        `json:"table"`
}

type confirmResponse struct {
	Session session.Info    `json:"session"`
	Summary metricsResponse `json:"summary"`
}

// handleConfirmSchema applies a column mapping. Mapping keys are role
// names; values are dataset column names.
func (s *Server) handleConfirmSchema(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return
	}
	mapping := make(analysis.ColumnMapping, len(req.Mapping))
	for k, v := range req.Mapping {
		mapping[analysis.Role(strings.ToLower(strings.TrimSpace(k)))] = v
	}

	sess := sessionFrom(r)
	if err := sess.Confirm(mapping, req.Currency); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, currency, err := sess.Analyzer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("schema confirmed", "session", sess.ID, "mapping", mapping.String())
	writeJSON(w, http.StatusOK, confirmResponse{Session: sess.Info(), Summary: summarize(a, currency)})
}

func summarize(a *analysis.Analyzer, currency string) metricsResponse {
	m := a.BasicMetrics()
	entries := m.Entries()
	out := metricsResponse{Currency: currency, Metrics: make([]metricValue, len(entries)), Table: report.SummaryTable(m, currency)}
	for i, e := range entries {
		out.Metrics[i] = metricValue{Label: e.Label, Value: retrieval.Float(e.Value)}
	}
	return out
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	a, currency, err := sessionFrom(r).Analyzer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(a, currency))
}

// handleDashboard answers JSON panels, or text bar charts with ?format=text.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	p, err := sess.Payload()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, currency, _ := sess.Analyzer()
	d := report.BuildDashboard(p, currency)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := d.Render(w); err != nil {
			s.log.Warn("dashboard render failed", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	p, err := sessionFrom(r).Payload()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	*insight.Answer
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return
	}
	sess := sessionFrom(r)
	ans, err := sess.Ask(r.Context(), s.cfg.Answerer, req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("question answered", "session", sess.ID, "model", ans.Model, "duration", ans.Duration)
	writeJSON(w, http.StatusOK, askResponse{Question: strings.TrimSpace(req.Question), Answer: ans})
}
