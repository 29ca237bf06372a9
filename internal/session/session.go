// Package session tracks one user's progress from upload to questions:
// NoData -> DataLoaded -> SchemaConfirmed.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/dataset"
	"github.com/KaramelBytes/ags-analyzer/internal/insight"
	"github.com/KaramelBytes/ags-analyzer/internal/metrics"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
)

type State int

const (
	NoData State = iota
	DataLoaded
	SchemaConfirmed
)

func (s State) String() string {
	switch s {
	case NoData:
		return "no_data"
	case DataLoaded:
		return "data_loaded"
	case SchemaConfirmed:
		return "schema_confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{NoData, DataLoaded, SchemaConfirmed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

var (
	ErrNoData             = errors.New("no dataset uploaded")
	ErrSchemaNotConfirmed = errors.New("column mapping not confirmed")
)

// StateError reports an event that is not allowed in the current state.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string { return fmt.Sprintf("%v (state %s)", e.Err, e.State) }
func (e *StateError) Unwrap() error { return e.Err }

// Answerer produces an insight from a retrieval payload.
type Answerer interface {
	Run(ctx context.Context, p retrieval.Payload, question string) (*insight.Answer, error)
}

// Session is the per-user state. Its methods are safe for concurrent use.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.RWMutex
	state    State
	raw      *dataset.Raw
	analyzer *analysis.Analyzer
	mapping  analysis.ColumnMapping
	currency string
	question string

	// guarded by the owning Store
	lastSeen time.Time
}

// Info is a JSON snapshot of a session.
type Info struct {
	ID       string                 `json:"id"`
	State    State                  `json:"state"`
	Dataset  string                 `json:"dataset,omitempty"`
	Rows     int                    `json:"rows"`
	Columns  []dataset.ColumnInfo   `json:"columns,omitempty"`
	Mapping  analysis.ColumnMapping `json:"mapping,omitempty"`
	Currency string                 `json:"currency,omitempty"`
	Question string                 `json:"last_question,omitempty"`
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := Info{ID: s.ID, State: s.state, Currency: s.currency, Question: s.question}
	if s.raw != nil {
		info.Dataset = s.raw.Name()
		info.Rows = s.raw.Len()
		info.Columns = s.raw.Schema()
	}
	if s.mapping != nil {
		info.Mapping = s.mapping
	}
	return info
}

// Upload replaces the dataset. Any confirmed mapping, analyzer and question
// are discarded.
func (s *Session) Upload(raw *dataset.Raw) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	s.state = DataLoaded
	s.analyzer = nil
	s.mapping = nil
	s.currency = ""
	s.question = ""
}

// Raw returns the uploaded dataset.
func (s *Session) Raw() (*dataset.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil, &StateError{State: s.state, Err: ErrNoData}
	}
	return s.raw, nil
}

// Confirm normalizes the uploaded dataset under mapping. On success the
// session moves to SchemaConfirmed; on failure it is left in DataLoaded
// and the normalization error is returned.
func (s *Session) Confirm(mapping analysis.ColumnMapping, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return &StateError{State: s.state, Err: ErrNoData}
	}

	start := time.Now()
	a, err := analysis.NewAnalyzer(s.raw, mapping)
	metrics.RecordNormalization(time.Since(start), s.raw.Len(), err)

	s.question = ""
	if err != nil {
		s.state = DataLoaded
		s.analyzer = nil
		s.mapping = nil
		return err
	}
	s.analyzer = a
	s.mapping = copyMapping(mapping)
	s.currency = strings.TrimSpace(currency)
	s.state = SchemaConfirmed
	return nil
}

func copyMapping(m analysis.ColumnMapping) analysis.ColumnMapping {
	out := make(analysis.ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Analyzer returns the confirmed analyzer and display currency.
func (s *Session) Analyzer() (*analysis.Analyzer, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != SchemaConfirmed {
		return nil, "", &StateError{State: s.state, Err: ErrSchemaNotConfirmed}
	}
	return s.analyzer, s.currency, nil
}

// Payload returns the retrieval payload of the confirmed dataset.
func (s *Session) Payload() (retrieval.Payload, error) {
	a, _, err := s.Analyzer()
	if err != nil {
		return retrieval.Payload{}, err
	}
	return retrieval.New(a).AsPayload(), nil
}

// Ask answers a question about the confirmed dataset. The question is kept
// as the session's last question even when the answer fails.
func (s *Session) Ask(ctx context.Context, ans Answerer, question string) (*insight.Answer, error) {
	p, err := s.Payload()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.question = strings.TrimSpace(question)
	s.mu.Unlock()
	return ans.Run(ctx, p, question)
}
