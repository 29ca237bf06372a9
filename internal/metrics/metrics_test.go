package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type labelledErr struct{}

func (labelledErr) Error() string       { return "bad mapping" }
func (labelledErr) MetricLabel() string { return "schema_error" }

func TestRecordNormalization(t *testing.T) {
	ok := testutil.ToFloat64(NormalizationsTotal.WithLabelValues("ok"))
	schema := testutil.ToFloat64(NormalizationsTotal.WithLabelValues("schema_error"))
	other := testutil.ToFloat64(NormalizationsTotal.WithLabelValues("error"))

	RecordNormalization(time.Millisecond, 10, nil)
	RecordNormalization(time.Millisecond, 0, fmt.Errorf("normalize: %w", labelledErr{}))
	RecordNormalization(time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(NormalizationsTotal.WithLabelValues("ok")))
	assert.Equal(t, schema+1, testutil.ToFloat64(NormalizationsTotal.WithLabelValues("schema_error")))
	assert.Equal(t, other+1, testutil.ToFloat64(NormalizationsTotal.WithLabelValues("error")))
}

func TestRecordInsight(t *testing.T) {
	before := testutil.ToFloat64(InsightRequestsTotal.WithLabelValues("ollama", "error"))
	RecordInsightRequest("ollama", time.Second, errors.New("down"))
	assert.Equal(t, before+1, testutil.ToFloat64(InsightRequestsTotal.WithLabelValues("ollama", "error")))

	in := testutil.ToFloat64(InsightTokensTotal.WithLabelValues("input"))
	RecordInsightTokens(120, 0)
	assert.Equal(t, in+120, testutil.ToFloat64(InsightTokensTotal.WithLabelValues("input")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/sessions/{id}", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/sessions/{id}", "418")))
}
