package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithNilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RateLookupsTotal.WithLabelValues(OutcomeFound).Inc()
	m.RateRecordsSkippedTotal.WithLabelValues("invalid_rate").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLookupsTotal.WithLabelValues(OutcomeFound)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateRecordsSkippedTotal.WithLabelValues("invalid_rate")))

	// Registering the same collectors twice must fail
	assert.Panics(t, func() { New(reg) })
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.ConversionsTotal.WithLabelValues("success").Inc()
	m.TransactionsTotal.WithLabelValues("create").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `currency_conversions_total{result="success"} 1`)
	assert.Contains(t, string(body), `transactions_total{operation="create"} 1`)
}
