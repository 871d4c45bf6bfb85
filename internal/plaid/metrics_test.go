package plaid

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsRequestsAndOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	provider := newFakeProvider(t, http.StatusOK, januaryBody)
	client := newTestClient(t, provider.server.URL, WithMetrics(metrics))

	client.Download(t.Context(), "test_bofa", "", false, nil, nil)
	client.Download(t.Context(), "test_bofa", "", false, nil, nil)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("connect_get", "2xx")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.syncOutcomes.WithLabelValues("data")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.requestDuration))
}

func TestMetrics_RecordsTransportErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	client := newTestClient(t, unreachableURL(t), WithMetrics(metrics))

	client.ListInstitutions(t.Context())
	client.Download(t.Context(), "test_bofa", "", false, nil, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("institutions", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("connect_get", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.syncOutcomes.WithLabelValues("empty")), 0)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var metrics *Metrics

	assert.NotPanics(t, func() {
		metrics.RecordRequest("connect", "2xx", time.Millisecond)
		metrics.RecordSyncOutcome("data")
	})
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "3xx", statusClass(http.StatusFound))
	assert.Equal(t, "4xx", statusClass(http.StatusPaymentRequired))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
}
