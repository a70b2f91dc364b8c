package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordOperation("add", nil)
	c.RecordOperation("add", errors.New("boom"))
	c.RecordOperation("add", nil)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.operationsTotal.WithLabelValues("add", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operationsTotal.WithLabelValues("add", "error")))

	c.SetConfigValid(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.configValid))
	c.SetConfigValid(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.configValid))

	c.SetFragments(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(c.fragments))

	c.RecordBackup("schedule", nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.backupsTotal.WithLabelValues("schedule", "success")))

	c.ObserveCommand("test", 20*time.Millisecond, nil)
	assert.Equal(t, 1, testutil.CollectAndCount(c.commandDuration))

	c.ObserveRequest("GET", "/api/proxies", 200, time.Millisecond)
	c.ObserveRequest("GET", "/api/proxies", 200, time.Millisecond)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/api/proxies", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.requestDuration))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordOperation("add", nil)
		c.ObserveCommand("test", time.Second, nil)
		c.SetConfigValid(true)
		c.SetFragments(1)
		c.RecordBackup("manual", nil)
		c.ObserveRequest("GET", "/", 200, time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector(nil)
	c.SetFragments(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "proxydesk_fragments 3")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
