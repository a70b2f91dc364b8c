package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/proxydesk/internal/api/constants"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		for _, value := range v {
			req.Header.Add(k, value)
		}
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	rec := serve(router, http.MethodGet, "/", nil)
	generated := rec.Header().Get(constants.HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	rec = serve(router, http.MethodGet, "/", http.Header{constants.HeaderRequestID: {"abc-123"}})
	assert.Equal(t, "abc-123", rec.Header().Get(constants.HeaderRequestID))

	rec = serve(router, http.MethodGet, "/", http.Header{constants.HeaderRequestID: {strings.Repeat("x", 500)}})
	assert.Len(t, rec.Header().Get(constants.HeaderRequestID), 36)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(Recovery(logging.New(&buf, logging.LevelError)))
	router.GET("/panic", func(c *gin.Context) {
		panic(42)
	})

	rec := serve(router, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_SERVER_ERROR"`)
	assert.Contains(t, buf.String(), "[PANIC]")
	assert.Contains(t, buf.String(), "42")
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(RateLimitConfig{RPS: 0.001, Burst: 1}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.001", rec.Header().Get("X-RateLimit-Limit"))

	rec = serve(router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
}

func TestRateLimitDisabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(RateLimitConfig{}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/", nil).Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, http.MethodGet, "/", nil)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self'")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(&logging.Config{Level: logging.LevelInfo, Requests: true})
	require.NoError(t, err)
	logger.SetOutput(&buf)

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/api/proxies", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	serve(router, http.MethodGet, "/api/proxies?x=1", http.Header{constants.HeaderRequestID: {"req-7"}})
	assert.Contains(t, buf.String(), "/api/proxies?x=1")
	assert.Contains(t, buf.String(), "418")
	assert.Contains(t, buf.String(), "req-7")
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	router := gin.New()
	router.Use(Metrics(collector))
	router.DELETE("/api/proxies/:filename", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodDelete, "/api/proxies/a.conf", nil)
	serve(router, http.MethodDelete, "/api/proxies/b.conf", nil)
	serve(router, http.MethodGet, "/nowhere", nil)

	families, err := registry.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "proxydesk_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" {
					counts[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(2), counts["/api/proxies/:filename"])
	assert.Equal(t, float64(1), counts["unmatched"])
}
