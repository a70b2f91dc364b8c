// Package metrics exposes Prometheus metrics for proxy operations on a
// private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proxydesk"

// Collector owns every metric the console records. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	operationsTotal *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	configValid     prometheus.Gauge
	fragments       prometheus.Gauge
	backupsTotal    *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates and registers the console metrics. If registry is
// nil a fresh one is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Proxy operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of external proxy server commands",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"command", "result"},
		),
		configValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_valid",
			Help:      "1 when the last configuration dry run passed",
		}),
		fragments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fragments",
			Help:      "Number of proxy fragments seen by the last listing",
		}),
		backupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backups_total",
				Help:      "Configuration snapshots by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.operationsTotal,
		c.commandDuration,
		c.configValid,
		c.fragments,
		c.backupsTotal,
		c.requestsTotal,
		c.requestDuration,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one finished operation.
func (c *Collector) RecordOperation(operation string, err error) {
	if c == nil {
		return
	}
	c.operationsTotal.WithLabelValues(operation, result(err)).Inc()
}

// ObserveCommand records the duration of an external command.
func (c *Collector) ObserveCommand(command string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.commandDuration.WithLabelValues(command, result(err)).Observe(d.Seconds())
}

// SetConfigValid records the outcome of the latest dry run.
func (c *Collector) SetConfigValid(valid bool) {
	if c == nil {
		return
	}
	if valid {
		c.configValid.Set(1)
	} else {
		c.configValid.Set(0)
	}
}

// SetFragments records the fragment count.
func (c *Collector) SetFragments(n int) {
	if c == nil {
		return
	}
	c.fragments.Set(float64(n))
}

// RecordBackup counts one snapshot attempt.
func (c *Collector) RecordBackup(trigger string, err error) {
	if c == nil {
		return
	}
	c.backupsTotal.WithLabelValues(trigger, result(err)).Inc()
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
