// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

var (
	AdminActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_admin_actions_total",
		Help: "Admin dashboard actions by intent and outcome",
	}, []string{"intent", "outcome"})

	OrphanedQrCodes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelf_orphaned_qr_codes_total",
		Help: "Orphaned QR codes generated",
	})

	SsoLogins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_sso_logins_total",
		Help: "SSO login callbacks by outcome",
	}, []string{"outcome"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shelf_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registers every collector on reg (or the default registry if nil).
// Collectors that are already registered are skipped.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{AdminActions, OrphanedQrCodes, SsoLogins, HTTPRequests, HTTPRequestDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) gin.HandlerFunc {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency. Routes are labelled by their pattern so
// ids in the path do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
