// package metrics exposes prometheus collectors for federation outcomes and provider calls.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	// state is the terminal federation state, kind the failure kind (empty on success)
	FederationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_requests_total",
		Help: "Federation requests by provider, terminal state and failure kind",
	}, []string{"provider", "state", "kind"})

	// outcome is what the resolver did: created, merged, linked or unchanged
	ResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_resolutions_total",
		Help: "Identity resolutions by provider and outcome",
	}, []string{"provider", "outcome"})

	// step is exchange or profile
	ProviderCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_duration_seconds",
		Help:    "Latency of calls to external identity providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "step"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// registers every collector on reg (or the default registerer if nil) and returns the /metrics handler
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			FederationTotal,
			ResolveTotal,
			ProviderCallDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		} {
			if err := registerCollector(reg, c); err != nil {
				metricsErr = err
				return
			}
		}
	})

	if metricsErr != nil {
		return nil, metricsErr
	}

	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
	}

	return nil
}

// records request counts and latency by route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// starts a timer for one provider call; call the returned func when it finishes
func ObserveProviderCall(provider, step string) func() {
	start := time.Now()

	return func() {
		ProviderCallDuration.WithLabelValues(provider, step).Observe(time.Since(start).Seconds())
	}
}
