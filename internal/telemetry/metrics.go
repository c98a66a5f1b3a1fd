package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsLaunched     = prometheus.NewCounter(prometheus.CounterOpts{Name: "studio_jobs_launched_total", Help: "Background generation jobs launched"})
	JobsCompleted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "studio_jobs_completed_total", Help: "Jobs that reached terminal completed status"})
	JobsFailed       = prometheus.NewCounter(prometheus.CounterOpts{Name: "studio_jobs_failed_total", Help: "Jobs that reached terminal error status"})
	JobsSwept        = prometheus.NewCounter(prometheus.CounterOpts{Name: "studio_jobs_swept_total", Help: "Expired job records removed by the janitor"})
	JobsInFlight     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "studio_jobs_inflight", Help: "Jobs currently running"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "studio_rate_limit_rejects_total", Help: "Generation launches rejected by the rate limiter"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsLaunched,
			JobsCompleted,
			JobsFailed,
			JobsSwept,
			JobsInFlight,
			RateLimitRejects,
		)
	})
	return promhttp.Handler()
}
