// Package metrics instruments the HTTP transport the bulk client is given,
// counting Bulk API calls and timing them for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transport is an http.RoundTripper that records request counts and
// latencies before delegating to the wrapped transport.
type Transport struct {
	next http.RoundTripper

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewTransport registers the collectors with reg and wraps next
// (http.DefaultTransport when nil).
func NewTransport(reg prometheus.Registerer, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}

	t := &Transport{
		next: next,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sfbulk_api_requests_total",
			Help: "Bulk API requests by method and response code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sfbulk_api_request_duration_seconds",
			Help:    "Bulk API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(t.requests, t.duration)
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	t.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	t.requests.WithLabelValues(req.Method, code).Inc()

	return resp, err
}
