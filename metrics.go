package cachingclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	lookupHit   = "hit"
	lookupStale = "stale"
	lookupMiss  = "miss"

	fetchStored         = "stored"
	fetchServerError    = "server_error"
	fetchTransportError = "transport_error"
)

// metrics holds the client's collectors. A nil *metrics records nothing.
type metrics struct {
	lookupsTotal  *prometheus.CounterVec
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &metrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caching_client_lookups_total",
			Help: "Store lookups by result.",
		}, []string{"result"}),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caching_client_fetches_total",
			Help: "Network fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "caching_client_fetch_duration_seconds",
			Help:    "Duration of network fetches.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registered := make([]prometheus.Collector, 0, 3)
	for _, c := range []prometheus.Collector{m.lookupsTotal, m.fetchesTotal, m.fetchDuration} {
		if err := reg.Register(c); err != nil {
			for _, r := range registered {
				reg.Unregister(r)
			}
			return nil, err
		}
		registered = append(registered, c)
	}
	return m, nil
}

func (m *metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *metrics) fetch(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(took.Seconds())
}
