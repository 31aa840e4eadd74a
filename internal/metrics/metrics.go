// Registers:
//
//	#walletscope_holdings_requests_total{chain,outcome}
//	#walletscope_provider_errors_total{provider}
//	#walletscope_price_batches_total{source,outcome}
//	#walletscope_dust_filtered_total{chain,kind}
//	#go_* and process_* system metrics
//
// on a package registry served by Handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK              = "ok"
	OutcomeInvalidAddress  = "invalid_address"
	OutcomeProviderFailure = "provider_unavailable"
	OutcomeError           = "error"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	holdingsRequests *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	priceBatches     *prometheus.CounterVec
	dustFiltered     *prometheus.CounterVec
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		holdingsRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletscope_holdings_requests_total",
				Help: "Holdings requests by chain and outcome",
			},
			[]string{"chain", "outcome"},
		)
		providerErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletscope_provider_errors_total",
				Help: "Balance provider calls that failed after retries",
			},
			[]string{"provider"},
		)
		priceBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletscope_price_batches_total",
				Help: "Price oracle requests by source and outcome",
			},
			[]string{"source", "outcome"},
		)
		dustFiltered = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletscope_dust_filtered_total",
				Help: "Holdings dropped below the dust threshold",
			},
			[]string{"chain", "kind"},
		)

		registry.MustRegister(
			holdingsRequests,
			providerErrors,
			priceBatches,
			dustFiltered,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func IncrementHoldingsRequest(chain, outcome string) {
	if holdingsRequests != nil {
		holdingsRequests.WithLabelValues(chain, outcome).Inc()
	}
}

func IncrementProviderError(provider string) {
	if providerErrors != nil {
		providerErrors.WithLabelValues(provider).Inc()
	}
}

func IncrementPriceBatch(source, outcome string) {
	if priceBatches != nil {
		priceBatches.WithLabelValues(source, outcome).Inc()
	}
}

// AddDustFiltered counts holdings dropped by the dust filter; kind is
// "native" or "token".
func AddDustFiltered(chain, kind string, n int) {
	if dustFiltered != nil && n > 0 {
		dustFiltered.WithLabelValues(chain, kind).Add(float64(n))
	}
}
