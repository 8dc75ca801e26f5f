package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts order quote computations by outcome.
	QuoteTotal *prometheus.CounterVec
	// PromoEvaluationTotal counts promotion evaluations by kind and result.
	PromoEvaluationTotal *prometheus.CounterVec
	// PromoSettlementTotal counts promotion settlement outcomes.
	PromoSettlementTotal *prometheus.CounterVec
	// RateCalculationTotal counts shipping rate calculations by calculation type and result.
	RateCalculationTotal *prometheus.CounterVec
	// RateRuleFallbackTotal counts rate rules that degraded to base rate due to missing rule data.
	RateRuleFallbackTotal prometheus.Counter
	// PromoSweepTransitions counts lifecycle transitions applied by the status sweeper.
	PromoSweepTransitions *prometheus.CounterVec
	// QuoteDuration records end-to-end quote computation latency in milliseconds.
	QuoteDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers the pricing domain
// collectors. Call sites treat the package variables as optional: a binary
// that never calls this simply records nothing.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of order quote computations by outcome.",
		}, []string{"result"})).(*prometheus.CounterVec)
		PromoEvaluationTotal = registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_evaluation_total",
			Help:      "Count of promotion evaluations by kind and result.",
		}, []string{"kind", "result"})).(*prometheus.CounterVec)
		PromoSettlementTotal = registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_settlement_total",
			Help:      "Count of promotion settlement outcomes.",
		}, []string{"result"})).(*prometheus.CounterVec)
		RateCalculationTotal = registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_calculation_total",
			Help:      "Count of shipping rate calculations by calculation type and result.",
		}, []string{"calculation_type", "result"})).(*prometheus.CounterVec)
		RateRuleFallbackTotal = registerOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_rule_fallback_total",
			Help:      "Number of rate calculations that fell back to base rate due to incomplete rule data.",
		})).(prometheus.Counter)
		PromoSweepTransitions = registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_sweep_transitions_total",
			Help:      "Count of promotion lifecycle transitions applied by the sweeper.",
		}, []string{"to_status"})).(*prometheus.CounterVec)
		QuoteDuration = registerOrGet(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency for order quote computation in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})).(prometheus.Histogram)
	})
}
