package simulation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes search progress to prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	generations     prometheus.Counter
	classes         *prometheus.CounterVec
	cacheHits       prometheus.Counter
	domainFailures  prometheus.Counter
	bestFitness     prometheus.Gauge
	populationSize  prometheus.Gauge
	evaluationTimes prometheus.Histogram
}

// NewMetrics registers the search metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		generations: factory.NewCounter(prometheus.CounterOpts{
			Name: "equationfinder_generations_total",
			Help: "Generations completed",
		}),
		// result is "evaluated", "cached" or "degenerate"
		classes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "equationfinder_classes_total",
			Help: "Distinct expressions seen, by how they were scored",
		}, []string{"result"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "equationfinder_cache_hits_total",
			Help: "Expressions whose fitness was reused from an earlier generation",
		}),
		domainFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "equationfinder_domain_failures_total",
			Help: "Expressions scored +Inf because they could not be evaluated",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "equationfinder_best_fitness",
			Help: "Lowest fitness found so far",
		}),
		populationSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "equationfinder_population_size",
			Help: "Chromosomes in the current generation",
		}),
		evaluationTimes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "equationfinder_class_evaluation_seconds",
			Help:    "Time spent fitting the parameters of one expression",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}),
	}
}

func (m *Metrics) observeGeneration(population int, best float64) {
	if m == nil {
		return
	}
	m.generations.Inc()
	m.populationSize.Set(float64(population))
	m.bestFitness.Set(best)
}

func (m *Metrics) observeClass(result string) {
	if m == nil {
		return
	}
	m.classes.WithLabelValues(result).Inc()
	if result == "cached" {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) observeEvaluation(elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.evaluationTimes.Observe(elapsed.Seconds())
	if failed {
		m.domainFailures.Inc()
	}
}
