package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SweepCollector bundles Prometheus metrics for the detection sweep and
// the view broadcaster.
type SweepCollector struct {
	gatherer prometheus.Gatherer

	EntitiesProcessed *prometheus.CounterVec
	ProgressRatio     prometheus.Gauge
	UnitsPlanned      prometheus.Gauge
	RunDuration       prometheus.Histogram

	BroadcastBatchSize prometheus.Histogram
	BroadcastFlushes   prometheus.Counter
}

// NewSweepCollector registers sweep metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registration tolerates an identical collector already being present, so
// repeated construction in tests is safe.
func NewSweepCollector(reg prometheus.Registerer) (*SweepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_entities_processed_total",
		Help: "Entities resolved by the detection scheduler, labeled by resulting status.",
	}, []string{"status"})
	processed, err := registerCounterVec(reg, processed, "sweep_entities_processed_total")
	if err != nil {
		return nil, err
	}

	progress, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_progress_ratio",
		Help: "Fraction of entities processed in the current run (0 to 1).",
	}), "sweep_progress_ratio")
	if err != nil {
		return nil, err
	}

	planned, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_units_planned",
		Help: "Detection units in the currently planned sequence.",
	}), "sweep_units_planned")
	if err != nil {
		return nil, err
	}

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweep_run_duration_seconds",
		Help:    "Simulation-time duration of completed sweep runs.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	runDuration, err = registerHistogram(reg, runDuration, "sweep_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broadcast_batch_size",
		Help:    "Status changes per delivered broadcast batch.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	})
	batchSize, err = registerHistogram(reg, batchSize, "broadcast_batch_size")
	if err != nil {
		return nil, err
	}

	flushes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_flushes_total",
		Help: "Cumulative number of delivered broadcast batches.",
	})
	flushes, err = registerCounter(reg, flushes, "broadcast_flushes_total")
	if err != nil {
		return nil, err
	}

	return &SweepCollector{
		gatherer:           gatherer,
		EntitiesProcessed:  processed,
		ProgressRatio:      progress,
		UnitsPlanned:       planned,
		RunDuration:        runDuration,
		BroadcastBatchSize: batchSize,
		BroadcastFlushes:   flushes,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SweepCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SweepCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveOutcome records one resolved entity.
func (c *SweepCollector) ObserveOutcome(status string) {
	if c == nil || c.EntitiesProcessed == nil {
		return
	}
	c.EntitiesProcessed.WithLabelValues(status).Inc()
}

// SetProgress records the current run's progress ratio.
func (c *SweepCollector) SetProgress(ratio float64) {
	if c == nil || c.ProgressRatio == nil {
		return
	}
	c.ProgressRatio.Set(ratio)
}

// SetUnitsPlanned records the size of the planned sequence.
func (c *SweepCollector) SetUnitsPlanned(n int) {
	if c == nil || c.UnitsPlanned == nil {
		return
	}
	c.UnitsPlanned.Set(float64(n))
}

// ObserveRunDuration records a completed run's simulation-time duration.
func (c *SweepCollector) ObserveRunDuration(seconds float64) {
	if c == nil || c.RunDuration == nil {
		return
	}
	c.RunDuration.Observe(seconds)
}

// ObserveBatch records one delivered broadcast batch.
func (c *SweepCollector) ObserveBatch(size int) {
	if c == nil {
		return
	}
	if c.BroadcastBatchSize != nil {
		c.BroadcastBatchSize.Observe(float64(size))
	}
	if c.BroadcastFlushes != nil {
		c.BroadcastFlushes.Inc()
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
