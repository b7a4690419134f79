// Package metrics exposes Prometheus instruments for placement calls,
// candidate validation and strategy swaps.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "boxpack"
	// PlacementSubsystem groups the placement metrics.
	PlacementSubsystem = "placement"

	StrategyLabel = "strategy"
	OutcomeLabel  = "outcome"
	StageLabel    = "stage"
)

// Outcome label values.
const (
	OutcomeSuccess           = "success"
	OutcomeInvalidCandidate  = "invalid_candidate"
	OutcomeAlgorithmError    = "algorithm_error"
	OutcomeTimeout           = "timeout"
	OutcomeGeometryViolation = "geometry_violation"
	OutcomeError             = "error"
)

// Metrics records placement subsystem metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	placements        *prometheus.CounterVec
	placementDuration *prometheus.HistogramVec
	validations       *prometheus.CounterVec
	swaps             prometheus.Counter
	activeVersion     prometheus.Gauge
	inFlight          prometheus.Gauge
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		placements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: PlacementSubsystem,
				Name:      "calls_total",
				Help:      "Placement calls by strategy and outcome",
			},
			[]string{StrategyLabel, OutcomeLabel},
		),
		placementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: PlacementSubsystem,
				Name:      "call_duration_seconds",
				Help:      "Duration of placement calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{StrategyLabel},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: PlacementSubsystem,
				Name:      "candidate_validations_total",
				Help:      "Candidate strategy validations by final stage and outcome",
			},
			[]string{StageLabel, OutcomeLabel},
		),
		swaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: PlacementSubsystem,
			Name:      "strategy_swaps_total",
			Help:      "Number of times the active strategy was replaced",
		}),
		activeVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: PlacementSubsystem,
			Name:      "active_strategy_version",
			Help:      "Registry version of the active strategy",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: PlacementSubsystem,
			Name:      "calls_in_flight",
			Help:      "Placement calls currently running",
		}),
	}

	reg.MustRegister(
		m.placements,
		m.placementDuration,
		m.validations,
		m.swaps,
		m.activeVersion,
		m.inFlight,
	)
	return m
}

// RecordPlacement counts one placement call and observes its duration.
func (m *Metrics) RecordPlacement(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.placements.WithLabelValues(strategy, outcome).Inc()
	m.placementDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// RecordValidation counts one candidate validation.
func (m *Metrics) RecordValidation(stage, outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(stage, outcome).Inc()
}

// SetActiveVersion records the registry version, counting a swap when
// swapped is true.
func (m *Metrics) SetActiveVersion(version uint64, swapped bool) {
	if m == nil {
		return
	}
	if swapped {
		m.swaps.Inc()
	}
	m.activeVersion.Set(float64(version))
}

// TrackInFlight increments the in-flight gauge and returns a func that
// decrements it.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
