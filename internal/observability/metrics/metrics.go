package metrics

import "github.com/prometheus/client_golang/prometheus"

// Turn outcomes.
const (
	TurnApplied   = "applied"
	TurnMalformed = "malformed"
	TurnFailed    = "failed"
)

// Calibration outcomes.
const (
	CalibrationAdjusted  = "adjusted"
	CalibrationUnchanged = "unchanged"
	CalibrationFailed    = "failed"
)

// ChatMetrics exposes counters/histograms for the persona chat loop.
type ChatMetrics struct {
	turnsTotal        *prometheus.CounterVec
	calibrationsTotal *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "persona",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total processed chat turns",
		}, []string{"outcome"}),
		calibrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "persona",
			Subsystem: "chat",
			Name:      "calibrations_total",
			Help:      "Total favorability calibration attempts",
		}, []string{"outcome"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "persona",
			Subsystem: "chat",
			Name:      "generation_latency_seconds",
			Help:      "Latency of structured generation calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.calibrationsTotal, m.generationLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveCalibration(outcome string) {
	if m == nil {
		return
	}
	m.calibrationsTotal.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveGenerationLatency(op string, seconds float64) {
	if m == nil {
		return
	}
	m.generationLatency.WithLabelValues(op).Observe(seconds)
}
