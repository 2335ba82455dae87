// Package metrics exposes acquisition progress as Prometheus metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// Recorder implements ports.Metrics using Prometheus.
type Recorder struct {
	samples      prometheus.Counter
	decodeErrors *prometheus.CounterVec
	temperature  prometheus.Gauge
	sequence     prometheus.Gauge
	windowSize   prometheus.Gauge
}

// New creates a recorder registered with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "thermal_samples_total",
			Help: "Total number of samples decoded this session",
		}),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thermal_decode_errors_total",
				Help: "Total number of frames that failed to decode",
			},
			[]string{"kind"},
		),
		temperature: factory.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_temperature_celsius",
			Help: "Last decoded temperature",
		}),
		sequence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_frame_sequence",
			Help: "Sequence index of the last binary frame",
		}),
		windowSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_window_samples",
			Help: "Samples in the rolling display window",
		}),
	}
}

// ObserveSample records a decoded sample.
func (r *Recorder) ObserveSample(s domain.Sample) {
	r.samples.Inc()
	r.temperature.Set(s.Temperature)
	if s.HasSequence {
		r.sequence.Set(float64(s.Sequence))
	}
}

// RecordDecodeError records a failed frame by kind.
func (r *Recorder) RecordDecodeError(kind string) {
	r.decodeErrors.WithLabelValues(kind).Inc()
}

// SetWindowSize records the current window length.
func (r *Recorder) SetWindowSize(n int) {
	r.windowSize.Set(float64(n))
}
