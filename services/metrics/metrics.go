// Package metrics exports servo activity to Prometheus. Host builds only;
// the firmware runs without a recorder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"servocode-go/services/actuation"
	"servocode-go/types"
)

const namespace = "servo"

// Recorder implements actuation.Recorder on a private registry.
type Recorder struct {
	reg        *prometheus.Registry
	actuations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	pulse      *prometheus.GaugeVec
	enabled    *prometheus.GaugeVec
	stage      prometheus.Gauge
}

var _ actuation.Recorder = (*Recorder)(nil)

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Recognised actuation commands by actuator and command.",
		}, []string{"actuator", "command"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuation_failures_total",
			Help:      "Actuation commands the driver rejected.",
		}, []string{"actuator", "command"}),
		pulse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pulse_width_microseconds",
			Help:      "Last commanded pulse width.",
		}, []string{"actuator"}),
		enabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_enabled",
			Help:      "1 while the actuator emits pulses.",
		}, []string{"actuator"}),
		stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bringup_stage",
			Help:      "Current bring-up stage (0 initializing .. 3 serving, 4 faulted).",
		}),
	}
	r.reg.MustRegister(r.actuations, r.failures, r.pulse, r.enabled, r.stage)
	return r
}

func (r *Recorder) Actuation(id string, cmd actuation.Command, err error) {
	r.actuations.WithLabelValues(id, cmd.String()).Inc()
	if err != nil {
		r.failures.WithLabelValues(id, cmd.String()).Inc()
	}
}

func (r *Recorder) Position(v types.ActuatorValue) {
	r.pulse.WithLabelValues(v.ID).Set(float64(v.PulseUs))
	en := 0.0
	if v.Enabled {
		en = 1
	}
	r.enabled.WithLabelValues(v.ID).Set(en)
}

func (r *Recorder) Stage(s types.Stage) { r.stage.Set(float64(s)) }

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
