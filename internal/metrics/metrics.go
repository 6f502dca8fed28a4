// Package metrics exports ledger and dialog activity to Prometheus.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/service"
)

const namespace = "kaizen"

// Metrics implements service.UseCaseObserver and dialog.Observer.
type Metrics struct {
	UseCases        *prometheus.CounterVec
	UseCaseDuration *prometheus.HistogramVec
	Earned          *prometheus.CounterVec
	DialogEvents    *prometheus.CounterVec
	DialogErrors    *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	Nudges          *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// serve them from promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UseCases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "use_cases_total",
			Help:      "Service use cases by name and outcome.",
		}, []string{"use_case", "success"}),
		UseCaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "use_case_duration_seconds",
			Help:      "Service use case latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"use_case"}),
		Earned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "earned_total",
			Help:      "Currency credited by trigger. Penalties are counted as positive amounts.",
		}, []string{"trigger"}),
		DialogEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialog",
			Name:      "events_total",
			Help:      "Dialog engine operations by ritual and kind.",
		}, []string{"ritual", "kind"}),
		DialogErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialog",
			Name:      "errors_total",
			Help:      "Failed dialog operations by ritual and kind.",
		}, []string{"ritual", "kind"}),
		Completions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialog",
			Name:      "completions_total",
			Help:      "Rituals completed.",
		}, []string{"ritual"}),
		Nudges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "nudges_total",
			Help:      "Reminder nudges sent by ritual.",
		}, []string{"ritual"}),
	}
}

func (m *Metrics) ObserveUseCase(_ context.Context, e service.UseCaseEvent) {
	m.UseCases.WithLabelValues(e.Name, strconv.FormatBool(e.Success)).Inc()
	m.UseCaseDuration.WithLabelValues(e.Name).Observe(e.Duration.Seconds())

	if e.Name != "earn" || !e.Success {
		return
	}
	if dup, _ := e.Fields["duplicate"].(bool); dup {
		return
	}
	amount, _ := e.Fields["amount"].(int64)
	trigger, _ := e.Fields["trigger"].(string)
	if amount < 0 {
		amount = -amount
	}
	if amount > 0 && trigger != "" {
		m.Earned.WithLabelValues(trigger).Add(float64(amount))
	}
}

func (m *Metrics) ObserveDialog(_ context.Context, e dialog.Event) {
	ritual := e.Definition
	if ritual == "" {
		ritual = "none"
	}
	m.DialogEvents.WithLabelValues(ritual, string(e.Kind)).Inc()
	if e.Err != nil {
		m.DialogErrors.WithLabelValues(ritual, string(e.Kind)).Inc()
		return
	}
	if e.Kind == dialog.EventComplete {
		m.Completions.WithLabelValues(ritual).Inc()
	}
}

// NudgeSent counts a delivered reminder.
func (m *Metrics) NudgeSent(ritual string) {
	m.Nudges.WithLabelValues(ritual).Inc()
}
