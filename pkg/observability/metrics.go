package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	transitions  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	submitLength *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdesk_step_transitions_total",
			Help: "Steps entered, by wizard, step and direction.",
		}, []string{"wizard", "step", "direction"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdesk_validation_failures_total",
			Help: "Blocked step advancements, by wizard and step.",
		}, []string{"wizard", "step"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdesk_fetches_total",
			Help: "Asynchronous option and search fetches, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdesk_submissions_total",
			Help: "Submission attempts, by wizard, mode and outcome.",
		}, []string{"wizard", "mode", "outcome"}),
		submitLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentdesk_submission_duration_seconds",
			Help:    "Duration of create/update calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"wizard"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.transitions, m.failures, m.fetches, m.submissions, m.submitLength}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.transitions.WithLabelValues(e.Wizard, string(e.StepID), e.Direction).Inc()
		},
		OnValidationFailed: func(_ context.Context, e *domain.StepEvent) {
			m.failures.WithLabelValues(e.Wizard, string(e.StepID)).Inc()
		},
		OnFetch: func(_ context.Context, e *domain.FetchEvent) {
			m.fetches.WithLabelValues(e.Trigger, string(e.Outcome)).Inc()
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			outcome := "success"
			if e.Err != "" {
				outcome = "failure"
			}
			m.submissions.WithLabelValues(e.Wizard, string(e.Mode), outcome).Inc()
			m.submitLength.WithLabelValues(e.Wizard).Observe(e.Duration.Seconds())
		},
	}
}
