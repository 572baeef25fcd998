package httpform

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels used by the counters.
const (
	outcomeValid    = "valid"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
	outcomeAccepted = "accepted"
	outcomeBlocked  = "blocked"
	outcomeRejected = "rejected"
)

type metrics struct {
	sessions    prometheus.Counter
	evictions   prometheus.Counter
	edits       *prometheus.CounterVec
	submissions *prometheus.CounterVec
}

func newMetrics(formName string) *metrics {
	labels := prometheus.Labels{"form": formName}
	return &metrics{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "formkit_http_sessions_total",
			Help:        "Total number of mounted form sessions",
			ConstLabels: labels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "formkit_http_sessions_evicted_total",
			Help:        "Sessions dropped for idling past the TTL or to respect the session cap",
			ConstLabels: labels,
		}),
		edits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "formkit_http_edits_total",
				Help:        "Field edits applied through the HTTP host, by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "formkit_http_submissions_total",
				Help:        "Form submissions, by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
	}
}

// register tolerates collectors that are already registered so several
// servers can share a registry per form name.
func (m *metrics) register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	var err error
	if m.sessions, err = registerCollector(reg, m.sessions); err != nil {
		return err
	}
	if m.evictions, err = registerCollector(reg, m.evictions); err != nil {
		return err
	}
	if m.edits, err = registerCollector(reg, m.edits); err != nil {
		return err
	}
	if m.submissions, err = registerCollector(reg, m.submissions); err != nil {
		return err
	}
	return nil
}

func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
