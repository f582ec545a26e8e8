// Package metrics implements gateway.Hooks on top of Prometheus
// collectors, the same role the teacher's ecosystem gives kprom for
// franz-go: a Hooks/plugin implementation that turns client events
// into counters without the core caring that metrics
// exist at all.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/twmb/flowgate/pkg/gateway"
	"github.com/twmb/flowgate/pkg/storage"
)

// Hooks implements gateway.Hooks, recording session, publish, delivery
// and ack activity as Prometheus collectors.
type Hooks struct {
	sessionsOpened   prometheus.Counter
	sessionsClosed   *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	recordsDelivered *prometheus.CounterVec
	acks             *prometheus.CounterVec
}

// NewHooks builds a Hooks and registers its collectors with reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewHooks(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowgate",
			Subsystem: "gateway",
			Name:      "sessions_opened_total",
			Help:      "Number of SUBSCRIBE sessions opened.",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgate",
			Subsystem: "gateway",
			Name:      "sessions_closed_total",
			Help:      "Number of SUBSCRIBE sessions closed, by outcome.",
		}, []string{"outcome"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgate",
			Subsystem: "gateway",
			Name:      "publishes_total",
			Help:      "Number of PUBLISH calls, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		recordsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgate",
			Subsystem: "gateway",
			Name:      "records_delivered_total",
			Help:      "Number of records delivered via RECEIVE, by replay flag.",
		}, []string{"replay"}),
		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgate",
			Subsystem: "gateway",
			Name:      "acks_total",
			Help:      "Number of ACK calls, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		h.sessionsOpened,
		h.sessionsClosed,
		h.publishes,
		h.recordsDelivered,
		h.acks,
	)
	return h
}

var _ gateway.Hooks = (*Hooks)(nil)

func (h *Hooks) OnSessionOpened(gateway.SessionID, string, storage.GroupID) {
	h.sessionsOpened.Inc()
}

func (h *Hooks) OnSessionClosed(_ gateway.SessionID, err error) {
	outcome := "clean"
	if err != nil {
		outcome = "error"
	}
	h.sessionsClosed.WithLabelValues(outcome).Inc()
}

func (h *Hooks) OnPublish(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.publishes.WithLabelValues(topic, outcome).Inc()
}

func (h *Hooks) OnRecordDelivered(_ gateway.SessionID, _ uint32, replay bool) {
	label := "false"
	if replay {
		label = "true"
	}
	h.recordsDelivered.WithLabelValues(label).Inc()
}

func (h *Hooks) OnAck(_ gateway.SessionID, _ uint32, _ uint64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.acks.WithLabelValues(outcome).Inc()
}
