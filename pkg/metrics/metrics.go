// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "play_session"

// Join outcomes.
const (
	JoinAdded    = "added"
	JoinRepeated = "repeated"
	JoinRejected = "rejected"
)

// Grouping triggers.
const (
	TriggerJoin      = "join"
	TriggerAdmin     = "admin"
	TriggerReady     = "ready"
	TriggerReconcile = "reconcile"
)

// Metrics holds the domain collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	SessionsCreated prometheus.Counter
	Joins           *prometheus.CounterVec
	Groupings       *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	StoreConflicts  *prometheus.CounterVec
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of play sessions created",
		}),
		Joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Total number of join requests by outcome",
		}, []string{"result"}),
		Groupings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groupings_total",
			Help:      "Total number of sessions locked into groups by trigger",
		}, []string{"trigger"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of lifecycle transitions by target status",
		}, []string{"to"}),
		StoreConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Total number of optimistic update collisions by store backend",
		}, []string{"backend"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.SessionsCreated,
		m.Joins,
		m.Groupings,
		m.Transitions,
		m.StoreConflicts,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) Join(result string) {
	if m == nil {
		return
	}
	m.Joins.WithLabelValues(result).Inc()
}

func (m *Metrics) Grouped(trigger string) {
	if m == nil {
		return
	}
	m.Groupings.WithLabelValues(trigger).Inc()
}

func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) Conflict(backend string) {
	if m == nil {
		return
	}
	m.StoreConflicts.WithLabelValues(backend).Inc()
}
