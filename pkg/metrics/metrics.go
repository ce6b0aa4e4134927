// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay_match"

var (
	// SessionTransitionsTotal counts coordinator state transitions.
	SessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of relay session state transitions",
		},
		[]string{"from", "to"},
	)

	// SessionOperationsTotal counts coordinator operations by outcome.
	SessionOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_operations_total",
			Help:      "Total number of relay session operations by result",
		},
		[]string{"operation", "result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Total number of retried attempts per operation",
		},
		[]string{"operation"},
	)

	SelectionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_events_total",
			Help:      "Selection store events by type",
		},
		[]string{"event"},
	)

	GoalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goals_total",
			Help:      "Goals recorded by side",
		},
		[]string{"side"},
	)

	MatchesEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_ended_total",
			Help:      "Finished matches by result",
		},
		[]string{"result"},
	)

	// PeerRoundTripMillis is the latest sampled round-trip time per peer.
	PeerRoundTripMillis = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_round_trip_milliseconds",
			Help:      "Latest round-trip time sampled for a connected peer",
		},
		[]string{"participant"},
	)
)

// Collectors returns every domain collector for registration on a registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SessionTransitionsTotal,
		SessionOperationsTotal,
		RetryAttemptsTotal,
		SelectionEventsTotal,
		GoalsTotal,
		MatchesEndedTotal,
		PeerRoundTripMillis,
	}
}
