package anchor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	anchorsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anchors_submitted_total",
			Help: "Number of microchain state anchors accepted",
		},
	)
	anchorsFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anchors_finalized_total",
			Help: "Number of anchors finalized after their challenge window",
		},
	)
	anchorsReverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anchors_reverted_total",
			Help: "Number of anchors reverted on an accepted challenge",
		},
	)
	challengesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anchor_challenges_submitted_total",
			Help: "Number of challenges opened against pending anchors",
		},
	)
	challengesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anchor_challenges_accepted_total",
			Help: "Number of challenges proven against anchors",
		},
	)
	challengesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anchor_challenges_rejected_total",
			Help: "Number of challenges that failed verification",
		},
	)
	forceExitsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "force_exits_requested_total",
			Help: "Number of force exit requests accepted",
		},
	)
	forceExitsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "force_exits_processed_total",
			Help: "Number of force exits paid out after the exit delay",
		},
	)
)
