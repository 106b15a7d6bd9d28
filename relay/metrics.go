package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relaysSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relays_submitted_total",
			Help: "Number of cross-chain relays accepted",
		},
	)
	relaysConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relays_confirmed_total",
			Help: "Number of relays confirmed after their challenge window",
		},
	)
	relaysSlashed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relays_slashed_total",
			Help: "Number of relays slashed on a proven fraud proof",
		},
	)
	fraudProofsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_fraud_proofs_submitted_total",
			Help: "Number of fraud proofs accepted against pending relays",
		},
	)
	fraudProofsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_fraud_proofs_rejected_total",
			Help: "Number of fraud proofs that failed verification",
		},
	)
)
