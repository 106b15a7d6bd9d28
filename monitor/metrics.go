package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_monitor_alerts_total",
			Help: "Number of alerts raised, labelled by severity",
		},
		[]string{"severity"},
	)
	blacklistedEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraud_monitor_blacklisted_entities",
			Help: "Number of entities currently blacklisted",
		},
	)
	trackedEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraud_monitor_tracked_entities",
			Help: "Number of entities with live activity statistics",
		},
	)
)
