package node

import (
	"github.com/ipswyworld/ouroboros/monitor"
	"github.com/ipswyworld/ouroboros/types"
)

// enforcer wraps the fraud monitor for the engines and acts on the automatic
// actions its alerts suggest: blacklist demands become permanent entries,
// pause demands become clearable ones. Context for the blacklist writes comes
// from the wrapped monitor's lifetime.
type enforcer struct {
	monitor *monitor.Service
}

func (e *enforcer) IsBlacklisted(entity string) bool {
	return e.monitor.IsBlacklisted(entity)
}

func (e *enforcer) RecordRelay(relayer string, amount uint64, success bool, now uint64) *types.Alert {
	alert := e.monitor.MonitorRelay(relayer, amount, success, now)
	if alert != nil {
		e.enact(alert, now)
	}
	return alert
}

func (e *enforcer) RecordAnchor(microchainID, operator string, now uint64) {
	e.monitor.RecordAnchor(microchainID, operator, now)
}

func (e *enforcer) enact(alert *types.Alert, now uint64) {
	switch alert.Action {
	case types.ActionBlacklist:
		if err := e.monitor.BlacklistEntity(
			e.monitor.Context(), alert.Entity, alert.Description, true, now,
		); err != nil {
			log.WithError(err).WithField("entity", alert.Entity).Error("Could not blacklist entity")
		}
	case types.ActionPauseRelayer:
		if e.monitor.IsBlacklisted(alert.Entity) {
			return
		}
		if err := e.monitor.BlacklistEntity(
			e.monitor.Context(), alert.Entity, alert.Description, false, now,
		); err != nil {
			log.WithError(err).WithField("entity", alert.Entity).Error("Could not pause relayer")
		}
	}
}
