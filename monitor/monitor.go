package monitor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ipswyworld/ouroboros/shared/mathutil"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/types"
)

// Alert kinds raised by the monitor's threshold rules.
const (
	AlertBlacklistedActivity = "BlacklistedActivity"
	AlertHighFailureRate     = "HighFailureRate"
	AlertExcessiveVolume     = "ExcessiveVolume"
	AlertHighValueFailure    = "HighValueFailure"
	AlertMissingStateAnchor  = "MissingStateAnchor"
	AlertDoubleSpendAttempt  = "DoubleSpendAttempt"
	AlertRapidWithdrawal     = "RapidWithdrawal"
)

// MonitorRelay folds one relay attempt into the relayer's rolling statistics
// and evaluates the relay threshold rules. At most one alert is returned, the
// highest severity among the matching rules.
func (s *Service) MonitorRelay(relayer string, amount uint64, success bool, now uint64) *types.Alert {
	cfg := params.GuardianConfig()

	s.lock.Lock()
	st := s.statsFor(relayer)
	st.record(amount, success, now)
	failureRate := st.FailureRate()
	total := st.TotalCount
	volume := st.WindowVolume(now)
	s.lock.Unlock()

	var best *types.Alert
	consider := func(a *types.Alert) {
		if best == nil || a.Severity > best.Severity {
			best = a
		}
	}

	if s.IsBlacklisted(relayer) {
		consider(&types.Alert{
			Severity:    types.SeverityCritical,
			Kind:        AlertBlacklistedActivity,
			Entity:      relayer,
			Description: fmt.Sprintf("blacklisted relayer %s attempted a relay", relayer),
			Action:      types.ActionPauseRelayer,
		})
	}
	if total >= cfg.MinFailureSample && failureRate > cfg.MaxFailureRate {
		consider(&types.Alert{
			Severity:    types.SeverityHigh,
			Kind:        AlertHighFailureRate,
			Entity:      relayer,
			Description: fmt.Sprintf("failure rate %.2f exceeds maximum %.2f", failureRate, cfg.MaxFailureRate),
			Action:      types.ActionIncreaseMonitoring,
		})
	}
	if volume > cfg.MaxVolumePerHour {
		consider(&types.Alert{
			Severity:    types.SeverityHigh,
			Kind:        AlertExcessiveVolume,
			Entity:      relayer,
			Description: fmt.Sprintf("rolling volume %d exceeds hourly ceiling %d", volume, cfg.MaxVolumePerHour),
			Action:      types.ActionIncreaseMonitoring,
		})
	}
	if amount >= cfg.HighValueThreshold && !success {
		consider(&types.Alert{
			Severity:    types.SeverityCritical,
			Kind:        AlertHighValueFailure,
			Entity:      relayer,
			Description: fmt.Sprintf("failed relay of high value amount %d", amount),
			Action:      types.ActionSubmitFraudProof,
		})
	}
	if best == nil {
		return nil
	}
	return s.raise(best, now)
}

// RecordRelay is the engine-facing hook feeding MonitorRelay.
func (s *Service) RecordRelay(relayer string, amount uint64, success bool, now uint64) *types.Alert {
	return s.MonitorRelay(relayer, amount, success, now)
}

// RecordAnchor notes an operator's anchor submission so missing-anchor checks
// have a reference point.
func (s *Service) RecordAnchor(microchainID, operator string, now uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	st := s.statsFor(operator)
	st.record(0, true, now)
	st.LastAnchorAt = now
	chainStats := s.statsFor(microchainID)
	chainStats.LastAnchorAt = now
}

// MonitorOperator checks whether an operator has gone quiet past the minimum
// anchor frequency.
func (s *Service) MonitorOperator(operator, microchainID string, lastAnchorTime, now uint64) *types.Alert {
	gap := mathutil.ClampedSub(now, lastAnchorTime)
	if gap <= params.GuardianConfig().MinAnchorFrequency {
		return nil
	}
	return s.raise(&types.Alert{
		Severity: types.SeverityHigh,
		Kind:     AlertMissingStateAnchor,
		Entity:   operator,
		Description: fmt.Sprintf(
			"no anchor for microchain %s in %d seconds", microchainID, gap,
		),
		Action: types.ActionNone,
	}, now)
}

// MonitorTransactions inspects a user's transaction sequence for nonce reuse
// and withdrawal bursts. A double spend attempt outranks a rapid burst.
func (s *Service) MonitorTransactions(user string, events []types.NonceEvent, now uint64) *types.Alert {
	seen := make(map[uint64]bool, len(events))
	for _, ev := range events {
		if seen[ev.Nonce] {
			return s.raise(&types.Alert{
				Severity:    types.SeverityCritical,
				Kind:        AlertDoubleSpendAttempt,
				Entity:      user,
				Description: fmt.Sprintf("nonce %d reused in transaction sequence", ev.Nonce),
				Action:      types.ActionSubmitFraudProof,
			}, now)
		}
		seen[ev.Nonce] = true
	}
	cfg := params.GuardianConfig()
	rapid := 0
	for _, ev := range events {
		if ev.Timestamp+cfg.RapidTxWindow >= now {
			rapid++
		}
	}
	if rapid > cfg.MaxRapidTransactions {
		return s.raise(&types.Alert{
			Severity:    types.SeverityMedium,
			Kind:        AlertRapidWithdrawal,
			Entity:      user,
			Description: fmt.Sprintf("%d transactions within %d seconds", rapid, cfg.RapidTxWindow),
			Action:      types.ActionNone,
		}, now)
	}
	return nil
}

// raise assigns identity to an alert, retains it and publishes metrics.
func (s *Service) raise(alert *types.Alert, now uint64) *types.Alert {
	alert.ID = uuid.New().String()
	alert.Timestamp = now
	s.lock.Lock()
	s.alerts = append(s.alerts, alert)
	s.lock.Unlock()
	alertsTotal.WithLabelValues(alert.Severity.String()).Inc()
	entry := log.WithField("entity", alert.Entity).WithField(
		"kind", alert.Kind).WithField("severity", alert.Severity.String())
	if alert.Severity >= types.SeverityCritical {
		entry.Error(alert.Description)
	} else {
		entry.Warn(alert.Description)
	}
	return alert
}

// RecentAlerts returns up to n most recent alerts, newest first.
func (s *Service) RecentAlerts(n int) []*types.Alert {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if n <= 0 || n > len(s.alerts) {
		n = len(s.alerts)
	}
	out := make([]*types.Alert, 0, n)
	for i := len(s.alerts) - 1; i >= len(s.alerts)-n; i-- {
		out = append(out, s.alerts[i])
	}
	return out
}

// AlertsBySeverity returns retained alerts at exactly the given severity.
func (s *Service) AlertsBySeverity(severity types.AlertSeverity) []*types.Alert {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var out []*types.Alert
	for _, a := range s.alerts {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out
}

// CleanupOldAlerts prunes retained alerts beyond the retention count or age.
// Entity statistics are untouched. Returns how many alerts were dropped.
func (s *Service) CleanupOldAlerts(now uint64) int {
	cfg := params.GuardianConfig()
	s.lock.Lock()
	defer s.lock.Unlock()
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if a.Timestamp+cfg.MaxAlertAge >= now {
			kept = append(kept, a)
		}
	}
	if len(kept) > cfg.MaxAlerts {
		kept = kept[len(kept)-cfg.MaxAlerts:]
	}
	dropped := len(s.alerts) - len(kept)
	s.alerts = append([]*types.Alert(nil), kept...)
	if dropped > 0 {
		log.WithField("dropped", dropped).Debug("Pruned old alerts")
	}
	return dropped
}
