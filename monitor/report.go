package monitor

import (
	"context"
	"sort"

	"github.com/ipswyworld/ouroboros/types"
)

// EntityRanking is one entry in a report's top-entities listing.
type EntityRanking struct {
	Entity      string
	Volume      uint64
	FailureRate float64
}

// Report is a point-in-time snapshot of monitoring state.
type Report struct {
	GeneratedAt      uint64
	TotalAlerts      int
	AlertsBySeverity map[types.AlertSeverity]int
	BlacklistSize    int
	TopByVolume      []EntityRanking
	TopByFailureRate []EntityRanking
}

// reportTopN bounds the top-entities listings.
const reportTopN = 10

// GenerateReport snapshots alert totals by severity, the blacklist size and
// the most active entities. Pure read, no mutation.
func (s *Service) GenerateReport(ctx context.Context, now uint64) (*Report, error) {
	blSize, err := s.cfg.Database.BlacklistSize(ctx)
	if err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	report := &Report{
		GeneratedAt:      now,
		TotalAlerts:      len(s.alerts),
		AlertsBySeverity: make(map[types.AlertSeverity]int),
		BlacklistSize:    blSize,
	}
	for _, a := range s.alerts {
		report.AlertsBySeverity[a.Severity]++
	}

	var rankings []EntityRanking
	for entity, item := range s.stats.Items() {
		st, ok := item.Object.(*EntityActivityStats)
		if !ok {
			continue
		}
		rankings = append(rankings, EntityRanking{
			Entity:      entity,
			Volume:      st.TotalVolume,
			FailureRate: st.FailureRate(),
		})
	}

	byVolume := append([]EntityRanking(nil), rankings...)
	sort.Slice(byVolume, func(i, j int) bool {
		if byVolume[i].Volume != byVolume[j].Volume {
			return byVolume[i].Volume > byVolume[j].Volume
		}
		return byVolume[i].Entity < byVolume[j].Entity
	})
	if len(byVolume) > reportTopN {
		byVolume = byVolume[:reportTopN]
	}
	report.TopByVolume = byVolume

	byFailure := append([]EntityRanking(nil), rankings...)
	sort.Slice(byFailure, func(i, j int) bool {
		if byFailure[i].FailureRate != byFailure[j].FailureRate {
			return byFailure[i].FailureRate > byFailure[j].FailureRate
		}
		return byFailure[i].Entity < byFailure[j].Entity
	})
	if len(byFailure) > reportTopN {
		byFailure = byFailure[:reportTopN]
	}
	report.TopByFailureRate = byFailure

	return report, nil
}
