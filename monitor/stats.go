package monitor

import (
	"github.com/ipswyworld/ouroboros/shared/params"
)

// activityEvent is one observed action by an entity.
type activityEvent struct {
	Timestamp uint64
	Amount    uint64
	Success   bool
}

// EntityActivityStats is the rolling activity record the monitor keeps per
// entity. Totals are lifetime; events are pruned to the activity window.
type EntityActivityStats struct {
	Entity       string
	TotalCount   uint64
	FailureCount uint64
	TotalVolume  uint64
	LastAnchorAt uint64
	FirstSeen    uint64
	LastSeen     uint64
	events       []activityEvent
}

// record appends an event and prunes everything older than the window.
func (st *EntityActivityStats) record(amount uint64, success bool, now uint64) {
	st.TotalCount++
	st.TotalVolume += amount
	if !success {
		st.FailureCount++
	}
	if st.FirstSeen == 0 {
		st.FirstSeen = now
	}
	st.LastSeen = now
	st.events = append(st.events, activityEvent{Timestamp: now, Amount: amount, Success: success})
	st.prune(now)
}

func (st *EntityActivityStats) prune(now uint64) {
	window := params.GuardianConfig().ActivityWindow
	cut := 0
	for cut < len(st.events) && st.events[cut].Timestamp+window < now {
		cut++
	}
	if cut > 0 {
		st.events = append(st.events[:0:0], st.events[cut:]...)
	}
}

// FailureRate is the fraction of failed actions over the entity's lifetime.
func (st *EntityActivityStats) FailureRate() float64 {
	if st.TotalCount == 0 {
		return 0
	}
	return float64(st.FailureCount) / float64(st.TotalCount)
}

// WindowVolume sums amounts observed within the rolling window ending at now.
func (st *EntityActivityStats) WindowVolume(now uint64) uint64 {
	window := params.GuardianConfig().ActivityWindow
	var total uint64
	for _, ev := range st.events {
		if ev.Timestamp+window >= now {
			total += ev.Amount
		}
	}
	return total
}

// WindowEvents counts events within the rolling window ending at now.
func (st *EntityActivityStats) WindowEvents(now uint64) int {
	window := params.GuardianConfig().ActivityWindow
	n := 0
	for _, ev := range st.events {
		if ev.Timestamp+window >= now {
			n++
		}
	}
	return n
}

// copyStats snapshots stats for read access outside the monitor's lock.
func copyStats(st *EntityActivityStats) *EntityActivityStats {
	cp := *st
	cp.events = append([]activityEvent(nil), st.events...)
	return &cp
}
