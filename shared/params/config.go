// Package params defines important configuration constants for the guardian
// subsystem: bond minimums, challenge windows, slashing splits, and fraud
// monitoring thresholds. All protocol dollars-and-deadlines live here so that
// nodes can agree on them and tests can override them.
package params

import (
	"sync"
	"time"

	"github.com/mohae/deepcopy"
)

// GuardianChainConfig contains constants used by the relay fraud engine, the
// anchor challenge engine and the fraud monitor. Amounts are in base units
// (1 OURO = 100_000_000 units); durations measured against block timestamps
// are uint64 seconds, local-process durations are time.Duration.
type GuardianChainConfig struct {
	// Cross-chain relay constants.
	MinRelayBond             uint64 // Minimum relayer bond to submit a relay.
	RelayChallengePeriod     uint64 // Seconds a relay stays challengeable.
	RelaySlashAmount         uint64 // Bond slashed on a proven fraudulent relay.
	RelayConfirmReward       uint64 // Reward credited when a relay confirms.
	ChallengerRewardQuotient uint64 // Challenger receives slash/quotient, remainder to treasury.
	TreasuryAccount          string // Entity credited with burn remainders and forfeited bonds.

	// Microchain anchor constants.
	MinOperatorStake      uint64 // Minimum operator stake to submit anchors.
	MinChallengeBond      uint64 // Minimum challenger bond to open a challenge.
	AnchorChallengePeriod uint64 // Seconds an anchor stays challengeable.
	OperatorSlashDivisor  uint64 // Operator loses stake/divisor on an accepted challenge.
	ExitDelay             uint64 // Seconds before a force exit may be processed.
	StateTrieDepth        uint64 // Depth of the microchain state trie.

	// Fraud monitoring thresholds.
	MaxFailureRate       float64       // Failure rate above which an alert fires.
	MinFailureSample     uint64        // Minimum sample size before failure rate applies.
	MaxVolumePerHour     uint64        // Rolling hourly volume ceiling per entity.
	HighValueThreshold   uint64        // Single-transfer amount considered high value.
	MaxRapidTransactions int           // Transactions within RapidTxWindow before alerting.
	RapidTxWindow        uint64        // Seconds defining the rapid-transaction window.
	MinAnchorFrequency   uint64        // Seconds between anchors before an operator alert.
	ActivityWindow       uint64        // Seconds of per-entity samples retained.
	MaxAlerts            int           // Alerts retained before pruning oldest.
	MaxAlertAge          uint64        // Seconds an alert is retained.
	StatsTTL             time.Duration // Idle time before entity stats expire.

	// Background scheduler.
	ScanInterval time.Duration // Interval between pending-record scans.
}

var guardianConfig = MainnetConfig()
var guardianConfigLock sync.RWMutex

// GuardianConfig retrieves the guardian chain config.
func GuardianConfig() *GuardianChainConfig {
	guardianConfigLock.RLock()
	defer guardianConfigLock.RUnlock()
	return guardianConfig
}

// OverrideGuardianConfig by replacing the config. The preferred pattern is to
// call GuardianConfig().Copy(), change the specific parameters, and then call
// OverrideGuardianConfig(c). Any subsequent calls to params.GuardianConfig()
// will return this new configuration.
func OverrideGuardianConfig(c *GuardianChainConfig) {
	guardianConfigLock.Lock()
	defer guardianConfigLock.Unlock()
	guardianConfig = c
}

// Copy returns a deep copy of the config object.
func (c *GuardianChainConfig) Copy() *GuardianChainConfig {
	guardianConfigLock.RLock()
	defer guardianConfigLock.RUnlock()
	config, ok := deepcopy.Copy(*c).(GuardianChainConfig)
	if !ok {
		config = *guardianConfig
	}
	return &config
}

// SetupTestConfigCleanup preserves the current config and restores it when the
// test and all its subtests complete.
func SetupTestConfigCleanup(t interface{ Cleanup(func()) }) {
	prev := GuardianConfig()
	t.Cleanup(func() {
		OverrideGuardianConfig(prev)
	})
}
