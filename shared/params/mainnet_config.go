package params

import "time"

// MainnetConfig returns the configuration to be used in the main network.
func MainnetConfig() *GuardianChainConfig {
	return mainnetGuardianConfig
}

// UseMainnetConfig for guardian services.
func UseMainnetConfig() {
	OverrideGuardianConfig(MainnetConfig())
}

var mainnetGuardianConfig = &GuardianChainConfig{
	// Cross-chain relay constants.
	MinRelayBond:             100_000_000, // 1 OURO.
	RelayChallengePeriod:     600,         // 10 minutes.
	RelaySlashAmount:         100_000_000,
	RelayConfirmReward:       1_000_000, // 0.01 OURO.
	ChallengerRewardQuotient: 2,
	TreasuryAccount:          "treasury",

	// Microchain anchor constants.
	MinOperatorStake:      1_000_000_000, // 10 OURO.
	MinChallengeBond:      20_000_000,    // 0.2 OURO.
	AnchorChallengePeriod: 604_800,       // 7 days.
	OperatorSlashDivisor:  2,             // 50% of stake.
	ExitDelay:             86_400,        // 1 day.
	StateTrieDepth:        16,

	// Fraud monitoring thresholds.
	MaxFailureRate:       0.10,
	MinFailureSample:     10,
	MaxVolumePerHour:     100_000_000_000, // 1000 OURO.
	HighValueThreshold:   10_000_000_000,  // 100 OURO.
	MaxRapidTransactions: 10,
	RapidTxWindow:        60,
	MinAnchorFrequency:   3_600, // 1 hour.
	ActivityWindow:       3_600,
	MaxAlerts:            1_000,
	MaxAlertAge:          604_800,
	StatsTTL:             24 * time.Hour,

	// Background scheduler.
	ScanInterval: 10 * time.Second,
}
