// Package iface defines the interface for the guardian database, to avoid
// circular dependencies with the engine packages.
package iface

import (
	"context"
	"io"

	"github.com/ipswyworld/ouroboros/types"
)

// Database defines the persistence contract consumed by the relay fraud
// engine, the anchor challenge engine and the fraud monitor. Every mutation
// that pairs a status transition with a balance change is atomic.
type Database interface {
	io.Closer
	DatabasePath() string
	ClearDB() error

	// Stake ledger.
	DepositRelayerBond(ctx context.Context, relayer string, amount uint64) error
	RelayerBond(ctx context.Context, relayer string) (uint64, error)
	DepositOperatorStake(ctx context.Context, operator string, amount uint64) error
	OperatorStake(ctx context.Context, operator string) (uint64, error)
	DepositChallengeBond(ctx context.Context, challenger string, amount uint64) error
	ChallengeBond(ctx context.Context, challenger string) (uint64, error)
	RewardBalance(ctx context.Context, entity string) (uint64, error)
	SlashedAmount(ctx context.Context, entity string) (uint64, error)

	// Cross-chain relays.
	SaveRelay(ctx context.Context, relay *types.RelayRecord) error
	Relay(ctx context.Context, messageHash [32]byte) (*types.RelayRecord, error)
	RelayBySenderNonce(ctx context.Context, sender string, nonce uint64) ([32]byte, bool, error)
	PendingRelays(ctx context.Context) ([]*types.RelayRecord, error)
	ConfirmRelay(ctx context.Context, messageHash [32]byte, reward uint64) error
	SlashRelay(ctx context.Context, messageHash [32]byte, slashAmount uint64, challenger string, rewardQuotient uint64, treasury string) (uint64, error)
	SaveFraudProof(ctx context.Context, proof *types.FraudProofRecord) error
	FraudProof(ctx context.Context, messageHash [32]byte) (*types.FraudProofRecord, error)
	DeleteFraudProof(ctx context.Context, messageHash [32]byte) error

	// Microchain anchors and challenges.
	SaveMicrochain(ctx context.Context, chain *types.Microchain) error
	Microchain(ctx context.Context, id string) (*types.Microchain, error)
	SaveAnchor(ctx context.Context, anchor *types.StateAnchorRecord) error
	Anchor(ctx context.Context, anchorHash [32]byte) (*types.StateAnchorRecord, error)
	PendingAnchors(ctx context.Context) ([]*types.StateAnchorRecord, error)
	LatestFinalizedState(ctx context.Context, microchainID string) (*types.FinalizedState, error)
	FinalizeAnchor(ctx context.Context, anchorHash [32]byte) error
	RevertAnchor(ctx context.Context, anchorHash [32]byte, challengeID string, slashDivisor uint64) (uint64, error)
	SaveChallenge(ctx context.Context, challenge *types.ChallengeRecord) error
	Challenge(ctx context.Context, challengeID string) (*types.ChallengeRecord, error)
	ChallengesByAnchor(ctx context.Context, anchorHash [32]byte) ([]*types.ChallengeRecord, error)
	RejectChallenge(ctx context.Context, challengeID, treasury string) (uint64, error)

	// Force exits.
	SaveForceExit(ctx context.Context, exit *types.ForceExitRequest) error
	ForceExit(ctx context.Context, exitID string) (*types.ForceExitRequest, error)
	PendingForceExits(ctx context.Context) ([]*types.ForceExitRequest, error)
	ProcessForceExit(ctx context.Context, exitID string) (uint64, error)
	RejectForceExit(ctx context.Context, exitID string) error

	// Blacklist.
	SaveBlacklistEntry(ctx context.Context, entry *types.BlacklistEntry) error
	BlacklistEntry(ctx context.Context, entity string) (*types.BlacklistEntry, error)
	IsBlacklisted(ctx context.Context, entity string) (bool, error)
	DeleteBlacklistEntry(ctx context.Context, entity string) error
	BlacklistSize(ctx context.Context) (int, error)
}
