// Package anchor implements the microchain state anchor challenge engine:
// operator-signed state anchors held open for a challenge period, bonded
// challenges verified against ground truth, operator slashing on reverts,
// and Merkle-proven force exits against the latest finalized root.
package anchor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ipswyworld/ouroboros/crypto"
	"github.com/ipswyworld/ouroboros/db"
	"github.com/ipswyworld/ouroboros/db/kv"
)

// Engine-level errors surfaced by anchor operations.
var (
	// ErrUnknownMicrochain is returned when referencing an unregistered microchain.
	ErrUnknownMicrochain = errors.New("microchain not registered")
	// ErrMicrochainExists is returned when re-registering a microchain id.
	ErrMicrochainExists = errors.New("microchain already registered")
	// ErrInsufficientStake is returned when an operator's stake is below the minimum.
	ErrInsufficientStake = errors.New("operator stake below minimum")
	// ErrInsufficientChallengeBond is returned when a challenger's bond is below the minimum.
	ErrInsufficientChallengeBond = errors.New("challenge bond below minimum")
	// ErrBlacklisted is returned when the caller is barred by the fraud monitor.
	ErrBlacklisted = errors.New("entity is blacklisted")
	// ErrStaleHeight is returned when anchoring at or below the finalized height.
	ErrStaleHeight = kv.ErrStaleHeight
	// ErrInvalidSignature is returned when an anchor's operator signature fails.
	ErrInvalidSignature = errors.New("invalid operator signature over anchor")
	// ErrAnchorNotFound is returned when referencing an unknown anchor.
	ErrAnchorNotFound = errors.New("anchor not found")
	// ErrDuplicateAnchor is returned when an identical anchor was already submitted.
	ErrDuplicateAnchor = errors.New("anchor already submitted")
	// ErrAlreadyFinalized is returned when mutating an anchor in a terminal state.
	ErrAlreadyFinalized = kv.ErrAlreadyFinalized
	// ErrChallengeWindowExpired is returned when a challenge arrives too late.
	ErrChallengeWindowExpired = errors.New("anchor challenge window expired")
	// ErrStillInChallengeWindow is returned when finalizing an anchor too early.
	ErrStillInChallengeWindow = errors.New("anchor still in challenge window")
	// ErrChallengeUnresolved is returned when finalizing past an open challenge.
	ErrChallengeUnresolved = errors.New("anchor has unresolved challenges")
	// ErrChallengeNotFound is returned when referencing an unknown challenge.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeResolved is returned when re-verifying a settled challenge.
	ErrChallengeResolved = errors.New("challenge already resolved")
	// ErrNoFinalizedState is returned when a force exit targets a microchain
	// with no finalized anchor to prove against.
	ErrNoFinalizedState = errors.New("microchain has no finalized state")
	// ErrInvalidProof is returned when a force exit proof fails verification.
	ErrInvalidProof = errors.New("invalid force exit merkle proof")
	// ErrNonceReplay is returned when a force exit reuses a consumed nonce.
	ErrNonceReplay = kv.ErrNonceReplay
	// ErrExitDelayActive is returned when processing a force exit too early.
	ErrExitDelayActive = errors.New("force exit delay has not elapsed")
	// ErrExitNotFound is returned when referencing an unknown force exit.
	ErrExitNotFound = errors.New("force exit not found")
)

// Notifier is the slice of the fraud monitor the anchor engine consults.
type Notifier interface {
	IsBlacklisted(entity string) bool
	RecordAnchor(microchainID, operator string, now uint64)
}

// Ledger credits processed force exit amounts back to users on the parent
// chain. The engine only requires the credit side.
type Ledger interface {
	Credit(ctx context.Context, account string, amount uint64) error
}

// ServiceConfig wires the anchor challenge engine's dependencies.
type ServiceConfig struct {
	Database db.Database
	Monitor  Notifier
	Verifier crypto.Verifier
	Ledger   Ledger
}

// Service implements the anchor challenge engine.
type Service struct {
	cfg    *ServiceConfig
	ctx    context.Context
	cancel context.CancelFunc
}

// New instantiates an anchor challenge engine from configuration values.
func New(ctx context.Context, cfg *ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errors.New("anchor challenge engine requires a database")
	}
	if cfg.Verifier == nil {
		cfg.Verifier = crypto.Ed25519Verifier{}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start the anchor challenge engine.
func (s *Service) Start() {
	log.Info("Starting anchor challenge engine")
}

// Stop the anchor challenge engine.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status of the anchor challenge engine.
func (s *Service) Status() error {
	return nil
}
