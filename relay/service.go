// Package relay implements the cross-chain relay fraud engine: optimistic
// relays backed by relayer bonds, time-windowed fraud proofs, and the
// confirm-or-slash resolution of every relay.
package relay

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ipswyworld/ouroboros/db"
	"github.com/ipswyworld/ouroboros/db/kv"
	"github.com/ipswyworld/ouroboros/types"
)

// Engine-level errors. Precondition violations surface as typed errors;
// verification outcomes do not.
var (
	// ErrInsufficientBond is returned when a relayer's bond is below the minimum.
	ErrInsufficientBond = errors.New("relayer bond below minimum relay bond")
	// ErrBlacklisted is returned when the relayer is barred by the fraud monitor.
	ErrBlacklisted = errors.New("entity is blacklisted")
	// ErrDuplicateMessage is returned when a message hash was already relayed.
	ErrDuplicateMessage = errors.New("message already relayed")
	// ErrRelayNotFound is returned when referencing an unknown relay.
	ErrRelayNotFound = errors.New("relay not found")
	// ErrAlreadyFinalized is returned when mutating a relay in a terminal state.
	ErrAlreadyFinalized = kv.ErrAlreadyFinalized
	// ErrChallengeWindowExpired is returned when a fraud proof arrives too late.
	ErrChallengeWindowExpired = errors.New("relay challenge window expired")
	// ErrDuplicateChallenge is returned when a fraud proof was already accepted.
	ErrDuplicateChallenge = errors.New("fraud proof already submitted for relay")
	// ErrStillInChallengeWindow is returned when confirming a relay too early.
	ErrStillInChallengeWindow = errors.New("relay still in challenge window")
	// ErrUnresolvedFraudProof is returned when confirming a relay with a
	// pending fraud proof awaiting verification.
	ErrUnresolvedFraudProof = errors.New("relay has an unresolved fraud proof")
	// ErrNoFraudProof is returned when verifying a relay without a stored proof.
	ErrNoFraudProof = errors.New("no fraud proof submitted for relay")
)

// Notifier is the slice of the fraud monitor the relay engine consults:
// blacklist lookups before accepting work, and activity reports afterwards.
type Notifier interface {
	IsBlacklisted(entity string) bool
	RecordRelay(relayer string, amount uint64, success bool, now uint64) *types.Alert
}

// ServiceConfig wires the relay fraud engine's dependencies.
type ServiceConfig struct {
	Database db.Database
	Monitor  Notifier
}

// Service implements the relay fraud engine. All operations are synchronous
// and deterministic; any scheduler may call them any number of times.
type Service struct {
	cfg    *ServiceConfig
	ctx    context.Context
	cancel context.CancelFunc
}

// New instantiates a relay fraud engine from configuration values.
func New(ctx context.Context, cfg *ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errors.New("relay fraud engine requires a database")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start the relay fraud engine.
func (s *Service) Start() {
	log.Info("Starting relay fraud engine")
}

// Stop the relay fraud engine.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status of the relay fraud engine.
func (s *Service) Status() error {
	return nil
}
