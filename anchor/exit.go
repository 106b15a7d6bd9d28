package anchor

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/shared/mathutil"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/shared/trieutil"
	"github.com/ipswyworld/ouroboros/types"
)

// ForceExit retrieves a force exit request by id.
func (s *Service) ForceExit(ctx context.Context, exitID string) (*types.ForceExitRequest, error) {
	return s.cfg.Database.ForceExit(ctx, exitID)
}

// RequestForceExit opens a user withdrawal that bypasses the microchain
// operator. The claimed amount must be proven under the microchain's latest
// finalized state root, and each (microchain, user, nonce) is good once.
// Returns the exit id.
func (s *Service) RequestForceExit(
	ctx context.Context,
	microchainID, user string,
	amount, nonce uint64,
	proof [][]byte,
	leafIndex uint64,
	now uint64,
) (string, error) {
	ctx, span := trace.StartSpan(ctx, "anchor.RequestForceExit")
	defer span.End()
	head, err := s.cfg.Database.LatestFinalizedState(ctx, microchainID)
	if err != nil {
		return "", errors.Wrap(err, "could not get finalized head")
	}
	if head == nil {
		return "", ErrNoFinalizedState
	}
	leaf := types.ExitLeaf(user, amount, nonce)
	if !trieutil.VerifyMerkleProof(head.StateRoot, leaf, leafIndex, proof) {
		return "", ErrInvalidProof
	}
	exit := &types.ForceExitRequest{
		ID:           uuid.New().String(),
		MicrochainID: microchainID,
		User:         user,
		Amount:       amount,
		Nonce:        nonce,
		Proof:        proof,
		LeafIndex:    leafIndex,
		StateRoot:    head.StateRoot,
		RequestedAt:  now,
		Status:       types.ExitPending,
	}
	if err := s.cfg.Database.SaveForceExit(ctx, exit); err != nil {
		return "", err
	}
	forceExitsRequested.Inc()
	log.WithField("microchain", microchainID).WithField(
		"user", user).WithField("amount", amount).Info("Force exit requested")
	return exit.ID, nil
}

// ProcessForceExit pays out a pending exit once the exit delay elapsed,
// crediting the amount back to the user on the parent ledger.
func (s *Service) ProcessForceExit(ctx context.Context, exitID string, now uint64) (uint64, error) {
	ctx, span := trace.StartSpan(ctx, "anchor.ProcessForceExit")
	defer span.End()
	exit, err := s.cfg.Database.ForceExit(ctx, exitID)
	if err != nil {
		return 0, errors.Wrap(err, "could not get force exit")
	}
	if exit == nil {
		return 0, ErrExitNotFound
	}
	if mathutil.ClampedSub(now, exit.RequestedAt) < params.GuardianConfig().ExitDelay {
		return 0, ErrExitDelayActive
	}
	amount, err := s.cfg.Database.ProcessForceExit(ctx, exitID)
	if err != nil {
		return 0, err
	}
	if s.cfg.Ledger != nil {
		if err := s.cfg.Ledger.Credit(ctx, exit.User, amount); err != nil {
			return 0, errors.Wrap(err, "could not credit exit amount")
		}
	}
	forceExitsProcessed.Inc()
	log.WithField("microchain", exit.MicrochainID).WithField(
		"user", exit.User).WithField("amount", amount).Info("Force exit processed")
	return amount, nil
}

// RejectForceExit cancels a pending exit and frees its nonce, used when a
// later finalized anchor invalidates the proven state.
func (s *Service) RejectForceExit(ctx context.Context, exitID string) error {
	ctx, span := trace.StartSpan(ctx, "anchor.RejectForceExit")
	defer span.End()
	exit, err := s.cfg.Database.ForceExit(ctx, exitID)
	if err != nil {
		return errors.Wrap(err, "could not get force exit")
	}
	if exit == nil {
		return ErrExitNotFound
	}
	return s.cfg.Database.RejectForceExit(ctx, exitID)
}
