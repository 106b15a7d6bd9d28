package anchor

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/db/kv"
	"github.com/ipswyworld/ouroboros/shared/mathutil"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/types"
)

func shortHash(h [32]byte) string {
	return fmt.Sprintf("%#x", h[:8])
}

// RegisterMicrochain records a microchain and the operator key its anchors
// must be signed with. A microchain id registers once; its operator key is
// immutable afterwards.
func (s *Service) RegisterMicrochain(
	ctx context.Context,
	id, operator string,
	operatorKey []byte,
	now uint64,
) error {
	ctx, span := trace.StartSpan(ctx, "anchor.RegisterMicrochain")
	defer span.End()
	chain := &types.Microchain{
		ID:           id,
		Operator:     operator,
		OperatorKey:  operatorKey,
		RegisteredAt: now,
	}
	if err := s.cfg.Database.SaveMicrochain(ctx, chain); err != nil {
		if errors.Is(err, kv.ErrAlreadyExists) {
			return ErrMicrochainExists
		}
		return errors.Wrap(err, "could not save microchain")
	}
	log.WithField("microchain", id).WithField("operator", operator).Info("Microchain registered")
	return nil
}

// DepositOperatorStake adds to an operator's stake.
func (s *Service) DepositOperatorStake(ctx context.Context, operator string, amount uint64) error {
	return s.cfg.Database.DepositOperatorStake(ctx, operator, amount)
}

// OperatorStake returns an operator's current stake.
func (s *Service) OperatorStake(ctx context.Context, operator string) (uint64, error) {
	return s.cfg.Database.OperatorStake(ctx, operator)
}

// Anchor retrieves an anchor record by hash.
func (s *Service) Anchor(ctx context.Context, anchorHash [32]byte) (*types.StateAnchorRecord, error) {
	return s.cfg.Database.Anchor(ctx, anchorHash)
}

// LatestFinalizedAnchor returns a microchain's finalized head, nil when the
// chain has never finalized an anchor.
func (s *Service) LatestFinalizedAnchor(ctx context.Context, microchainID string) (*types.FinalizedState, error) {
	return s.cfg.Database.LatestFinalizedState(ctx, microchainID)
}

// SubmitAnchor accepts a signed state anchor from a staked operator and opens
// its challenge window. The anchor hash identifying the record is returned.
func (s *Service) SubmitAnchor(
	ctx context.Context,
	microchainID string,
	stateRoot [32]byte,
	blockHeight uint64,
	operator string,
	signature []byte,
	now uint64,
) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "anchor.SubmitAnchor")
	defer span.End()
	if s.cfg.Monitor != nil && s.cfg.Monitor.IsBlacklisted(operator) {
		return [32]byte{}, ErrBlacklisted
	}
	chain, err := s.cfg.Database.Microchain(ctx, microchainID)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "could not get microchain")
	}
	if chain == nil {
		return [32]byte{}, ErrUnknownMicrochain
	}
	stake, err := s.cfg.Database.OperatorStake(ctx, operator)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "could not get operator stake")
	}
	cfg := params.GuardianConfig()
	if stake < cfg.MinOperatorStake {
		return [32]byte{}, ErrInsufficientStake
	}
	head, err := s.cfg.Database.LatestFinalizedState(ctx, microchainID)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "could not get finalized head")
	}
	if head != nil && blockHeight <= head.BlockHeight {
		return [32]byte{}, ErrStaleHeight
	}
	signingRoot := types.AnchorSigningRoot(microchainID, stateRoot, blockHeight)
	if !s.cfg.Verifier.Verify(chain.OperatorKey, signingRoot[:], signature) {
		return [32]byte{}, ErrInvalidSignature
	}
	record := &types.StateAnchorRecord{
		AnchorHash:        signingRoot,
		MicrochainID:      microchainID,
		StateRoot:         stateRoot,
		BlockHeight:       blockHeight,
		Operator:          operator,
		OperatorSignature: signature,
		Status:            types.AnchorPending,
		SubmittedAt:       now,
	}
	if err := s.cfg.Database.SaveAnchor(ctx, record); err != nil {
		if errors.Is(err, kv.ErrAlreadyExists) {
			return [32]byte{}, ErrDuplicateAnchor
		}
		return [32]byte{}, errors.Wrap(err, "could not save anchor")
	}
	anchorsSubmitted.Inc()
	log.WithField("microchain", microchainID).WithField(
		"height", blockHeight).WithField(
		"anchorHash", shortHash(signingRoot)).Debug("State anchor submitted")
	if s.cfg.Monitor != nil {
		s.cfg.Monitor.RecordAnchor(microchainID, operator, now)
	}
	return signingRoot, nil
}

// FinalizeAnchor finalizes a pending anchor whose challenge window elapsed
// with no open or accepted challenge, advancing the microchain's finalized
// head that force exits prove against.
func (s *Service) FinalizeAnchor(ctx context.Context, anchorHash [32]byte, now uint64) error {
	ctx, span := trace.StartSpan(ctx, "anchor.FinalizeAnchor")
	defer span.End()
	record, err := s.cfg.Database.Anchor(ctx, anchorHash)
	if err != nil {
		return errors.Wrap(err, "could not get anchor")
	}
	if record == nil {
		return ErrAnchorNotFound
	}
	if mathutil.ClampedSub(now, record.SubmittedAt) < params.GuardianConfig().AnchorChallengePeriod {
		return ErrStillInChallengeWindow
	}
	challenges, err := s.cfg.Database.ChallengesByAnchor(ctx, anchorHash)
	if err != nil {
		return errors.Wrap(err, "could not get challenges")
	}
	for _, c := range challenges {
		if c.Outcome == types.ChallengePending || c.Outcome == types.ChallengeAccepted {
			return ErrChallengeUnresolved
		}
	}
	if err := s.cfg.Database.FinalizeAnchor(ctx, anchorHash); err != nil {
		return err
	}
	anchorsFinalized.Inc()
	log.WithField("microchain", record.MicrochainID).WithField(
		"height", record.BlockHeight).WithField(
		"anchorHash", shortHash(anchorHash)).Info("State anchor finalized")
	return nil
}
