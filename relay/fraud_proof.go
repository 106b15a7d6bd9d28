package relay

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/db/kv"
	"github.com/ipswyworld/ouroboros/shared/mathutil"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/types"
)

// SubmitFraudProof records a challenger's fraud claim against a pending
// relay. Only one proof per relay is accepted; it suspends confirmation
// until VerifyAndSlash resolves it. No bond is required of the challenger,
// the relay window alone bounds the claim.
func (s *Service) SubmitFraudProof(
	ctx context.Context,
	messageHash [32]byte,
	challenger string,
	kind types.FraudProofType,
	evidence []byte,
	now uint64,
) error {
	ctx, span := trace.StartSpan(ctx, "relay.SubmitFraudProof")
	defer span.End()
	record, err := s.cfg.Database.Relay(ctx, messageHash)
	if err != nil {
		return errors.Wrap(err, "could not get relay")
	}
	if record == nil {
		return ErrRelayNotFound
	}
	if record.Status != types.RelayPending {
		return ErrAlreadyFinalized
	}
	if mathutil.ClampedSub(now, record.SubmittedAt) >= params.GuardianConfig().RelayChallengePeriod {
		return ErrChallengeWindowExpired
	}
	existing, err := s.cfg.Database.FraudProof(ctx, messageHash)
	if err != nil {
		return errors.Wrap(err, "could not get fraud proof")
	}
	if existing != nil {
		return ErrDuplicateChallenge
	}
	proof := &types.FraudProofRecord{
		MessageHash: messageHash,
		Challenger:  challenger,
		Kind:        kind,
		Evidence:    evidence,
		SubmittedAt: now,
	}
	if err := s.cfg.Database.SaveFraudProof(ctx, proof); err != nil {
		if errors.Is(err, kv.ErrAlreadyExists) {
			return ErrDuplicateChallenge
		}
		return errors.Wrap(err, "could not save fraud proof")
	}
	fraudProofsSubmitted.Inc()
	log.WithField("messageHash", shortHash(messageHash)).WithField(
		"kind", kind.String()).WithField(
		"challenger", challenger).Info("Fraud proof submitted")
	return nil
}

// FraudProofFor returns the stored fraud proof for a relay, nil when none.
func (s *Service) FraudProofFor(ctx context.Context, messageHash [32]byte) (*types.FraudProofRecord, error) {
	return s.cfg.Database.FraudProof(ctx, messageHash)
}
