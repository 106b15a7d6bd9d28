package relay

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

// DepositBond adds to a relayer's bond. There is no upper bound.
func (s *Service) DepositBond(ctx context.Context, relayer string, amount uint64) error {
	ctx, span := trace.StartSpan(ctx, "relay.DepositBond")
	defer span.End()
	return s.cfg.Database.DepositRelayerBond(ctx, relayer, amount)
}

// RelayerBond returns a relayer's current bond balance.
func (s *Service) RelayerBond(ctx context.Context, relayer string) (uint64, error) {
	return s.cfg.Database.RelayerBond(ctx, relayer)
}

// SlashedAmount returns the cumulative amount slashed from a relayer.
func (s *Service) SlashedAmount(ctx context.Context, relayer string) (uint64, error) {
	return s.cfg.Database.SlashedAmount(ctx, relayer)
}

// Relay retrieves a relay record by message hash.
func (s *Service) Relay(ctx context.Context, messageHash [32]byte) (*types.RelayRecord, error) {
	return s.cfg.Database.Relay(ctx, messageHash)
}

// SubmitRelay accepts an optimistic cross-chain relay from a bonded,
// non-blacklisted relayer and opens its challenge window. Returns the
// deterministic message hash identifying the relay.
func (s *Service) SubmitRelay(
	ctx context.Context,
	message *types.CrossChainMessage,
	relayer string,
	inclusionProof [][]byte,
	proofIndex uint64,
	now uint64,
) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "relay.SubmitRelay")
	defer span.End()
	if s.cfg.Monitor != nil && s.cfg.Monitor.IsBlacklisted(relayer) {
		return [32]byte{}, ErrBlacklisted
	}
	bond, err := s.cfg.Database.RelayerBond(ctx, relayer)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "could not get relayer bond")
	}
	cfg := params.GuardianConfig()
	if bond < cfg.MinRelayBond {
		return [32]byte{}, ErrInsufficientBond
	}
	messageHash := message.Hash()
	record := &types.RelayRecord{
		MessageHash:    messageHash,
		Message:        message,
		Relayer:        relayer,
		BondSnapshot:   bond,
		InclusionProof: inclusionProof,
		ProofIndex:     proofIndex,
		Status:         types.RelayPending,
		SubmittedAt:    now,
	}
	if err := s.cfg.Database.SaveRelay(ctx, record); err != nil {
		if errors.Is(err, kv.ErrAlreadyExists) {
			return [32]byte{}, ErrDuplicateMessage
		}
		return [32]byte{}, errors.Wrap(err, "could not save relay")
	}
	relaysSubmitted.Inc()
	log.WithField("messageHash", shortHash(messageHash)).WithField(
		"relayer", relayer).Debug("Relay submitted")
	if s.cfg.Monitor != nil {
		s.cfg.Monitor.RecordRelay(relayer, message.Amount, true, now)
	}
	return messageHash, nil
}

// ConfirmRelay finalizes a relay whose challenge window elapsed with no
// unresolved fraud proof, crediting the relayer a confirmation reward. Only
// the first caller wins; later calls observe ErrAlreadyFinalized.
func (s *Service) ConfirmRelay(ctx context.Context, messageHash [32]byte, now uint64) error {
	ctx, span := trace.StartSpan(ctx, "relay.ConfirmRelay")
	defer span.End()
	record, err := s.cfg.Database.Relay(ctx, messageHash)
	if err != nil {
		return errors.Wrap(err, "could not get relay")
	}
	if record == nil {
		return ErrRelayNotFound
	}
	cfg := params.GuardianConfig()
	// Clamped so a clock reading behind the submission never wraps into an
	// elapsed window.
	if mathutil.ClampedSub(now, record.SubmittedAt) < cfg.RelayChallengePeriod {
		return ErrStillInChallengeWindow
	}
	proof, err := s.cfg.Database.FraudProof(ctx, messageHash)
	if err != nil {
		return errors.Wrap(err, "could not get fraud proof")
	}
	if proof != nil {
		return ErrUnresolvedFraudProof
	}
	if err := s.cfg.Database.ConfirmRelay(ctx, messageHash, cfg.RelayConfirmReward); err != nil {
		return err
	}
	relaysConfirmed.Inc()
	log.WithField("messageHash", shortHash(messageHash)).WithField(
		"relayer", record.Relayer).Info("Relay confirmed")
	return nil
}
