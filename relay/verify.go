package relay

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/shared/trieutil"
	"github.com/ipswyworld/ouroboros/types"
)

// SourceChainView is what the verifier knows about the source ledger when it
// checks a fraud proof: locked balances per sender and the set of message
// hashes actually committed there.
type SourceChainView struct {
	Balances map[string]uint64
	Messages map[[32]byte]bool
}

// VerifyAndSlash checks the stored fraud proof for a relay against a view of
// the source ledger and resolves it. A proven proof slashes the relayer's
// bond, splitting it between the challenger and the treasury; an unproven
// proof is discarded and the relay returns to a confirmable state. Returns
// whether fraud was proven.
func (s *Service) VerifyAndSlash(ctx context.Context, messageHash [32]byte, source *SourceChainView) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "relay.VerifyAndSlash")
	defer span.End()
	record, err := s.cfg.Database.Relay(ctx, messageHash)
	if err != nil {
		return false, errors.Wrap(err, "could not get relay")
	}
	if record == nil {
		return false, ErrRelayNotFound
	}
	if record.Status != types.RelayPending {
		return false, ErrAlreadyFinalized
	}
	proof, err := s.cfg.Database.FraudProof(ctx, messageHash)
	if err != nil {
		return false, errors.Wrap(err, "could not get fraud proof")
	}
	if proof == nil {
		return false, ErrNoFraudProof
	}

	proven, err := s.proofHolds(ctx, record, proof, source)
	if err != nil {
		return false, err
	}
	if !proven {
		if err := s.cfg.Database.DeleteFraudProof(ctx, messageHash); err != nil {
			return false, errors.Wrap(err, "could not discard fraud proof")
		}
		fraudProofsRejected.Inc()
		log.WithField("messageHash", shortHash(messageHash)).WithField(
			"kind", proof.Kind.String()).Info("Fraud proof rejected")
		return false, nil
	}

	cfg := params.GuardianConfig()
	slashed, err := s.cfg.Database.SlashRelay(
		ctx,
		messageHash,
		cfg.RelaySlashAmount,
		proof.Challenger,
		cfg.ChallengerRewardQuotient,
		cfg.TreasuryAccount,
	)
	if err != nil {
		return false, errors.Wrap(err, "could not slash relay")
	}
	relaysSlashed.Inc()
	log.WithField("messageHash", shortHash(messageHash)).WithField(
		"relayer", record.Relayer).WithField(
		"kind", proof.Kind.String()).WithField(
		"slashed", slashed).Warn("Relay slashed on proven fraud")
	if s.cfg.Monitor != nil {
		s.cfg.Monitor.RecordRelay(record.Relayer, record.Message.Amount, false, proof.SubmittedAt)
	}
	return true, nil
}

// proofHolds evaluates one fraud claim against the source ledger view.
func (s *Service) proofHolds(
	ctx context.Context,
	record *types.RelayRecord,
	proof *types.FraudProofRecord,
	source *SourceChainView,
) (bool, error) {
	switch proof.Kind {
	case types.MessageNotFound:
		// Fraud if the source ledger never committed this message.
		return !source.Messages[record.MessageHash], nil

	case types.InsufficientBalance:
		// Fraud if the sender's locked balance cannot cover the claim.
		return source.Balances[record.Message.Sender] < record.Message.Amount, nil

	case types.InvalidMerkleProof:
		// Fraud if the relayer's inclusion proof does not verify against
		// the source root named in the evidence. A relay submitted with no
		// proof at all cannot survive this claim either.
		ev, err := types.DecodeRelayProofEvidence(proof.Evidence)
		if err != nil {
			log.WithError(err).Debug("Malformed relay proof evidence")
			return false, nil
		}
		if len(record.InclusionProof) == 0 {
			return true, nil
		}
		valid := trieutil.VerifyMerkleProof(
			ev.SourceRoot,
			record.MessageHash[:],
			record.ProofIndex,
			record.InclusionProof,
		)
		return !valid, nil

	case types.DoubleRelay:
		// Fraud if an earlier pending or confirmed relay already consumed
		// this sender nonce. A slashed predecessor does not count: its claim
		// was voided, so the nonce is free to use again.
		firstHash, ok, err := s.cfg.Database.RelayBySenderNonce(
			ctx, record.Message.Sender, record.Message.Nonce,
		)
		if err != nil {
			return false, errors.Wrap(err, "could not look up sender nonce")
		}
		if !ok || firstHash == record.MessageHash {
			return false, nil
		}
		first, err := s.cfg.Database.Relay(ctx, firstHash)
		if err != nil {
			return false, errors.Wrap(err, "could not get first relay for nonce")
		}
		if first == nil {
			return false, nil
		}
		return first.Status == types.RelayPending || first.Status == types.RelayConfirmed, nil

	default:
		return false, errors.Errorf("unknown fraud proof type %d", proof.Kind)
	}
}
