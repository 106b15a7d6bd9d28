package anchor

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/shared/hashutil"
	"github.com/ipswyworld/ouroboros/shared/mathutil"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/shared/trieutil"
	"github.com/ipswyworld/ouroboros/types"
)

// DepositChallengeBond adds to a challenger's bond.
func (s *Service) DepositChallengeBond(ctx context.Context, challenger string, amount uint64) error {
	return s.cfg.Database.DepositChallengeBond(ctx, challenger, amount)
}

// Challenge retrieves a challenge record by id.
func (s *Service) Challenge(ctx context.Context, challengeID string) (*types.ChallengeRecord, error) {
	return s.cfg.Database.Challenge(ctx, challengeID)
}

// ChallengesByAnchor lists every challenge opened against an anchor.
func (s *Service) ChallengesByAnchor(ctx context.Context, anchorHash [32]byte) ([]*types.ChallengeRecord, error) {
	return s.cfg.Database.ChallengesByAnchor(ctx, anchorHash)
}

// SubmitChallenge opens a bonded challenge against a pending anchor. Unlike
// relay fraud proofs, any number of challenges per anchor are accepted since
// different challengers may hold different evidence. Returns the challenge id.
func (s *Service) SubmitChallenge(
	ctx context.Context,
	anchorHash [32]byte,
	challenger string,
	kind types.ChallengeType,
	evidence *types.ChallengeEvidence,
	now uint64,
) (string, error) {
	ctx, span := trace.StartSpan(ctx, "anchor.SubmitChallenge")
	defer span.End()
	record, err := s.cfg.Database.Anchor(ctx, anchorHash)
	if err != nil {
		return "", errors.Wrap(err, "could not get anchor")
	}
	if record == nil {
		return "", ErrAnchorNotFound
	}
	if record.Status != types.AnchorPending {
		return "", ErrAlreadyFinalized
	}
	cfg := params.GuardianConfig()
	if mathutil.ClampedSub(now, record.SubmittedAt) >= cfg.AnchorChallengePeriod {
		return "", ErrChallengeWindowExpired
	}
	bond, err := s.cfg.Database.ChallengeBond(ctx, challenger)
	if err != nil {
		return "", errors.Wrap(err, "could not get challenge bond")
	}
	if bond < cfg.MinChallengeBond {
		return "", ErrInsufficientChallengeBond
	}
	challenge := &types.ChallengeRecord{
		ID:          uuid.New().String(),
		AnchorHash:  anchorHash,
		Challenger:  challenger,
		Kind:        kind,
		Evidence:    evidence,
		Bond:        cfg.MinChallengeBond,
		SubmittedAt: now,
		Outcome:     types.ChallengePending,
	}
	if err := s.cfg.Database.SaveChallenge(ctx, challenge); err != nil {
		return "", errors.Wrap(err, "could not save challenge")
	}
	challengesSubmitted.Inc()
	log.WithField("anchorHash", shortHash(anchorHash)).WithField(
		"kind", kind.String()).WithField(
		"challenger", challenger).Info("Anchor challenge submitted")
	return challenge.ID, nil
}

// VerifyChallenge re-derives ground truth for a pending challenge and settles
// it. A proven challenge reverts the anchor, slashes the operator and pays
// the challenger; a failed one forfeits the challenger's bond while leaving
// other pending challenges against the same anchor evaluable. The supplied
// microchainState leaves back StateRootMismatch claims. Returns whether the
// challenge was proven.
func (s *Service) VerifyChallenge(ctx context.Context, challengeID string, microchainState [][]byte) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "anchor.VerifyChallenge")
	defer span.End()
	challenge, err := s.cfg.Database.Challenge(ctx, challengeID)
	if err != nil {
		return false, errors.Wrap(err, "could not get challenge")
	}
	if challenge == nil {
		return false, ErrChallengeNotFound
	}
	if challenge.Outcome != types.ChallengePending {
		return false, ErrChallengeResolved
	}
	record, err := s.cfg.Database.Anchor(ctx, challenge.AnchorHash)
	if err != nil {
		return false, errors.Wrap(err, "could not get anchor")
	}
	if record == nil {
		return false, ErrAnchorNotFound
	}
	if record.Status != types.AnchorPending {
		return false, ErrAlreadyFinalized
	}

	proven, err := s.challengeHolds(ctx, record, challenge, microchainState)
	if err != nil {
		return false, err
	}
	cfg := params.GuardianConfig()
	if !proven {
		forfeited, err := s.cfg.Database.RejectChallenge(ctx, challengeID, cfg.TreasuryAccount)
		if err != nil {
			return false, errors.Wrap(err, "could not reject challenge")
		}
		challengesRejected.Inc()
		log.WithField("challenge", challengeID).WithField(
			"forfeited", forfeited).Info("Anchor challenge rejected")
		return false, nil
	}

	slashed, err := s.cfg.Database.RevertAnchor(ctx, challenge.AnchorHash, challengeID, cfg.OperatorSlashDivisor)
	if err != nil {
		return false, errors.Wrap(err, "could not revert anchor")
	}
	anchorsReverted.Inc()
	challengesAccepted.Inc()
	log.WithField("anchorHash", shortHash(challenge.AnchorHash)).WithField(
		"microchain", record.MicrochainID).WithField(
		"operator", record.Operator).WithField(
		"kind", challenge.Kind.String()).WithField(
		"slashed", slashed).Warn("Anchor reverted on proven challenge")
	return true, nil
}

// challengeHolds evaluates one challenge claim against ground truth.
func (s *Service) challengeHolds(
	ctx context.Context,
	record *types.StateAnchorRecord,
	challenge *types.ChallengeRecord,
	microchainState [][]byte,
) (bool, error) {
	ev := challenge.Evidence
	if ev == nil {
		return false, nil
	}
	switch challenge.Kind {
	case types.InvalidStateTransition:
		// The claimed transition must start from the finalized head, and
		// replaying the evidence transactions from it must not yield the
		// anchored root.
		head, err := s.cfg.Database.LatestFinalizedState(ctx, record.MicrochainID)
		if err != nil {
			return false, errors.Wrap(err, "could not get finalized head")
		}
		if head == nil || ev.PreviousStateRoot != head.StateRoot {
			return false, nil
		}
		txRoot, err := transactionsRoot(ev.Transactions)
		if err != nil {
			return false, nil
		}
		derived := hashutil.HashConcat(ev.PreviousStateRoot[:], txRoot[:])
		return derived != record.StateRoot, nil

	case types.UnauthorizedTransaction:
		// Any evidence transaction carrying a signature that fails over its
		// signing root proves an unauthorized inclusion.
		for _, tx := range ev.Transactions {
			root := tx.SigningRoot()
			if !s.cfg.Verifier.Verify(tx.PublicKey, root[:], tx.Signature) {
				return true, nil
			}
		}
		return false, nil

	case types.DoubleSpend:
		// Nonce reuse by the same sender within the evidence sequence.
		seen := make(map[string]map[uint64]bool)
		for _, tx := range ev.Transactions {
			if seen[tx.Sender] == nil {
				seen[tx.Sender] = make(map[uint64]bool)
			}
			if seen[tx.Sender][tx.Nonce] {
				return true, nil
			}
			seen[tx.Sender][tx.Nonce] = true
		}
		return false, nil

	case types.InvalidSignature:
		signingRoot := types.AnchorSigningRoot(record.MicrochainID, record.StateRoot, record.BlockHeight)
		chain, err := s.cfg.Database.Microchain(ctx, record.MicrochainID)
		if err != nil {
			return false, errors.Wrap(err, "could not get microchain")
		}
		if chain == nil {
			return false, ErrUnknownMicrochain
		}
		return !s.cfg.Verifier.Verify(chain.OperatorKey, signingRoot[:], record.OperatorSignature), nil

	case types.StateRootMismatch:
		// Recompute the state trie root from the supplied leaves.
		if len(microchainState) == 0 {
			return false, nil
		}
		trie, err := trieutil.GenerateTrieFromItems(
			microchainState, params.GuardianConfig().StateTrieDepth,
		)
		if err != nil {
			return false, nil
		}
		return trie.Root() != record.StateRoot, nil

	default:
		return false, errors.Errorf("unknown challenge type %d", challenge.Kind)
	}
}

// transactionsRoot commits to an ordered transaction list with a trie over
// the signing roots.
func transactionsRoot(txs []*types.MicrochainTransaction) ([32]byte, error) {
	items := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		root := tx.SigningRoot()
		items = append(items, root[:])
	}
	trie, err := trieutil.GenerateTrieFromItems(items, params.GuardianConfig().StateTrieDepth)
	if err != nil {
		return [32]byte{}, err
	}
	return trie.Root(), nil
}
