package anchor

import (
	"context"
	"testing"

	"github.com/ipswyworld/ouroboros/crypto"
	"github.com/ipswyworld/ouroboros/shared/hashutil"
	"github.com/ipswyworld/ouroboros/shared/trieutil"
	"github.com/ipswyworld/ouroboros/testing/require"
	"github.com/ipswyworld/ouroboros/types"
)

func signedTransaction(t *testing.T, sender string, nonce uint64) *types.MicrochainTransaction {
	pub, priv, err := crypto.GenerateKey(nil)
	require.NoError(t, err)
	tx := &types.MicrochainTransaction{
		Sender:    sender,
		Recipient: "recipient",
		Amount:    10,
		Nonce:     nonce,
		PublicKey: pub,
	}
	root := tx.SigningRoot()
	tx.Signature = crypto.Sign(priv, root[:])
	return tx
}

func TestSubmitChallenge_Preconditions(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)

	// Unknown anchor.
	_, err := env.svc.SubmitChallenge(ctx, [32]byte{9}, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.ErrorIs(t, ErrAnchorNotFound, err)

	// Bond below minimum.
	_, err = env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.ErrorIs(t, ErrInsufficientChallengeBond, err)

	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))

	// Window expired.
	_, err = env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 700)
	require.ErrorIs(t, ErrChallengeWindowExpired, err)

	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 699)
	require.NoError(t, err)
	require.NotEqual(t, "", id)
}

func TestSubmitChallenge_MultiplePerAnchor(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)

	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger-a", 20))
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger-b", 20))

	_, err := env.svc.SubmitChallenge(ctx, hash, "challenger-a", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)
	_, err = env.svc.SubmitChallenge(ctx, hash, "challenger-b", types.StateRootMismatch, &types.ChallengeEvidence{}, 200)
	require.NoError(t, err)

	challenges, err := env.svc.ChallengesByAnchor(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, 2, len(challenges))
}

func TestVerifyChallenge_StateRootMismatch(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	state := [][]byte{{1, 1}, {2, 2}, {3, 3}}
	trie, err := trieutil.GenerateTrieFromItems(state, 4)
	require.NoError(t, err)
	trueRoot := trie.Root()

	// The operator anchors a root that does not match its own state.
	hash := env.signedAnchor(t, "mc-1", [32]byte{0xbb}, 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))
	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.StateRootMismatch, &types.ChallengeEvidence{
		ClaimedStateRoot: trueRoot,
	}, 100)
	require.NoError(t, err)

	proven, err := env.svc.VerifyChallenge(ctx, id, state)
	require.NoError(t, err)
	require.Equal(t, true, proven)

	got, err := env.svc.Anchor(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, types.AnchorReverted, got.Status)

	// The operator lost half its stake and the challenger was paid in full.
	stake, err := env.svc.OperatorStake(ctx, "operator-1")
	require.NoError(t, err)
	require.Equal(t, uint64(500), stake)
	reward, err := env.svc.cfg.Database.RewardBalance(ctx, "challenger")
	require.NoError(t, err)
	require.Equal(t, uint64(500), reward)

	// The challenger's bond survives an accepted challenge.
	bond, err := env.svc.cfg.Database.ChallengeBond(ctx, "challenger")
	require.NoError(t, err)
	require.Equal(t, uint64(20), bond)
}

func TestVerifyChallenge_StateRootMatchesRejects(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	state := [][]byte{{1, 1}, {2, 2}}
	trie, err := trieutil.GenerateTrieFromItems(state, 4)
	require.NoError(t, err)

	hash := env.signedAnchor(t, "mc-1", trie.Root(), 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))
	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.StateRootMismatch, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)

	proven, err := env.svc.VerifyChallenge(ctx, id, state)
	require.NoError(t, err)
	require.Equal(t, false, proven)

	// A failed challenge forfeits the bond to the treasury.
	bond, err := env.svc.cfg.Database.ChallengeBond(ctx, "challenger")
	require.NoError(t, err)
	require.Equal(t, uint64(0), bond)
	treasury, err := env.svc.cfg.Database.RewardBalance(ctx, "treasury")
	require.NoError(t, err)
	require.Equal(t, uint64(20), treasury)

	// The anchor survives and other challenges remain possible.
	got, err := env.svc.Anchor(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, types.AnchorPending, got.Status)
}

func TestVerifyChallenge_InvalidStateTransition(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	// Finalize a first anchor to establish the head the transition must
	// start from.
	prevRoot := [32]byte{0x11}
	first := env.signedAnchor(t, "mc-1", prevRoot, 100, 0)
	require.NoError(t, env.svc.FinalizeAnchor(ctx, first, 700))

	txs := []*types.MicrochainTransaction{
		signedTransaction(t, "alice", 1),
		signedTransaction(t, "bob", 1),
	}
	items := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		root := tx.SigningRoot()
		items = append(items, root[:])
	}
	txTrie, err := trieutil.GenerateTrieFromItems(items, 4)
	require.NoError(t, err)
	txRoot := txTrie.Root()
	derived := hashutil.HashConcat(prevRoot[:], txRoot[:])

	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 40))

	// An anchor claiming a root that does not follow from the finalized
	// head and these transactions is proven invalid.
	bogus := env.signedAnchor(t, "mc-1", [32]byte{0x22}, 101, 800)
	id, err := env.svc.SubmitChallenge(ctx, bogus, "challenger", types.InvalidStateTransition, &types.ChallengeEvidence{
		PreviousStateRoot: prevRoot,
		Transactions:      txs,
	}, 850)
	require.NoError(t, err)
	proven, err := env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, true, proven)

	// The accepted challenge halved the stake; restore it so the operator
	// clears the minimum for the next anchor.
	require.NoError(t, env.svc.DepositOperatorStake(ctx, "operator-1", 500))

	// An anchor carrying exactly the derived root survives the same claim.
	honest := env.signedAnchor(t, "mc-1", derived, 102, 900)
	id, err = env.svc.SubmitChallenge(ctx, honest, "challenger", types.InvalidStateTransition, &types.ChallengeEvidence{
		PreviousStateRoot: prevRoot,
		Transactions:      txs,
	}, 950)
	require.NoError(t, err)
	proven, err = env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, false, proven)
}

func TestVerifyChallenge_UnauthorizedTransaction(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 40))

	forged := signedTransaction(t, "mallory", 1)
	forged.Amount = 1_000_000 // Signature no longer covers the mutated body.
	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.UnauthorizedTransaction, &types.ChallengeEvidence{
		Transactions: []*types.MicrochainTransaction{signedTransaction(t, "alice", 1), forged},
	}, 100)
	require.NoError(t, err)
	proven, err := env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, true, proven)
}

func TestVerifyChallenge_DoubleSpend(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))

	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{
		Transactions: []*types.MicrochainTransaction{
			signedTransaction(t, "alice", 5),
			signedTransaction(t, "bob", 5),
			signedTransaction(t, "alice", 5),
		},
	}, 100)
	require.NoError(t, err)
	proven, err := env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, true, proven)
}

func TestVerifyChallenge_InvalidOperatorSignature(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	// Plant an anchor whose stored signature never verified, bypassing the
	// submission check.
	record := &types.StateAnchorRecord{
		MicrochainID:      "mc-1",
		StateRoot:         [32]byte{1},
		BlockHeight:       100,
		Operator:          "operator-1",
		OperatorSignature: []byte("garbage"),
		Status:            types.AnchorPending,
		SubmittedAt:       0,
	}
	record.AnchorHash = record.Hash()
	require.NoError(t, env.svc.cfg.Database.SaveAnchor(ctx, record))

	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))
	id, err := env.svc.SubmitChallenge(ctx, record.AnchorHash, "challenger", types.InvalidSignature, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)
	proven, err := env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, true, proven)
}

func TestVerifyChallenge_ResolvedChallengeCannotRerun(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))

	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)
	_, err = env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)

	_, err = env.svc.VerifyChallenge(ctx, id, nil)
	require.ErrorIs(t, ErrChallengeResolved, err)
}
