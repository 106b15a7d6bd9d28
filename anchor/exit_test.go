package anchor

import (
	"context"
	"testing"

	"github.com/ipswyworld/ouroboros/shared/trieutil"
	"github.com/ipswyworld/ouroboros/testing/require"
	"github.com/ipswyworld/ouroboros/types"
)

// finalizeStateWithExit anchors and finalizes a state trie containing an exit
// leaf for user-1, returning the proof material for that leaf.
func finalizeStateWithExit(t *testing.T, env *anchorTestEnv, amount, nonce uint64) (proof [][]byte, leafIndex uint64) {
	ctx := context.Background()
	leaves := [][]byte{
		types.ExitLeaf("user-1", amount, nonce),
		types.ExitLeaf("user-2", 7, 1),
	}
	trie, err := trieutil.GenerateTrieFromItems(leaves, 4)
	require.NoError(t, err)
	hash := env.signedAnchor(t, "mc-1", trie.Root(), 100, 0)
	require.NoError(t, env.svc.FinalizeAnchor(ctx, hash, 700))

	p, err := trie.MerkleProof(0)
	require.NoError(t, err)
	return p, 0
}

func TestRequestForceExit_RequiresFinalizedState(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	_, err := env.svc.RequestForceExit(context.Background(), "mc-1", "user-1", 50, 5, nil, 0, 1000)
	require.ErrorIs(t, ErrNoFinalizedState, err)
}

func TestRequestForceExit_RejectsInvalidProof(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	proof, idx := finalizeStateWithExit(t, env, 50_000_000, 5)

	// Claiming a different amount cannot verify under the finalized root.
	_, err := env.svc.RequestForceExit(context.Background(), "mc-1", "user-1", 99, 5, proof, idx, 1000)
	require.ErrorIs(t, ErrInvalidProof, err)
}

func TestForceExit_Lifecycle(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	proof, idx := finalizeStateWithExit(t, env, 50_000_000, 5)

	exitID, err := env.svc.RequestForceExit(ctx, "mc-1", "user-1", 50_000_000, 5, proof, idx, 1000)
	require.NoError(t, err)

	// The exit delay still applies.
	_, err = env.svc.ProcessForceExit(ctx, exitID, 1099)
	require.ErrorIs(t, ErrExitDelayActive, err)

	amount, err := env.svc.ProcessForceExit(ctx, exitID, 1100)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000_000), amount)
	require.Equal(t, uint64(50_000_000), env.ledger.credits["user-1"])

	got, err := env.svc.ForceExit(ctx, exitID)
	require.NoError(t, err)
	require.Equal(t, types.ExitProcessed, got.Status)

	// Processing is terminal and the nonce stays consumed.
	_, err = env.svc.ProcessForceExit(ctx, exitID, 1200)
	require.ErrorIs(t, ErrAlreadyFinalized, err)
	_, err = env.svc.RequestForceExit(ctx, "mc-1", "user-1", 50_000_000, 5, proof, idx, 1300)
	require.ErrorIs(t, ErrNonceReplay, err)
}

func TestRejectForceExit_FreesNonceForRetry(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()
	proof, idx := finalizeStateWithExit(t, env, 50_000_000, 5)

	exitID, err := env.svc.RequestForceExit(ctx, "mc-1", "user-1", 50_000_000, 5, proof, idx, 1000)
	require.NoError(t, err)
	require.NoError(t, env.svc.RejectForceExit(ctx, exitID))

	_, err = env.svc.RequestForceExit(ctx, "mc-1", "user-1", 50_000_000, 5, proof, idx, 1100)
	require.NoError(t, err)
}
