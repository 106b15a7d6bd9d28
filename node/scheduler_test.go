package node

import (
	"context"
	"testing"

	"github.com/ipswyworld/ouroboros/anchor"
	"github.com/ipswyworld/ouroboros/crypto"
	dbtest "github.com/ipswyworld/ouroboros/db/testing"
	"github.com/ipswyworld/ouroboros/relay"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/shared/trieutil"
	"github.com/ipswyworld/ouroboros/testing/require"
	"github.com/ipswyworld/ouroboros/types"
)

type schedulerTestEnv struct {
	scheduler *Scheduler
	relays    *relay.Service
	anchors   *anchor.Service
	pubKey    []byte
	privKey   []byte
}

func setupSchedulerTest(t *testing.T) *schedulerTestEnv {
	params.SetupTestConfigCleanup(t)
	cfg := params.GuardianConfig().Copy()
	cfg.MinRelayBond = 100
	cfg.RelayChallengePeriod = 600
	cfg.RelayConfirmReward = 5
	cfg.MinOperatorStake = 1000
	cfg.AnchorChallengePeriod = 700
	cfg.ExitDelay = 100
	cfg.StateTrieDepth = 4
	params.OverrideGuardianConfig(cfg)

	db := dbtest.SetupGuardianDB(t)
	ctx := context.Background()
	relaySvc, err := relay.New(ctx, &relay.ServiceConfig{Database: db})
	require.NoError(t, err)
	anchorSvc, err := anchor.New(ctx, &anchor.ServiceConfig{Database: db, Ledger: &mockLedger{}})
	require.NoError(t, err)

	pub, priv, err := crypto.GenerateKey(nil)
	require.NoError(t, err)
	return &schedulerTestEnv{
		scheduler: NewScheduler(ctx, db, relaySvc, anchorSvc, nil),
		relays:    relaySvc,
		anchors:   anchorSvc,
		pubKey:    pub,
		privKey:   priv,
	}
}

type mockLedger struct {
	credits map[string]uint64
}

func (m *mockLedger) Credit(_ context.Context, account string, amount uint64) error {
	if m.credits == nil {
		m.credits = make(map[string]uint64)
	}
	m.credits[account] += amount
	return nil
}

func TestSchedulerTick_ConfirmsElapsedRelays(t *testing.T) {
	env := setupSchedulerTest(t)
	ctx := context.Background()
	require.NoError(t, env.relays.DepositBond(ctx, "relayer", 100))
	hash, err := env.relays.SubmitRelay(ctx, &types.CrossChainMessage{
		SourceChain:      "ouroboros",
		DestinationChain: "mainchain",
		Sender:           "alice",
		Recipient:        "recipient",
		Amount:           10,
		Nonce:            1,
	}, "relayer", nil, 0, 0)
	require.NoError(t, err)

	// Before the window elapses the relay stays pending.
	env.scheduler.Tick(ctx, 599)
	got, err := env.relays.Relay(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, types.RelayPending, got.Status)

	env.scheduler.Tick(ctx, 600)
	got, err = env.relays.Relay(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, types.RelayConfirmed, got.Status)

	// Redundant ticks are harmless.
	env.scheduler.Tick(ctx, 601)
}

func TestSchedulerTick_FinalizesElapsedAnchors(t *testing.T) {
	env := setupSchedulerTest(t)
	ctx := context.Background()
	require.NoError(t, env.anchors.RegisterMicrochain(ctx, "mc-1", "operator-1", env.pubKey, 0))
	require.NoError(t, env.anchors.DepositOperatorStake(ctx, "operator-1", 1000))

	root := [32]byte{1}
	signingRoot := types.AnchorSigningRoot("mc-1", root, 100)
	hash, err := env.anchors.SubmitAnchor(ctx, "mc-1", root, 100, "operator-1",
		crypto.Sign(env.privKey, signingRoot[:]), 0)
	require.NoError(t, err)

	env.scheduler.Tick(ctx, 699)
	head, err := env.anchors.LatestFinalizedAnchor(ctx, "mc-1")
	require.NoError(t, err)
	require.Equal(t, (*types.FinalizedState)(nil), head)

	env.scheduler.Tick(ctx, 700)
	head, err = env.anchors.LatestFinalizedAnchor(ctx, "mc-1")
	require.NoError(t, err)
	require.NotNil(t, head)
	require.Equal(t, hash, head.AnchorHash)
}

func TestSchedulerTick_ProcessesDueForceExits(t *testing.T) {
	env := setupSchedulerTest(t)
	ctx := context.Background()
	require.NoError(t, env.anchors.RegisterMicrochain(ctx, "mc-1", "operator-1", env.pubKey, 0))
	require.NoError(t, env.anchors.DepositOperatorStake(ctx, "operator-1", 1000))

	leaves := [][]byte{types.ExitLeaf("user-1", 50, 5)}
	trie, err := trieutil.GenerateTrieFromItems(leaves, 4)
	require.NoError(t, err)
	root := trie.Root()
	signingRoot := types.AnchorSigningRoot("mc-1", root, 100)
	anchorHash, err := env.anchors.SubmitAnchor(ctx, "mc-1", root, 100, "operator-1",
		crypto.Sign(env.privKey, signingRoot[:]), 0)
	require.NoError(t, err)
	require.NoError(t, env.anchors.FinalizeAnchor(ctx, anchorHash, 700))

	proof, err := trie.MerkleProof(0)
	require.NoError(t, err)
	exitID, err := env.anchors.RequestForceExit(ctx, "mc-1", "user-1", 50, 5, proof, 0, 800)
	require.NoError(t, err)

	env.scheduler.Tick(ctx, 899)
	got, err := env.anchors.ForceExit(ctx, exitID)
	require.NoError(t, err)
	require.Equal(t, types.ExitPending, got.Status)

	env.scheduler.Tick(ctx, 900)
	got, err = env.anchors.ForceExit(ctx, exitID)
	require.NoError(t, err)
	require.Equal(t, types.ExitProcessed, got.Status)
}
