package anchor

import (
	"context"
	"testing"

	"github.com/ipswyworld/ouroboros/crypto"
	dbtest "github.com/ipswyworld/ouroboros/db/testing"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/testing/require"
	"github.com/ipswyworld/ouroboros/types"
)

type mockNotifier struct {
	blacklisted map[string]bool
	anchors     []string
}

func (m *mockNotifier) IsBlacklisted(entity string) bool {
	return m.blacklisted[entity]
}

func (m *mockNotifier) RecordAnchor(microchainID, _ string, _ uint64) {
	m.anchors = append(m.anchors, microchainID)
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

type anchorTestEnv struct {
	svc      *Service
	notifier *mockNotifier
	ledger   *mockLedger
	pubKey   []byte
	privKey  []byte
}

func setupAnchorTest(t *testing.T) *anchorTestEnv {
	params.SetupTestConfigCleanup(t)
	cfg := params.GuardianConfig().Copy()
	cfg.MinOperatorStake = 1000
	cfg.MinChallengeBond = 20
	cfg.AnchorChallengePeriod = 700
	cfg.OperatorSlashDivisor = 2
	cfg.ExitDelay = 100
	cfg.StateTrieDepth = 4
	cfg.TreasuryAccount = "treasury"
	params.OverrideGuardianConfig(cfg)

	db := dbtest.SetupGuardianDB(t)
	notifier := &mockNotifier{blacklisted: make(map[string]bool)}
	ledger := &mockLedger{}
	svc, err := New(context.Background(), &ServiceConfig{
		Database: db,
		Monitor:  notifier,
		Ledger:   ledger,
	})
	require.NoError(t, err)

	pub, priv, err := crypto.GenerateKey(nil)
	require.NoError(t, err)
	return &anchorTestEnv{svc: svc, notifier: notifier, ledger: ledger, pubKey: pub, privKey: priv}
}

func (env *anchorTestEnv) registerChain(t *testing.T, id string) {
	ctx := context.Background()
	require.NoError(t, env.svc.RegisterMicrochain(ctx, id, "operator-1", env.pubKey, 0))
	require.NoError(t, env.svc.DepositOperatorStake(ctx, "operator-1", 1000))
}

func (env *anchorTestEnv) signedAnchor(t *testing.T, id string, root [32]byte, height, now uint64) [32]byte {
	ctx := context.Background()
	signingRoot := types.AnchorSigningRoot(id, root, height)
	sig := crypto.Sign(env.privKey, signingRoot[:])
	hash, err := env.svc.SubmitAnchor(ctx, id, root, height, "operator-1", sig, now)
	require.NoError(t, err)
	return hash
}

func TestRegisterMicrochain_Once(t *testing.T) {
	env := setupAnchorTest(t)
	ctx := context.Background()
	require.NoError(t, env.svc.RegisterMicrochain(ctx, "mc-1", "operator-1", env.pubKey, 0))
	err := env.svc.RegisterMicrochain(ctx, "mc-1", "operator-2", env.pubKey, 1)
	require.ErrorIs(t, ErrMicrochainExists, err)
}

func TestSubmitAnchor_RequiresRegistration(t *testing.T) {
	env := setupAnchorTest(t)
	ctx := context.Background()
	_, err := env.svc.SubmitAnchor(ctx, "mc-1", [32]byte{1}, 100, "operator-1", nil, 0)
	require.ErrorIs(t, ErrUnknownMicrochain, err)
}

func TestSubmitAnchor_RequiresMinimumStake(t *testing.T) {
	env := setupAnchorTest(t)
	ctx := context.Background()
	require.NoError(t, env.svc.RegisterMicrochain(ctx, "mc-1", "operator-1", env.pubKey, 0))
	require.NoError(t, env.svc.DepositOperatorStake(ctx, "operator-1", 999))

	root := [32]byte{1}
	signingRoot := types.AnchorSigningRoot("mc-1", root, 100)
	sig := crypto.Sign(env.privKey, signingRoot[:])
	_, err := env.svc.SubmitAnchor(ctx, "mc-1", root, 100, "operator-1", sig, 0)
	require.ErrorIs(t, ErrInsufficientStake, err)
}

func TestSubmitAnchor_RejectsInvalidSignature(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	root := [32]byte{1}
	otherRoot := types.AnchorSigningRoot("mc-1", [32]byte{2}, 100)
	sig := crypto.Sign(env.privKey, otherRoot[:])
	_, err := env.svc.SubmitAnchor(ctx, "mc-1", root, 100, "operator-1", sig, 0)
	require.ErrorIs(t, ErrInvalidSignature, err)
}

func TestSubmitAnchor_RejectsBlacklistedOperator(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	env.notifier.blacklisted["operator-1"] = true

	root := [32]byte{1}
	signingRoot := types.AnchorSigningRoot("mc-1", root, 100)
	sig := crypto.Sign(env.privKey, signingRoot[:])
	_, err := env.svc.SubmitAnchor(context.Background(), "mc-1", root, 100, "operator-1", sig, 0)
	require.ErrorIs(t, ErrBlacklisted, err)
}

func TestSubmitAnchor_RejectsStaleHeight(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.NoError(t, env.svc.FinalizeAnchor(ctx, hash, 700))

	root := [32]byte{2}
	signingRoot := types.AnchorSigningRoot("mc-1", root, 100)
	sig := crypto.Sign(env.privKey, signingRoot[:])
	_, err := env.svc.SubmitAnchor(ctx, "mc-1", root, 100, "operator-1", sig, 800)
	require.ErrorIs(t, ErrStaleHeight, err)
}

func TestSubmitAnchor_RejectsDuplicate(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	root := [32]byte{1}
	env.signedAnchor(t, "mc-1", root, 100, 0)

	// Resubmitting the identical anchor surfaces the typed duplicate error
	// rather than a raw storage error.
	signingRoot := types.AnchorSigningRoot("mc-1", root, 100)
	sig := crypto.Sign(env.privKey, signingRoot[:])
	_, err := env.svc.SubmitAnchor(ctx, "mc-1", root, 100, "operator-1", sig, 10)
	require.ErrorIs(t, ErrDuplicateAnchor, err)
}

func TestAnchorWindow_ClockBehindSubmission(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 500)

	// A clock reading behind the submission time never counts as an elapsed
	// window: finalization stays blocked and challenges stay open.
	require.ErrorIs(t, ErrStillInChallengeWindow, env.svc.FinalizeAnchor(ctx, hash, 100))
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))
	_, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)
}

func TestFinalizeAnchor_HonestLifecycle(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	root := [32]byte{1}
	hash := env.signedAnchor(t, "mc-1", root, 100, 0)

	require.ErrorIs(t, ErrStillInChallengeWindow, env.svc.FinalizeAnchor(ctx, hash, 699))
	require.NoError(t, env.svc.FinalizeAnchor(ctx, hash, 700))

	head, err := env.svc.LatestFinalizedAnchor(ctx, "mc-1")
	require.NoError(t, err)
	require.NotNil(t, head)
	require.Equal(t, uint64(100), head.BlockHeight)
	require.Equal(t, root, head.StateRoot)

	require.ErrorIs(t, ErrAlreadyFinalized, env.svc.FinalizeAnchor(ctx, hash, 701))
}

func TestFinalizeAnchor_BlockedByPendingChallenge(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))
	_, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)

	require.ErrorIs(t, ErrChallengeUnresolved, env.svc.FinalizeAnchor(ctx, hash, 700))
}

func TestFinalizeAnchor_ProceedsPastRejectedChallenge(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	ctx := context.Background()

	hash := env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.NoError(t, env.svc.DepositChallengeBond(ctx, "challenger", 20))
	// An empty transaction list holds no double spend, so the challenge is
	// rejected and finalization may proceed.
	id, err := env.svc.SubmitChallenge(ctx, hash, "challenger", types.DoubleSpend, &types.ChallengeEvidence{}, 100)
	require.NoError(t, err)
	proven, err := env.svc.VerifyChallenge(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, false, proven)

	require.NoError(t, env.svc.FinalizeAnchor(ctx, hash, 700))
}

func TestSubmitAnchor_NotifiesMonitor(t *testing.T) {
	env := setupAnchorTest(t)
	env.registerChain(t, "mc-1")
	env.signedAnchor(t, "mc-1", [32]byte{1}, 100, 0)
	require.Equal(t, 1, len(env.notifier.anchors))
	require.Equal(t, "mc-1", env.notifier.anchors[0])
}
