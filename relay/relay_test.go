package relay

import (
	"context"
	"testing"

	dbtest "github.com/ipswyworld/ouroboros/db/testing"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/testing/require"
	"github.com/ipswyworld/ouroboros/types"
)

type mockNotifier struct {
	blacklisted map[string]bool
	relays      []string
	failures    []string
}

func (m *mockNotifier) IsBlacklisted(entity string) bool {
	return m.blacklisted[entity]
}

func (m *mockNotifier) RecordRelay(relayer string, _ uint64, success bool, _ uint64) *types.Alert {
	m.relays = append(m.relays, relayer)
	if !success {
		m.failures = append(m.failures, relayer)
	}
	return nil
}

func setupRelayTest(t *testing.T) (*Service, *mockNotifier) {
	params.SetupTestConfigCleanup(t)
	cfg := params.GuardianConfig().Copy()
	cfg.MinRelayBond = 100
	cfg.RelayChallengePeriod = 600
	cfg.RelaySlashAmount = 100
	cfg.RelayConfirmReward = 5
	cfg.ChallengerRewardQuotient = 2
	cfg.TreasuryAccount = "treasury"
	params.OverrideGuardianConfig(cfg)

	db := dbtest.SetupGuardianDB(t)
	notifier := &mockNotifier{blacklisted: make(map[string]bool)}
	svc, err := New(context.Background(), &ServiceConfig{Database: db, Monitor: notifier})
	require.NoError(t, err)
	return svc, notifier
}

func testMessage(sender string, nonce, amount uint64) *types.CrossChainMessage {
	return &types.CrossChainMessage{
		SourceChain:      "ouroboros",
		DestinationChain: "mainchain",
		Sender:           sender,
		Recipient:        "recipient",
		Amount:           amount,
		Nonce:            nonce,
		Timestamp:        nonce,
	}
}

func TestSubmitRelay_RequiresMinimumBond(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 99))

	_, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.ErrorIs(t, ErrInsufficientBond, err)

	require.NoError(t, svc.DepositBond(ctx, "relayer", 1))
	_, err = svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)
}

func TestSubmitRelay_RejectsBlacklistedRelayer(t *testing.T) {
	svc, notifier := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))
	notifier.blacklisted["relayer"] = true

	_, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.ErrorIs(t, ErrBlacklisted, err)
}

func TestSubmitRelay_RejectsDuplicateMessage(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	msg := testMessage("alice", 1, 10)
	_, err := svc.SubmitRelay(ctx, msg, "relayer", nil, 0, 0)
	require.NoError(t, err)
	_, err = svc.SubmitRelay(ctx, msg, "relayer", nil, 0, 0)
	require.ErrorIs(t, ErrDuplicateMessage, err)
}

func TestSubmitRelay_ReportsToMonitor(t *testing.T) {
	svc, notifier := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	_, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, len(notifier.relays))
	require.Equal(t, "relayer", notifier.relays[0])
}

func TestConfirmRelay_HonestRelayLifecycle(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	hash, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmRelay(ctx, hash, 600))

	got, err := svc.Relay(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, types.RelayConfirmed, got.Status)

	// The bond is untouched and a confirmation reward was credited.
	bond, err := svc.RelayerBond(ctx, "relayer")
	require.NoError(t, err)
	require.Equal(t, uint64(100), bond)
	reward, err := svc.cfg.Database.RewardBalance(ctx, "relayer")
	require.NoError(t, err)
	require.Equal(t, uint64(5), reward)

	require.ErrorIs(t, ErrAlreadyFinalized, svc.ConfirmRelay(ctx, hash, 601))
}

func TestConfirmRelay_TooEarly(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	hash, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)
	require.ErrorIs(t, ErrStillInChallengeWindow, svc.ConfirmRelay(ctx, hash, 599))
}

func TestRelayWindow_ClockBehindSubmission(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	hash, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 500)
	require.NoError(t, err)

	// A clock reading behind the submission time never counts as an elapsed
	// window: confirmation stays blocked and fraud proofs stay open.
	require.ErrorIs(t, ErrStillInChallengeWindow, svc.ConfirmRelay(ctx, hash, 100))
	require.NoError(t, svc.SubmitFraudProof(ctx, hash, "challenger", types.MessageNotFound, nil, 100))
}

func TestConfirmRelay_UnknownRelay(t *testing.T) {
	svc, _ := setupRelayTest(t)
	require.ErrorIs(t, ErrRelayNotFound, svc.ConfirmRelay(context.Background(), [32]byte{1}, 600))
}

func TestConfirmRelay_BlockedByUnresolvedFraudProof(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	hash, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitFraudProof(ctx, hash, "challenger", types.MessageNotFound, nil, 100))

	require.ErrorIs(t, ErrUnresolvedFraudProof, svc.ConfirmRelay(ctx, hash, 600))
}

func TestSubmitFraudProof_WindowEnforcement(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	hash, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)

	err = svc.SubmitFraudProof(ctx, hash, "challenger", types.MessageNotFound, nil, 600)
	require.ErrorIs(t, ErrChallengeWindowExpired, err)

	require.NoError(t, svc.SubmitFraudProof(ctx, hash, "challenger", types.MessageNotFound, nil, 599))
}

func TestSubmitFraudProof_OnePerRelay(t *testing.T) {
	svc, _ := setupRelayTest(t)
	ctx := context.Background()
	require.NoError(t, svc.DepositBond(ctx, "relayer", 100))

	hash, err := svc.SubmitRelay(ctx, testMessage("alice", 1, 10), "relayer", nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitFraudProof(ctx, hash, "challenger", types.MessageNotFound, nil, 100))

	err = svc.SubmitFraudProof(ctx, hash, "other", types.InsufficientBalance, nil, 200)
	require.ErrorIs(t, ErrDuplicateChallenge, err)
}

func TestSubmitFraudProof_UnknownRelay(t *testing.T) {
	svc, _ := setupRelayTest(t)
	err := svc.SubmitFraudProof(context.Background(), [32]byte{1}, "challenger", types.MessageNotFound, nil, 100)
	require.ErrorIs(t, ErrRelayNotFound, err)
}
