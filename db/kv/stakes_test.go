package kv

import (
	"context"
	"testing"

	"github.com/ipswyworld/ouroboros/testing/require"
)

func TestStore_Deposits_Accumulate(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, db.DepositRelayerBond(ctx, "relayer", 40))
	require.NoError(t, db.DepositRelayerBond(ctx, "relayer", 60))
	bond, err := db.RelayerBond(ctx, "relayer")
	require.NoError(t, err)
	require.Equal(t, uint64(100), bond)

	require.NoError(t, db.DepositOperatorStake(ctx, "operator", 500))
	stake, err := db.OperatorStake(ctx, "operator")
	require.NoError(t, err)
	require.Equal(t, uint64(500), stake)

	require.NoError(t, db.DepositChallengeBond(ctx, "challenger", 20))
	cb, err := db.ChallengeBond(ctx, "challenger")
	require.NoError(t, err)
	require.Equal(t, uint64(20), cb)
}

func TestStore_Balances_DefaultZero(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	bond, err := db.RelayerBond(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, uint64(0), bond)

	reward, err := db.RewardBalance(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, uint64(0), reward)

	slashed, err := db.SlashedAmount(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, uint64(0), slashed)
}
