package kv

import (
	"context"

	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/shared/bytesutil"
)

// The stake ledger keeps one non-negative balance per (bucket, entity) pair:
// relayer bonds, operator stakes, challenge bonds, withdrawable rewards and
// cumulative slashed totals. Balances are only ever mutated inside the same
// bolt transaction as the status transition that justifies the change.

func balance(tx *bolt.Tx, bucket []byte, entity string) uint64 {
	enc := tx.Bucket(bucket).Get([]byte(entity))
	if enc == nil {
		return 0
	}
	return bytesutil.FromBytes8(enc)
}

func putBalance(tx *bolt.Tx, bucket []byte, entity string, amount uint64) error {
	return tx.Bucket(bucket).Put([]byte(entity), bytesutil.Bytes8(amount))
}

func addBalance(tx *bolt.Tx, bucket []byte, entity string, amount uint64) error {
	return putBalance(tx, bucket, entity, balance(tx, bucket, entity)+amount)
}

// subClampBalance subtracts up to amount from the balance, clamping at zero.
// It returns the amount actually subtracted.
func subClampBalance(tx *bolt.Tx, bucket []byte, entity string, amount uint64) (uint64, error) {
	current := balance(tx, bucket, entity)
	if amount > current {
		log.WithField("entity", entity).WithField("balance", current).WithField(
			"requested", amount).Warn("Slash amount exceeds balance, clamping")
		amount = current
	}
	return amount, putBalance(tx, bucket, entity, current-amount)
}

// DepositRelayerBond adds to a relayer's bond balance.
func (s *Store) DepositRelayerBond(ctx context.Context, relayer string, amount uint64) error {
	_, span := trace.StartSpan(ctx, "guardianDB.DepositRelayerBond")
	defer span.End()
	return s.update(func(tx *bolt.Tx) error {
		return addBalance(tx, relayerBondsBucket, relayer, amount)
	})
}

// RelayerBond returns a relayer's current bond balance.
func (s *Store) RelayerBond(ctx context.Context, relayer string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.RelayerBond")
	defer span.End()
	var amount uint64
	err := s.view(func(tx *bolt.Tx) error {
		amount = balance(tx, relayerBondsBucket, relayer)
		return nil
	})
	return amount, err
}

// DepositOperatorStake adds to an operator's stake balance.
func (s *Store) DepositOperatorStake(ctx context.Context, operator string, amount uint64) error {
	_, span := trace.StartSpan(ctx, "guardianDB.DepositOperatorStake")
	defer span.End()
	return s.update(func(tx *bolt.Tx) error {
		return addBalance(tx, operatorStakesBucket, operator, amount)
	})
}

// OperatorStake returns an operator's current stake balance.
func (s *Store) OperatorStake(ctx context.Context, operator string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.OperatorStake")
	defer span.End()
	var amount uint64
	err := s.view(func(tx *bolt.Tx) error {
		amount = balance(tx, operatorStakesBucket, operator)
		return nil
	})
	return amount, err
}

// DepositChallengeBond adds to a challenger's bond balance.
func (s *Store) DepositChallengeBond(ctx context.Context, challenger string, amount uint64) error {
	_, span := trace.StartSpan(ctx, "guardianDB.DepositChallengeBond")
	defer span.End()
	return s.update(func(tx *bolt.Tx) error {
		return addBalance(tx, challengeBondsBucket, challenger, amount)
	})
}

// ChallengeBond returns a challenger's current bond balance.
func (s *Store) ChallengeBond(ctx context.Context, challenger string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.ChallengeBond")
	defer span.End()
	var amount uint64
	err := s.view(func(tx *bolt.Tx) error {
		amount = balance(tx, challengeBondsBucket, challenger)
		return nil
	})
	return amount, err
}

// RewardBalance returns an entity's withdrawable reward balance.
func (s *Store) RewardBalance(ctx context.Context, entity string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.RewardBalance")
	defer span.End()
	var amount uint64
	err := s.view(func(tx *bolt.Tx) error {
		amount = balance(tx, rewardsBucket, entity)
		return nil
	})
	return amount, err
}

// SlashedAmount returns the cumulative amount slashed from an entity.
func (s *Store) SlashedAmount(ctx context.Context, entity string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.SlashedAmount")
	defer span.End()
	var amount uint64
	err := s.view(func(tx *bolt.Tx) error {
		amount = balance(tx, slashedTotalsBucket, entity)
		return nil
	})
	return amount, err
}
