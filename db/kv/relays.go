package kv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/types"
)

// SaveRelay persists a new relay record. It fails with ErrAlreadyExists when
// the message hash was already submitted, and records the first relay seen
// for the message's (sender, nonce) pair in the nonce index.
func (s *Store) SaveRelay(ctx context.Context, relay *types.RelayRecord) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveRelay")
	defer span.End()
	enc, err := encode(relay)
	if err != nil {
		return err
	}
	err = s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(relaysBucket)
		if bucket.Get(relay.MessageHash[:]) != nil {
			return ErrAlreadyExists
		}
		if err := bucket.Put(relay.MessageHash[:], enc); err != nil {
			return errors.Wrap(err, "failed to save relay")
		}
		idx := tx.Bucket(relayNonceIndexBucket)
		nonceKey := encodeSenderNonce(relay.Message.Sender, relay.Message.Nonce)
		if idx.Get(nonceKey) == nil {
			if err := idx.Put(nonceKey, relay.MessageHash[:]); err != nil {
				return errors.Wrap(err, "failed to index relay nonce")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.relayCache.Set(string(relay.MessageHash[:]), relay, 1)
	return nil
}

// Relay retrieves a relay record by message hash. Returns nil if the relay
// does not exist.
func (s *Store) Relay(ctx context.Context, messageHash [32]byte) (*types.RelayRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.Relay")
	defer span.End()
	if cached, ok := s.relayCache.Get(string(messageHash[:])); ok {
		if relay, ok := cached.(*types.RelayRecord); ok {
			return relay, nil
		}
	}
	var relay *types.RelayRecord
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(relaysBucket).Get(messageHash[:])
		if enc == nil {
			return nil
		}
		relay = &types.RelayRecord{}
		return decode(enc, relay)
	})
	if err != nil {
		return nil, err
	}
	if relay != nil {
		s.relayCache.Set(string(messageHash[:]), relay, 1)
	}
	return relay, nil
}

// RelayBySenderNonce returns the hash of the first relay recorded for a
// (sender, nonce) pair.
func (s *Store) RelayBySenderNonce(ctx context.Context, sender string, nonce uint64) ([32]byte, bool, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.RelayBySenderNonce")
	defer span.End()
	var hash [32]byte
	var found bool
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(relayNonceIndexBucket).Get(encodeSenderNonce(sender, nonce))
		if enc == nil {
			return nil
		}
		copy(hash[:], enc)
		found = true
		return nil
	})
	return hash, found, err
}

// PendingRelays returns every relay still in the pending state.
func (s *Store) PendingRelays(ctx context.Context) ([]*types.RelayRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.PendingRelays")
	defer span.End()
	var pending []*types.RelayRecord
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(relaysBucket).ForEach(func(_, enc []byte) error {
			relay := &types.RelayRecord{}
			if err := decode(enc, relay); err != nil {
				return err
			}
			if relay.Status == types.RelayPending {
				pending = append(pending, relay)
			}
			return nil
		})
	})
	return pending, err
}

// ConfirmRelay transitions a pending relay to confirmed and credits the
// relayer's reward balance, atomically. The first caller to reach a terminal
// state wins; later callers observe ErrAlreadyFinalized.
func (s *Store) ConfirmRelay(ctx context.Context, messageHash [32]byte, reward uint64) error {
	_, span := trace.StartSpan(ctx, "guardianDB.ConfirmRelay")
	defer span.End()
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(relaysBucket)
		enc := bucket.Get(messageHash[:])
		if enc == nil {
			return ErrNotFound
		}
		relay := &types.RelayRecord{}
		if err := decode(enc, relay); err != nil {
			return err
		}
		if relay.Status != types.RelayPending {
			return ErrAlreadyFinalized
		}
		relay.Status = types.RelayConfirmed
		updated, err := encode(relay)
		if err != nil {
			return err
		}
		if err := bucket.Put(messageHash[:], updated); err != nil {
			return errors.Wrap(err, "failed to save confirmed relay")
		}
		return addBalance(tx, rewardsBucket, relay.Relayer, reward)
	})
	if err != nil {
		return err
	}
	s.relayCache.Del(string(messageHash[:]))
	return nil
}

// SlashRelay transitions a pending relay to slashed, reduces the relayer's
// bond by up to slashAmount, credits slashed/rewardQuotient to the challenger
// and the remainder to the treasury, and marks the fraud proof accepted in a
// single transaction. Returns the amount actually slashed.
func (s *Store) SlashRelay(
	ctx context.Context,
	messageHash [32]byte,
	slashAmount uint64,
	challenger string,
	rewardQuotient uint64,
	treasury string,
) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.SlashRelay")
	defer span.End()
	var slashed uint64
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(relaysBucket)
		enc := bucket.Get(messageHash[:])
		if enc == nil {
			return ErrNotFound
		}
		relay := &types.RelayRecord{}
		if err := decode(enc, relay); err != nil {
			return err
		}
		if relay.Status != types.RelayPending {
			return ErrAlreadyFinalized
		}
		relay.Status = types.RelaySlashed
		updated, err := encode(relay)
		if err != nil {
			return err
		}
		if err := bucket.Put(messageHash[:], updated); err != nil {
			return errors.Wrap(err, "failed to save slashed relay")
		}
		slashed, err = subClampBalance(tx, relayerBondsBucket, relay.Relayer, slashAmount)
		if err != nil {
			return err
		}
		if err := addBalance(tx, slashedTotalsBucket, relay.Relayer, slashed); err != nil {
			return err
		}
		reward := slashed / rewardQuotient
		if err := addBalance(tx, rewardsBucket, challenger, reward); err != nil {
			return err
		}
		return addBalance(tx, rewardsBucket, treasury, slashed-reward)
	})
	if err != nil {
		return 0, err
	}
	s.relayCache.Del(string(messageHash[:]))
	return slashed, nil
}
