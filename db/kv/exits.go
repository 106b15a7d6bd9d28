package kv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/types"
)

// SaveForceExit persists a new force exit request and consumes its
// (microchain, user, nonce) key. A nonce already present in the index fails
// with ErrNonceReplay.
func (s *Store) SaveForceExit(ctx context.Context, exit *types.ForceExitRequest) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveForceExit")
	defer span.End()
	enc, err := encode(exit)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		idx := tx.Bucket(exitNonceIndexBucket)
		nonceKey := encodeExitNonce(exit.MicrochainID, exit.User, exit.Nonce)
		if idx.Get(nonceKey) != nil {
			return ErrNonceReplay
		}
		if err := idx.Put(nonceKey, []byte(exit.ID)); err != nil {
			return errors.Wrap(err, "failed to index exit nonce")
		}
		return tx.Bucket(forceExitsBucket).Put([]byte(exit.ID), enc)
	})
}

// ForceExit retrieves a force exit request by id. Returns nil if the request
// does not exist.
func (s *Store) ForceExit(ctx context.Context, exitID string) (*types.ForceExitRequest, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.ForceExit")
	defer span.End()
	var exit *types.ForceExitRequest
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(forceExitsBucket).Get([]byte(exitID))
		if enc == nil {
			return nil
		}
		exit = &types.ForceExitRequest{}
		return decode(enc, exit)
	})
	return exit, err
}

// PendingForceExits returns every exit request still in the pending state.
func (s *Store) PendingForceExits(ctx context.Context) ([]*types.ForceExitRequest, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.PendingForceExits")
	defer span.End()
	var pending []*types.ForceExitRequest
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(forceExitsBucket).ForEach(func(_, enc []byte) error {
			exit := &types.ForceExitRequest{}
			if err := decode(enc, exit); err != nil {
				return err
			}
			if exit.Status == types.ExitPending {
				pending = append(pending, exit)
			}
			return nil
		})
	})
	return pending, err
}

// ProcessForceExit transitions a pending exit to processed, permanently
// consuming its nonce. Returns the exit amount to credit on the mainchain.
func (s *Store) ProcessForceExit(ctx context.Context, exitID string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.ProcessForceExit")
	defer span.End()
	var amount uint64
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(forceExitsBucket)
		enc := bucket.Get([]byte(exitID))
		if enc == nil {
			return ErrNotFound
		}
		exit := &types.ForceExitRequest{}
		if err := decode(enc, exit); err != nil {
			return err
		}
		if exit.Status != types.ExitPending {
			return ErrAlreadyFinalized
		}
		exit.Status = types.ExitProcessed
		amount = exit.Amount
		updated, err := encode(exit)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(exitID), updated)
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// RejectForceExit transitions a pending exit to rejected and frees its nonce
// so the user may retry with corrected material.
func (s *Store) RejectForceExit(ctx context.Context, exitID string) error {
	_, span := trace.StartSpan(ctx, "guardianDB.RejectForceExit")
	defer span.End()
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(forceExitsBucket)
		enc := bucket.Get([]byte(exitID))
		if enc == nil {
			return ErrNotFound
		}
		exit := &types.ForceExitRequest{}
		if err := decode(enc, exit); err != nil {
			return err
		}
		if exit.Status != types.ExitPending {
			return ErrAlreadyFinalized
		}
		exit.Status = types.ExitRejected
		updated, err := encode(exit)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(exitID), updated); err != nil {
			return errors.Wrap(err, "failed to save rejected exit")
		}
		idx := tx.Bucket(exitNonceIndexBucket)
		return idx.Delete(encodeExitNonce(exit.MicrochainID, exit.User, exit.Nonce))
	})
}
