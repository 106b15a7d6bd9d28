package kv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/types"
)

// SaveFraudProof persists the fraud proof for a relay. At most one proof is
// accepted per relay; a second insert fails with ErrAlreadyExists.
func (s *Store) SaveFraudProof(ctx context.Context, proof *types.FraudProofRecord) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveFraudProof")
	defer span.End()
	enc, err := encode(proof)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(fraudProofsBucket)
		if bucket.Get(proof.MessageHash[:]) != nil {
			return ErrAlreadyExists
		}
		if err := bucket.Put(proof.MessageHash[:], enc); err != nil {
			return errors.Wrap(err, "failed to save fraud proof")
		}
		return nil
	})
}

// FraudProof retrieves the fraud proof recorded against a relay. Returns nil
// if no proof was submitted.
func (s *Store) FraudProof(ctx context.Context, messageHash [32]byte) (*types.FraudProofRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.FraudProof")
	defer span.End()
	var proof *types.FraudProofRecord
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(fraudProofsBucket).Get(messageHash[:])
		if enc == nil {
			return nil
		}
		proof = &types.FraudProofRecord{}
		return decode(enc, proof)
	})
	return proof, err
}

// DeleteFraudProof discards a rejected fraud proof so the relay can still be
// confirmed after its challenge window.
func (s *Store) DeleteFraudProof(ctx context.Context, messageHash [32]byte) error {
	_, span := trace.StartSpan(ctx, "guardianDB.DeleteFraudProof")
	defer span.End()
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(fraudProofsBucket).Delete(messageHash[:])
	})
}
