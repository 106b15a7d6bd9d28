package kv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/types"
)

// SaveMicrochain registers a microchain with its operator and verification
// key. Registering the same id twice fails with ErrAlreadyExists.
func (s *Store) SaveMicrochain(ctx context.Context, chain *types.Microchain) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveMicrochain")
	defer span.End()
	enc, err := encode(chain)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(microchainsBucket)
		if bucket.Get([]byte(chain.ID)) != nil {
			return ErrAlreadyExists
		}
		return bucket.Put([]byte(chain.ID), enc)
	})
}

// Microchain retrieves a microchain registry record. Returns nil if the id is
// unknown.
func (s *Store) Microchain(ctx context.Context, id string) (*types.Microchain, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.Microchain")
	defer span.End()
	var chain *types.Microchain
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(microchainsBucket).Get([]byte(id))
		if enc == nil {
			return nil
		}
		chain = &types.Microchain{}
		return decode(enc, chain)
	})
	return chain, err
}

// SaveAnchor persists a new state anchor attempt.
func (s *Store) SaveAnchor(ctx context.Context, anchor *types.StateAnchorRecord) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveAnchor")
	defer span.End()
	enc, err := encode(anchor)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(anchorsBucket)
		if bucket.Get(anchor.AnchorHash[:]) != nil {
			return ErrAlreadyExists
		}
		return bucket.Put(anchor.AnchorHash[:], enc)
	})
}

// Anchor retrieves a state anchor by hash. Returns nil if the anchor does not
// exist.
func (s *Store) Anchor(ctx context.Context, anchorHash [32]byte) (*types.StateAnchorRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.Anchor")
	defer span.End()
	var anchor *types.StateAnchorRecord
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(anchorsBucket).Get(anchorHash[:])
		if enc == nil {
			return nil
		}
		anchor = &types.StateAnchorRecord{}
		return decode(enc, anchor)
	})
	return anchor, err
}

// PendingAnchors returns every anchor still in the pending state.
func (s *Store) PendingAnchors(ctx context.Context) ([]*types.StateAnchorRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.PendingAnchors")
	defer span.End()
	var pending []*types.StateAnchorRecord
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(anchorsBucket).ForEach(func(_, enc []byte) error {
			anchor := &types.StateAnchorRecord{}
			if err := decode(enc, anchor); err != nil {
				return err
			}
			if anchor.Status == types.AnchorPending {
				pending = append(pending, anchor)
			}
			return nil
		})
	})
	return pending, err
}

// LatestFinalizedState returns the microchain's finalized head pointer, or
// nil when no anchor has finalized yet.
func (s *Store) LatestFinalizedState(ctx context.Context, microchainID string) (*types.FinalizedState, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.LatestFinalizedState")
	defer span.End()
	var head *types.FinalizedState
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(finalizedHeadsBucket).Get([]byte(microchainID))
		if enc == nil {
			return nil
		}
		head = &types.FinalizedState{}
		return decode(enc, head)
	})
	return head, err
}

// FinalizeAnchor transitions a pending anchor to finalized and advances the
// microchain's finalized head pointer, atomically. Heights must keep strictly
// increasing across finalized anchors; a raced lower anchor fails with
// ErrStaleHeight.
func (s *Store) FinalizeAnchor(ctx context.Context, anchorHash [32]byte) error {
	_, span := trace.StartSpan(ctx, "guardianDB.FinalizeAnchor")
	defer span.End()
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(anchorsBucket)
		enc := bucket.Get(anchorHash[:])
		if enc == nil {
			return ErrNotFound
		}
		anchor := &types.StateAnchorRecord{}
		if err := decode(enc, anchor); err != nil {
			return err
		}
		if anchor.Status != types.AnchorPending {
			return ErrAlreadyFinalized
		}
		heads := tx.Bucket(finalizedHeadsBucket)
		if headEnc := heads.Get([]byte(anchor.MicrochainID)); headEnc != nil {
			head := &types.FinalizedState{}
			if err := decode(headEnc, head); err != nil {
				return err
			}
			if anchor.BlockHeight <= head.BlockHeight {
				return ErrStaleHeight
			}
		}
		anchor.Status = types.AnchorFinalized
		updated, err := encode(anchor)
		if err != nil {
			return err
		}
		if err := bucket.Put(anchorHash[:], updated); err != nil {
			return errors.Wrap(err, "failed to save finalized anchor")
		}
		headEnc, err := encode(&types.FinalizedState{
			MicrochainID: anchor.MicrochainID,
			BlockHeight:  anchor.BlockHeight,
			StateRoot:    anchor.StateRoot,
			AnchorHash:   anchor.AnchorHash,
		})
		if err != nil {
			return err
		}
		return heads.Put([]byte(anchor.MicrochainID), headEnc)
	})
}

// RevertAnchor transitions a pending anchor to reverted, slashes the operator
// stake/slashDivisor, credits the slashed amount to the challenger's reward
// balance and marks the accepted challenge in a single transaction. Returns
// the amount actually slashed.
func (s *Store) RevertAnchor(
	ctx context.Context,
	anchorHash [32]byte,
	challengeID string,
	slashDivisor uint64,
) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.RevertAnchor")
	defer span.End()
	var slashed uint64
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(anchorsBucket)
		enc := bucket.Get(anchorHash[:])
		if enc == nil {
			return ErrNotFound
		}
		anchor := &types.StateAnchorRecord{}
		if err := decode(enc, anchor); err != nil {
			return err
		}
		if anchor.Status != types.AnchorPending {
			return ErrAlreadyFinalized
		}
		challenges := tx.Bucket(challengesBucket)
		chEnc := challenges.Get([]byte(challengeID))
		if chEnc == nil {
			return ErrNotFound
		}
		challenge := &types.ChallengeRecord{}
		if err := decode(chEnc, challenge); err != nil {
			return err
		}
		if challenge.Outcome != types.ChallengePending {
			return ErrAlreadyFinalized
		}
		anchor.Status = types.AnchorReverted
		updated, err := encode(anchor)
		if err != nil {
			return err
		}
		if err := bucket.Put(anchorHash[:], updated); err != nil {
			return errors.Wrap(err, "failed to save reverted anchor")
		}
		challenge.Outcome = types.ChallengeAccepted
		chUpdated, err := encode(challenge)
		if err != nil {
			return err
		}
		if err := challenges.Put([]byte(challengeID), chUpdated); err != nil {
			return errors.Wrap(err, "failed to save accepted challenge")
		}
		stake := balance(tx, operatorStakesBucket, anchor.Operator)
		slashed, err = subClampBalance(tx, operatorStakesBucket, anchor.Operator, stake/slashDivisor)
		if err != nil {
			return err
		}
		if err := addBalance(tx, slashedTotalsBucket, anchor.Operator, slashed); err != nil {
			return err
		}
		return addBalance(tx, rewardsBucket, challenge.Challenger, slashed)
	})
	if err != nil {
		return 0, err
	}
	return slashed, nil
}
