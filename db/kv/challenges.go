package kv

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/types"
)

// SaveChallenge persists a new challenge and indexes it under its anchor.
func (s *Store) SaveChallenge(ctx context.Context, challenge *types.ChallengeRecord) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveChallenge")
	defer span.End()
	enc, err := encode(challenge)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(challengesBucket)
		if bucket.Get([]byte(challenge.ID)) != nil {
			return ErrAlreadyExists
		}
		if err := bucket.Put([]byte(challenge.ID), enc); err != nil {
			return errors.Wrap(err, "failed to save challenge")
		}
		idx := tx.Bucket(challengeAnchorIndexBucket)
		return idx.Put(encodeAnchorChallenge(challenge.AnchorHash, challenge.ID), []byte{})
	})
}

// Challenge retrieves a challenge by id. Returns nil if the challenge does
// not exist.
func (s *Store) Challenge(ctx context.Context, challengeID string) (*types.ChallengeRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.Challenge")
	defer span.End()
	var challenge *types.ChallengeRecord
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(challengesBucket).Get([]byte(challengeID))
		if enc == nil {
			return nil
		}
		challenge = &types.ChallengeRecord{}
		return decode(enc, challenge)
	})
	return challenge, err
}

// ChallengesByAnchor returns every challenge opened against an anchor.
func (s *Store) ChallengesByAnchor(ctx context.Context, anchorHash [32]byte) ([]*types.ChallengeRecord, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.ChallengesByAnchor")
	defer span.End()
	var challenges []*types.ChallengeRecord
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(challengesBucket)
		c := tx.Bucket(challengeAnchorIndexBucket).Cursor()
		prefix := anchorHash[:]
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id := k[len(prefix):]
			enc := bucket.Get(id)
			if enc == nil {
				continue
			}
			challenge := &types.ChallengeRecord{}
			if err := decode(enc, challenge); err != nil {
				return err
			}
			challenges = append(challenges, challenge)
		}
		return nil
	})
	return challenges, err
}

// RejectChallenge marks a pending challenge rejected and forfeits up to the
// challenge bond from the challenger's balance to the treasury, atomically.
// Returns the amount forfeited.
func (s *Store) RejectChallenge(ctx context.Context, challengeID, treasury string) (uint64, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.RejectChallenge")
	defer span.End()
	var forfeited uint64
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(challengesBucket)
		enc := bucket.Get([]byte(challengeID))
		if enc == nil {
			return ErrNotFound
		}
		challenge := &types.ChallengeRecord{}
		if err := decode(enc, challenge); err != nil {
			return err
		}
		if challenge.Outcome != types.ChallengePending {
			return ErrAlreadyFinalized
		}
		challenge.Outcome = types.ChallengeRejected
		updated, err := encode(challenge)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(challengeID), updated); err != nil {
			return errors.Wrap(err, "failed to save rejected challenge")
		}
		forfeited, err = subClampBalance(tx, challengeBondsBucket, challenge.Challenger, challenge.Bond)
		if err != nil {
			return err
		}
		return addBalance(tx, rewardsBucket, treasury, forfeited)
	})
	if err != nil {
		return 0, err
	}
	return forfeited, nil
}
