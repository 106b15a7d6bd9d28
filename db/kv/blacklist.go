package kv

import (
	"context"

	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"

	"github.com/ipswyworld/ouroboros/types"
)

// SaveBlacklistEntry inserts a blacklist entry. The insert is idempotent: an
// existing entry for the entity is left untouched so its creation time and
// permanence survive repeated reports.
func (s *Store) SaveBlacklistEntry(ctx context.Context, entry *types.BlacklistEntry) error {
	_, span := trace.StartSpan(ctx, "guardianDB.SaveBlacklistEntry")
	defer span.End()
	enc, err := encode(entry)
	if err != nil {
		return err
	}
	err = s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(blacklistBucket)
		if bucket.Get([]byte(entry.Entity)) != nil {
			return nil
		}
		return bucket.Put([]byte(entry.Entity), enc)
	})
	if err != nil {
		return err
	}
	s.blacklistCache.Add(entry.Entity, true)
	return nil
}

// BlacklistEntry retrieves an entity's blacklist entry. Returns nil when the
// entity is not blacklisted.
func (s *Store) BlacklistEntry(ctx context.Context, entity string) (*types.BlacklistEntry, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.BlacklistEntry")
	defer span.End()
	var entry *types.BlacklistEntry
	err := s.view(func(tx *bolt.Tx) error {
		enc := tx.Bucket(blacklistBucket).Get([]byte(entity))
		if enc == nil {
			return nil
		}
		entry = &types.BlacklistEntry{}
		return decode(enc, entry)
	})
	return entry, err
}

// IsBlacklisted reports whether an entity is currently barred. Lookups are
// served from an LRU cache kept coherent by the mutating methods.
func (s *Store) IsBlacklisted(ctx context.Context, entity string) (bool, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.IsBlacklisted")
	defer span.End()
	if barred, ok := s.blacklistCache.Get(entity); ok {
		return barred.(bool), nil
	}
	var barred bool
	err := s.view(func(tx *bolt.Tx) error {
		barred = tx.Bucket(blacklistBucket).Get([]byte(entity)) != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	s.blacklistCache.Add(entity, barred)
	return barred, nil
}

// DeleteBlacklistEntry manually clears a non-permanent entry. Permanent
// entries fail with ErrPermanentEntry; unknown entities are a no-op.
func (s *Store) DeleteBlacklistEntry(ctx context.Context, entity string) error {
	_, span := trace.StartSpan(ctx, "guardianDB.DeleteBlacklistEntry")
	defer span.End()
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(blacklistBucket)
		enc := bucket.Get([]byte(entity))
		if enc == nil {
			return nil
		}
		entry := &types.BlacklistEntry{}
		if err := decode(enc, entry); err != nil {
			return err
		}
		if entry.Permanent {
			return ErrPermanentEntry
		}
		return bucket.Delete([]byte(entity))
	})
	if err != nil {
		return err
	}
	s.blacklistCache.Remove(entity)
	return nil
}

// BlacklistSize returns the number of blacklisted entities.
func (s *Store) BlacklistSize(ctx context.Context) (int, error) {
	_, span := trace.StartSpan(ctx, "guardianDB.BlacklistSize")
	defer span.End()
	var size int
	err := s.view(func(tx *bolt.Tx) error {
		size = tx.Bucket(blacklistBucket).Stats().KeyN
		return nil
	})
	return size, err
}
