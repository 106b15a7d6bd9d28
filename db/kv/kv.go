// Package kv implements the guardian database over BoltDB, keeping every
// relay, fraud proof, anchor, challenge, exit, stake balance and blacklist
// entry durable, with single-record compare-and-set semantics provided by
// bolt's serialized update transactions.
package kv

import (
	"os"
	"path"
	"time"

	"github.com/dgraph-io/ristretto"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var databaseFileName = "guardian.db"

// Errors shared by record accessors. Engines wrap these into their own
// error taxonomy.
var (
	// ErrNotFound is returned when a mutation references an unknown record.
	ErrNotFound = errors.New("record not found in database")
	// ErrAlreadyExists is returned when inserting a record whose key is taken.
	ErrAlreadyExists = errors.New("record already exists in database")
	// ErrAlreadyFinalized is returned when mutating a record in a terminal state.
	ErrAlreadyFinalized = errors.New("record already in a terminal state")
	// ErrNonceReplay is returned when a force exit nonce was already used.
	ErrNonceReplay = errors.New("exit nonce already used")
	// ErrStaleHeight is returned when finalizing an anchor at or below the
	// microchain's finalized height.
	ErrStaleHeight = errors.New("anchor height not beyond finalized height")
	// ErrPermanentEntry is returned when clearing a permanent blacklist entry.
	ErrPermanentEntry = errors.New("blacklist entry is permanent")
)

// Store defines an implementation of the guardian Database interface using
// BoltDB as the underlying persistent kv-store.
type Store struct {
	db             *bolt.DB
	databasePath   string
	relayCache     *ristretto.Cache
	blacklistCache *lru.Cache
}

// Config options for the guardian db.
type Config struct {
	CacheItems     int64
	MaxCacheSize   int64
	BlacklistItems int
}

// NewKVStore initializes a new boltDB key-value store at the directory path
// specified, creates the kv-buckets based on the schema, and stores an open
// connection db object as a property of the Store struct.
func NewKVStore(dirPath string, cfg *Config) (*Store, error) {
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return nil, err
	}
	datafile := path.Join(dirPath, databaseFileName)
	boltDB, err := bolt.Open(datafile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	if cfg.CacheItems == 0 {
		cfg.CacheItems = 20000
	}
	if cfg.MaxCacheSize == 0 {
		cfg.MaxCacheSize = 1 << 28 // 256MB
	}
	if cfg.BlacklistItems == 0 {
		cfg.BlacklistItems = 10000
	}
	kv := &Store{db: boltDB, databasePath: datafile}
	relayCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.CacheItems * 10,
		MaxCost:     cfg.MaxCacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start relay cache")
	}
	kv.relayCache = relayCache
	blacklistCache, err := lru.New(cfg.BlacklistItems)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start blacklist cache")
	}
	kv.blacklistCache = blacklistCache

	if err := kv.db.Update(func(tx *bolt.Tx) error {
		return createBuckets(
			tx,
			relaysBucket,
			relayNonceIndexBucket,
			fraudProofsBucket,
			anchorsBucket,
			challengesBucket,
			challengeAnchorIndexBucket,
			finalizedHeadsBucket,
			microchainsBucket,
			forceExitsBucket,
			exitNonceIndexBucket,
			relayerBondsBucket,
			operatorStakesBucket,
			challengeBondsBucket,
			rewardsBucket,
			slashedTotalsBucket,
			blacklistBucket,
		)
	}); err != nil {
		return nil, err
	}
	return kv, nil
}

// Close closes the underlying boltdb database.
func (s *Store) Close() error {
	s.relayCache.Close()
	return s.db.Close()
}

// ClearDB removes any previously stored data at the configured data directory.
func (s *Store) ClearDB() error {
	if _, err := os.Stat(s.databasePath); os.IsNotExist(err) {
		return nil
	}
	s.relayCache.Clear()
	s.blacklistCache.Purge()
	return os.Remove(s.databasePath)
}

// DatabasePath at which this database writes files.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

// Size returns the db size in bytes.
func (s *Store) Size() (int64, error) {
	var size int64
	err := s.db.View(func(tx *bolt.Tx) error {
		size = tx.Size()
		return nil
	})
	return size, err
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	return s.db.Update(fn)
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	return s.db.View(fn)
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}
