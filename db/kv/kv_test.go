package kv

import (
	"testing"
)

func setupDB(t testing.TB) *Store {
	db, err := NewKVStore(t.TempDir(), &Config{})
	if err != nil {
		t.Fatalf("failed to instantiate db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return db
}
