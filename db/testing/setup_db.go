// Package testing defines useful helper functions for unit tests with the
// guardian database.
package testing

import (
	"testing"

	"github.com/ipswyworld/ouroboros/db/kv"
)

// SetupGuardianDB instantiates and returns a guardian database backed by a
// temporary directory, torn down with the test.
func SetupGuardianDB(t testing.TB) *kv.Store {
	db, err := kv.NewKVStore(t.TempDir(), &kv.Config{})
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
