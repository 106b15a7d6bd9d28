// Package db defines the ability to create a new database for the guardian
// subsystem.
package db

import (
	"github.com/ipswyworld/ouroboros/db/kv"
)

// NewDB initializes a new database at the provided directory path.
func NewDB(dirPath string, cfg *kv.Config) (Database, error) {
	return kv.NewKVStore(dirPath, cfg)
}
