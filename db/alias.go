package db

import "github.com/ipswyworld/ouroboros/db/iface"

// Database defines the necessary methods for the guardian's db which may be
// implemented by any key-value or relational database in practice.
type Database = iface.Database
