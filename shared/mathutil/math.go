// Package mathutil includes important helpers for arithmetic on unsigned
// integers used across the guardian.
package mathutil

// ClampedSub returns a-b, or zero when b exceeds a instead of wrapping.
func ClampedSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
