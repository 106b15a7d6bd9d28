package trieutil

import (
	"github.com/ipswyworld/ouroboros/shared/hashutil"
)

const maxTrieDepth = 64

// ZeroHashes is the list of empty-subtree hashes indexed by subtree height,
// used to pad incomplete layers of a sparse trie.
var ZeroHashes [maxTrieDepth][32]byte

func init() {
	for i := 0; i < maxTrieDepth-1; i++ {
		ZeroHashes[i+1] = hashutil.Hash(append(ZeroHashes[i][:], ZeroHashes[i][:]...))
	}
}
