// Package trieutil defines a sparse Merkle trie used for state commitments
// and inclusion proofs across the chain.
package trieutil

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ipswyworld/ouroboros/shared/bytesutil"
	"github.com/ipswyworld/ouroboros/shared/hashutil"
)

// SparseMerkleTrie implements a sparse, general purpose Merkle trie over
// 32-byte leaves. Items shorter than 32 bytes are hashed into leaves.
type SparseMerkleTrie struct {
	depth         uint
	branches      [][][]byte
	originalItems [][]byte
}

// GenerateTrieFromItems constructs a Merkle trie from a sequence of byte slices.
func GenerateTrieFromItems(items [][]byte, depth uint64) (*SparseMerkleTrie, error) {
	if len(items) == 0 {
		return nil, errors.New("no items provided to generate Merkle trie")
	}
	if depth >= maxTrieDepth {
		return nil, errors.New("supported merkle trie depth exceeded")
	}
	if uint64(len(items)) > (uint64(1) << depth) {
		return nil, errors.New("more items than the trie can hold at this depth")
	}
	layers := make([][][]byte, depth+1)
	leaves := make([][]byte, len(items))
	for i := range items {
		leaf := leafHash(items[i])
		leaves[i] = leaf[:]
	}
	layers[0] = leaves
	for i := uint64(0); i < depth; i++ {
		if len(layers[i])%2 == 1 {
			layers[i] = append(layers[i], ZeroHashes[i][:])
		}
		updatedValues := make([][]byte, 0, len(layers[i])/2)
		for j := 0; j < len(layers[i]); j += 2 {
			concat := hashutil.Hash(append(layers[i][j], layers[i][j+1]...))
			updatedValues = append(updatedValues, concat[:])
		}
		layers[i+1] = updatedValues
	}
	return &SparseMerkleTrie{
		branches:      layers,
		originalItems: bytesutil.SafeCopy2dBytes(items),
		depth:         uint(depth),
	}, nil
}

// Root of the trie.
func (m *SparseMerkleTrie) Root() [32]byte {
	return bytesutil.ToBytes32(m.branches[len(m.branches)-1][0])
}

// Items returns the original items passed in when creating the Merkle trie.
func (m *SparseMerkleTrie) Items() [][]byte {
	return m.originalItems
}

// NumOfItems returns the number of items stored in the trie.
func (m *SparseMerkleTrie) NumOfItems() int {
	return len(m.originalItems)
}

// Insert an item into the trie at the given index, updating all parent
// branches up to the root.
func (m *SparseMerkleTrie) Insert(item []byte, index int) error {
	if index < 0 {
		return fmt.Errorf("negative index provided: %d", index)
	}
	if uint64(index) >= (uint64(1) << m.depth) {
		return fmt.Errorf("index %d out of range for depth %d", index, m.depth)
	}
	for index >= len(m.branches[0]) {
		m.branches[0] = append(m.branches[0], ZeroHashes[0][:])
	}
	leaf := leafHash(item)
	m.branches[0][index] = leaf[:]
	if index >= len(m.originalItems) {
		m.originalItems = append(m.originalItems, bytesutil.SafeCopyBytes(item))
	} else {
		m.originalItems[index] = bytesutil.SafeCopyBytes(item)
	}
	currentIndex := index
	node := leaf
	for i := 0; i < int(m.depth); i++ {
		neighborIdx := currentIndex ^ 1
		neighbor := ZeroHashes[i][:]
		if neighborIdx < len(m.branches[i]) {
			neighbor = m.branches[i][neighborIdx]
		}
		if currentIndex%2 == 0 {
			node = hashutil.Hash(append(node[:], neighbor...))
		} else {
			node = hashutil.Hash(append(neighbor, node[:]...))
		}
		parentIdx := currentIndex / 2
		if parentIdx >= len(m.branches[i+1]) {
			m.branches[i+1] = append(m.branches[i+1], node[:])
		} else {
			m.branches[i+1][parentIdx] = node[:]
		}
		currentIndex = parentIdx
	}
	return nil
}

// MerkleProof computes a proof for the leaf at the given index. The proof
// contains exactly depth sibling hashes ordered from leaf to root.
func (m *SparseMerkleTrie) MerkleProof(index int) ([][]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("merkle index is negative: %d", index)
	}
	if index >= len(m.branches[0]) {
		return nil, fmt.Errorf("merkle index out of range in trie, max range: %d, received: %d", len(m.branches[0]), index)
	}
	proof := make([][]byte, m.depth)
	merkleIndex := uint(index)
	for i := uint(0); i < m.depth; i++ {
		subIndex := (merkleIndex >> i) ^ 1
		if subIndex < uint(len(m.branches[i])) {
			proof[i] = bytesutil.SafeCopyBytes(m.branches[i][subIndex])
		} else {
			proof[i] = ZeroHashes[i][:]
		}
	}
	return proof, nil
}

// VerifyMerkleProof verifies a Merkle branch for an item against the root of
// a trie. The proof length determines the trie depth.
func VerifyMerkleProof(root [32]byte, item []byte, merkleIndex uint64, proof [][]byte) bool {
	if len(proof) == 0 || len(proof) >= maxTrieDepth {
		return false
	}
	node := leafHash(item)
	for i := 0; i < len(proof); i++ {
		if (merkleIndex>>uint64(i))&1 == 1 {
			node = hashutil.Hash(append(proof[i], node[:]...))
		} else {
			node = hashutil.Hash(append(node[:], proof[i]...))
		}
	}
	return bytes.Equal(root[:], node[:])
}

func leafHash(item []byte) [32]byte {
	return hashutil.Hash(item)
}
