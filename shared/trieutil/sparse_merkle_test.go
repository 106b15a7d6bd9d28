package trieutil

import (
	"testing"

	"github.com/ipswyworld/ouroboros/testing/require"
)

func TestMerkleProof_RoundTrip(t *testing.T) {
	items := [][]byte{
		[]byte("A"),
		[]byte("B"),
		[]byte("C"),
		[]byte("D"),
		[]byte("E"),
	}
	trie, err := GenerateTrieFromItems(items, 4)
	require.NoError(t, err)
	root := trie.Root()

	for i, item := range items {
		proof, err := trie.MerkleProof(i)
		require.NoError(t, err)
		require.Equal(t, 4, len(proof))
		require.Equal(t, true, VerifyMerkleProof(root, item, uint64(i), proof))
	}

	// A proof does not verify for the wrong item or the wrong index.
	proof, err := trie.MerkleProof(0)
	require.NoError(t, err)
	require.Equal(t, false, VerifyMerkleProof(root, []byte("B"), 0, proof))
	require.Equal(t, false, VerifyMerkleProof(root, []byte("A"), 1, proof))
}

func TestGenerateTrieFromItems_Validation(t *testing.T) {
	_, err := GenerateTrieFromItems(nil, 4)
	require.ErrorContains(t, "no items provided", err)

	_, err = GenerateTrieFromItems([][]byte{{1}, {2}, {3}}, 1)
	require.ErrorContains(t, "more items than the trie can hold", err)
}

func TestInsert_UpdatesRoot(t *testing.T) {
	items := [][]byte{[]byte("A"), []byte("B")}
	trie, err := GenerateTrieFromItems(items, 4)
	require.NoError(t, err)
	before := trie.Root()

	require.NoError(t, trie.Insert([]byte("C"), 2))
	after := trie.Root()
	require.NotEqual(t, before, after)

	// The updated trie matches one generated from scratch.
	fresh, err := GenerateTrieFromItems([][]byte{[]byte("A"), []byte("B"), []byte("C")}, 4)
	require.NoError(t, err)
	require.Equal(t, fresh.Root(), after)

	proof, err := trie.MerkleProof(2)
	require.NoError(t, err)
	require.Equal(t, true, VerifyMerkleProof(after, []byte("C"), 2, proof))
}
