package types

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/ipswyworld/ouroboros/shared/bytesutil"
	"github.com/ipswyworld/ouroboros/shared/hashutil"
)

// ChallengeEvidence carries the material a challenger presents against an
// anchor. Interpretation depends on the challenge type.
type ChallengeEvidence struct {
	PreviousStateRoot [32]byte
	ClaimedStateRoot  [32]byte
	Transactions      []*MicrochainTransaction
	MerkleProofs      [][]byte
	AdditionalData    []byte
}

// MicrochainTransaction is a transaction included in challenge evidence.
type MicrochainTransaction struct {
	Sender    string
	Recipient string
	Amount    uint64
	Nonce     uint64
	PublicKey []byte
	Signature []byte
}

// SigningRoot returns the hash a sender signs over a microchain transaction.
func (tx *MicrochainTransaction) SigningRoot() [32]byte {
	return hashutil.HashConcat(
		[]byte(tx.Sender),
		[]byte(tx.Recipient),
		bytesutil.Bytes8(tx.Amount),
		bytesutil.Bytes8(tx.Nonce),
	)
}

// RelayProofEvidence carries the material backing an InvalidMerkleProof relay
// fraud proof: the source-ledger root the relayer's inclusion proof claims.
type RelayProofEvidence struct {
	SourceRoot [32]byte
}

// EncodeChallengeEvidence serializes evidence deterministically for storage.
func EncodeChallengeEvidence(ev *ChallengeEvidence) ([]byte, error) {
	enc, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode challenge evidence")
	}
	return enc, nil
}

// DecodeChallengeEvidence deserializes stored evidence. Corrupted evidence
// yields an error so verification can treat the challenge as unproven.
func DecodeChallengeEvidence(enc []byte) (*ChallengeEvidence, error) {
	ev := &ChallengeEvidence{}
	if err := msgpack.Unmarshal(enc, ev); err != nil {
		return nil, errors.Wrap(err, "could not decode challenge evidence")
	}
	return ev, nil
}

// EncodeRelayProofEvidence serializes relay proof evidence.
func EncodeRelayProofEvidence(ev *RelayProofEvidence) ([]byte, error) {
	enc, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode relay proof evidence")
	}
	return enc, nil
}

// DecodeRelayProofEvidence deserializes relay proof evidence.
func DecodeRelayProofEvidence(enc []byte) (*RelayProofEvidence, error) {
	ev := &RelayProofEvidence{}
	if err := msgpack.Unmarshal(enc, ev); err != nil {
		return nil, errors.Wrap(err, "could not decode relay proof evidence")
	}
	return ev, nil
}
