package kv

import (
	"github.com/ipswyworld/ouroboros/shared/bytesutil"
)

// The guardian schema aims to keep each record type in its own bucket, with
// small index buckets mapping natural keys (sender+nonce, anchor hash,
// microchain+user+nonce) to record ids.
var (
	// Cross-chain relays.
	relaysBucket          = []byte("relays-bucket")
	relayNonceIndexBucket = []byte("relay-nonce-index-bucket")
	fraudProofsBucket     = []byte("fraud-proofs-bucket")

	// Microchain anchors and challenges.
	anchorsBucket              = []byte("anchors-bucket")
	challengesBucket           = []byte("challenges-bucket")
	challengeAnchorIndexBucket = []byte("challenge-anchor-index-bucket")
	finalizedHeadsBucket       = []byte("finalized-heads-bucket")
	microchainsBucket          = []byte("microchains-bucket")

	// Force exits.
	forceExitsBucket     = []byte("force-exits-bucket")
	exitNonceIndexBucket = []byte("exit-nonce-index-bucket")

	// Stake ledger.
	relayerBondsBucket   = []byte("relayer-bonds-bucket")
	operatorStakesBucket = []byte("operator-stakes-bucket")
	challengeBondsBucket = []byte("challenge-bonds-bucket")
	rewardsBucket        = []byte("rewards-bucket")
	slashedTotalsBucket  = []byte("slashed-totals-bucket")

	// Monitoring.
	blacklistBucket = []byte("blacklist-bucket")
)

func encodeSenderNonce(sender string, nonce uint64) []byte {
	return append([]byte(sender), bytesutil.Bytes8(nonce)...)
}

func encodeExitNonce(microchainID, user string, nonce uint64) []byte {
	key := append([]byte(microchainID), byte(0))
	key = append(key, []byte(user)...)
	key = append(key, byte(0))
	return append(key, bytesutil.Bytes8(nonce)...)
}

func encodeAnchorChallenge(anchorHash [32]byte, challengeID string) []byte {
	return append(anchorHash[:], []byte(challengeID)...)
}
