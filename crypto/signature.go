// Package crypto wraps the signature scheme used for operator and user
// signatures referenced in anchors and challenge evidence.
package crypto

import (
	"crypto/rand"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"
)

// Verifier checks a signature over a message under a public key. Engines take
// a Verifier so that key management stays outside the fraud subsystem.
type Verifier interface {
	Verify(pubKey, msg, sig []byte) bool
}

// Ed25519Verifier verifies ed25519 signatures.
type Ed25519Verifier struct{}

// Verify returns true iff sig is a valid ed25519 signature of msg by pubKey.
// Malformed keys or signatures verify as false, never panic.
func (Ed25519Verifier) Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig)
}

// GenerateKey produces a fresh ed25519 keypair. A nil reader falls back to
// crypto/rand.
func GenerateKey(rnd io.Reader) (pubKey, privKey []byte, err error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(rnd)
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// Sign produces an ed25519 signature of msg with privKey.
func Sign(privKey, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(privKey), msg)
}
