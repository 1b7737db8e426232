package pq

import (
	"crypto"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/pkg/errors"
)

// sigScheme is the shared ML-DSA-65 scheme instance (spec.md §4.4: the
// authentication half of the hybrid PQ layer, alongside Lion for spending
// anonymity).
var sigScheme = mldsa65.Scheme()

// SigKeyPair is a derived ML-DSA-65 keypair.
type SigKeyPair struct {
	Public  sign.PublicKey
	Private sign.PrivateKey
}

// DeriveSigKeyPair deterministically derives an ML-DSA-65 keypair from a
// seed.
func DeriveSigKeyPair(seed []byte) (*SigKeyPair, error) {
	if len(seed) != sigScheme.SeedSize() {
		return nil, errors.Errorf("sig seed must be %d bytes, got %d", sigScheme.SeedSize(), len(seed))
	}
	pub, priv := sigScheme.DeriveKey(seed)
	return &SigKeyPair{Public: pub, Private: priv}, nil
}

// Sign produces an ML-DSA-65 signature over message.
func Sign(priv sign.PrivateKey, message []byte) []byte {
	return sigScheme.Sign(priv, message, crypto.Hash(0))
}

// Verify checks an ML-DSA-65 signature.
func Verify(pub sign.PublicKey, message, signature []byte) bool {
	return sigScheme.Verify(pub, message, signature, crypto.Hash(0))
}

// MarshalSigPublicKey encodes a public key for on-chain storage.
func MarshalSigPublicKey(pub sign.PublicKey) ([]byte, error) {
	b, err := pub.MarshalBinary()
	return b, errors.Wrap(err, "marshal ml-dsa-65 public key")
}

// UnmarshalSigPublicKey decodes an on-chain-stored public key.
func UnmarshalSigPublicKey(b []byte) (sign.PublicKey, error) {
	pub, err := sigScheme.UnmarshalBinaryPublicKey(b)
	return pub, errors.Wrap(err, "unmarshal ml-dsa-65 public key")
}
