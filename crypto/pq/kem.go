package pq

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/pkg/errors"
)

// kemScheme is the shared ML-KEM-768 scheme instance (spec.md §4.4: the
// encapsulation half of the hybrid PQ authentication layer).
var kemScheme = mlkem768.Scheme()

// KemKeyPair is a derived ML-KEM-768 keypair.
type KemKeyPair struct {
	Public  kem.PublicKey
	Private kem.PrivateKey
}

// DeriveKemKeyPair deterministically derives an ML-KEM-768 keypair from a
// seed (spec.md §4.4: "PQ keys are derived via HKDF from the wallet's
// mnemonic seed, using domain-separated info strings").
func DeriveKemKeyPair(seed []byte) (*KemKeyPair, error) {
	if len(seed) != kemScheme.SeedSize() {
		return nil, errors.Errorf("kem seed must be %d bytes, got %d", kemScheme.SeedSize(), len(seed))
	}
	pub, priv := kemScheme.DeriveKeyPair(seed)
	return &KemKeyPair{Public: pub, Private: priv}, nil
}

// Encapsulate produces a ciphertext and shared secret under a recipient's
// ML-KEM-768 public key.
func Encapsulate(pub kem.PublicKey) (ciphertext, sharedSecret []byte, err error) {
	ct, ss, err := kemScheme.Encapsulate(pub)
	if err != nil {
		return nil, nil, errors.Wrap(err, "ml-kem-768 encapsulate")
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret from a ciphertext using the
// recipient's private key.
func Decapsulate(priv kem.PrivateKey, ciphertext []byte) ([]byte, error) {
	ss, err := kemScheme.Decapsulate(priv, ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "ml-kem-768 decapsulate")
	}
	return ss, nil
}

// MarshalKemPublicKey encodes a public key for on-chain storage.
func MarshalKemPublicKey(pub kem.PublicKey) ([]byte, error) {
	b, err := pub.MarshalBinary()
	return b, errors.Wrap(err, "marshal ml-kem-768 public key")
}

// UnmarshalKemPublicKey decodes an on-chain-stored public key.
func UnmarshalKemPublicKey(b []byte) (kem.PublicKey, error) {
	pub, err := kemScheme.UnmarshalBinaryPublicKey(b)
	return pub, errors.Wrap(err, "unmarshal ml-kem-768 public key")
}
