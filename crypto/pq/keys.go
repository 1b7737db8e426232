package pq

import (
	"github.com/botho-project/botho/crypto/curve"
	"github.com/pkg/errors"
)

// HybridKeyPair bundles the three post-quantum keys a PQ-private account
// derives from a single classical view key (spec.md §4.4): ML-KEM-768 for
// encrypted delivery, ML-DSA-65 for authentication, and a Lion keypair for
// ring-signed spending.
type HybridKeyPair struct {
	Kem  *KemKeyPair
	Sig  *SigKeyPair
	Lion KeyPair
}

// DeriveHybridKeyPair derives all three PQ keypairs from an account's view
// private scalar via HKDF with domain-separated info strings, so a wallet
// only needs to back up its classical mnemonic to recover its PQ keys too.
func DeriveHybridKeyPair(viewPrivate curve.Scalar) (*HybridKeyPair, error) {
	secret := viewPrivate.Bytes()

	kemSeed, err := curve.HKDFExpand(secret, "kem-seed", kemScheme.SeedSize())
	if err != nil {
		return nil, errors.Wrap(err, "deriving kem-seed")
	}
	kemKP, err := DeriveKemKeyPair(kemSeed)
	if err != nil {
		return nil, errors.Wrap(err, "deriving ml-kem-768 keypair")
	}

	sigSeed, err := curve.HKDFExpand(secret, "sig-seed", sigScheme.SeedSize())
	if err != nil {
		return nil, errors.Wrap(err, "deriving sig-seed")
	}
	sigKP, err := DeriveSigKeyPair(sigSeed)
	if err != nil {
		return nil, errors.Wrap(err, "deriving ml-dsa-65 keypair")
	}

	lionSeed, err := curve.HKDFExpand(secret, "lion-seed", 32)
	if err != nil {
		return nil, errors.Wrap(err, "deriving lion-seed")
	}

	return &HybridKeyPair{
		Kem:  kemKP,
		Sig:  sigKP,
		Lion: GenerateKeyPair(lionSeed),
	}, nil
}
