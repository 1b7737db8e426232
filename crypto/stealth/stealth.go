// Package stealth implements the account key schedule of spec.md §4.1:
// view/spend keypairs, subaddress derivation, one-time output keys, and
// key images. It is grounded on crypto/key.go and crypto/ring.go in the
// joeswrld-ApexCoin example (the only pack repo that models stealth
// addresses and key images at all), generalized from that file's
// placeholder SHA-256 hashing onto the real Ristretto255 scalar/point
// arithmetic the scheme requires.
package stealth

import (
	"crypto/rand"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/pkg/errors"
)

// Reserved subaddress indices (spec.md §4.1).
const (
	IndexDefault   uint32 = 0
	IndexChange    uint32 = 0xFFFFFFFE
	IndexGiftCode  uint32 = 0xFFFFFFFD
	IndexNone      uint32 = 0xFFFFFFFF
)

// AccountKeys holds an account's long-term private view/spend scalars.
type AccountKeys struct {
	ViewPrivate  curve.Scalar
	SpendPrivate curve.Scalar
}

// PublicAddress is a (view, spend) public key pair, either the default
// address or a derived subaddress.
type PublicAddress struct {
	ViewPublic  curve.Point
	SpendPublic curve.Point
}

// GenerateAccountKeys samples a fresh account.
func GenerateAccountKeys() (*AccountKeys, error) {
	a, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "sampling view key")
	}
	b, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "sampling spend key")
	}
	return &AccountKeys{ViewPrivate: a, SpendPrivate: b}, nil
}

// DefaultAddress returns the account's index-0 public address.
func (k *AccountKeys) DefaultAddress() PublicAddress {
	addr, _ := k.Subaddress(IndexDefault)
	return addr
}

// subaddressOffset computes H("subaddr", a, i), the scalar added to B to
// derive a subaddress's spend public key.
func subaddressOffset(viewPrivate curve.Scalar, index uint32) curve.Scalar {
	idx := make([]byte, 4)
	idx[0] = byte(index)
	idx[1] = byte(index >> 8)
	idx[2] = byte(index >> 16)
	idx[3] = byte(index >> 24)
	return curve.HashToScalar("subaddr", viewPrivate.Bytes(), idx)
}

// Subaddress derives (A_i, B_i) for the given index (spec.md §4.1):
//
//	B_i = B + H("subaddr", a, i)·G
//	A_i = a·B_i
func (k *AccountKeys) Subaddress(index uint32) (PublicAddress, error) {
	offset := subaddressOffset(k.ViewPrivate, index)
	spendPublic := curve.ScalarBaseMult(k.SpendPrivate).Add(curve.ScalarBaseMult(offset))
	viewPublic := spendPublic.ScalarMult(k.ViewPrivate)
	return PublicAddress{ViewPublic: viewPublic, SpendPublic: spendPublic}, nil
}

// subaddressSpendPrivate returns b_r = b + H("subaddr", a, i), the private
// scalar behind a subaddress's spend public key.
func (k *AccountKeys) subaddressSpendPrivate(index uint32) curve.Scalar {
	return k.SpendPrivate.Add(subaddressOffset(k.ViewPrivate, index))
}

// SentOutput is what a sender publishes for one recipient output: the
// ephemeral public key R and the resulting one-time target key.
type SentOutput struct {
	PublicKey curve.Point // R = r·B_r
	TargetKey curve.Point // H_s("onetime")·G + B_r
}

// sharedSecretScalar turns an ECDH point into the H_s("onetime") scalar
// used both to build and to recognize/spend a one-time output key.
func sharedSecretScalar(sharedPoint curve.Point) curve.Scalar {
	return curve.HashToScalar("onetime", sharedPoint.Bytes())
}

// SendTo derives a one-time output key for recipient (spec.md §4.1). The
// caller supplies the ephemeral scalar r (normally sampled fresh per
// output) so callers that also need the ephemeral private key for masked
// amounts or memo encryption can reuse it.
//
// R = r·B_r is the published public_key; the shared secret is s = H(r·A_r),
// which equals a·R since A_r = a·B_r — the same value Scan recovers as
// a·R using only the recipient's view private key.
func SendTo(recipient PublicAddress, r curve.Scalar) SentOutput {
	publicKey := recipient.SpendPublic.ScalarMult(r) // R = r·B_r
	sharedPoint := recipient.ViewPublic.ScalarMult(r) // r·A_r
	s := sharedSecretScalar(sharedPoint)
	targetKey := curve.ScalarBaseMult(s).Add(recipient.SpendPublic)
	return SentOutput{PublicKey: publicKey, TargetKey: targetKey}
}

// ScanResult is returned by Scan for a recognized output.
type ScanResult struct {
	TargetKey curve.Point
	// Subaddress is the index of the subaddress this output was sent
	// to, discovered by trying each known subaddress's spend public key.
	Subaddress uint32
}

// Scan checks whether an output published with ephemeral public key R
// belongs to one of the account's known subaddresses (spec.md §4.1):
// the recipient computes s' = H(a·R) and checks whether
// H_s'("onetime")·G + B_r equals target_key for any known B_r.
func (k *AccountKeys) Scan(publicKey, targetKey curve.Point, knownSubaddresses map[uint32]PublicAddress) (*ScanResult, bool) {
	sharedPoint := publicKey.ScalarMult(k.ViewPrivate) // a·R
	s := sharedSecretScalar(sharedPoint)
	candidate := curve.ScalarBaseMult(s)

	for index, addr := range knownSubaddresses {
		expected := candidate.Add(addr.SpendPublic)
		if expected.Equal(targetKey) {
			return &ScanResult{TargetKey: targetKey, Subaddress: index}, true
		}
	}
	return nil, false
}

// DeriveSpendPrivate derives the one-time private key x for an output
// recognized via Scan, for the subaddress it was found under (spec.md
// §4.1): x = H_s("onetime") + b_r.
func (k *AccountKeys) DeriveSpendPrivate(publicKey curve.Point, subaddressIndex uint32) curve.Scalar {
	sharedPoint := publicKey.ScalarMult(k.ViewPrivate)
	s := sharedSecretScalar(sharedPoint)
	br := k.subaddressSpendPrivate(subaddressIndex)
	return s.Add(br)
}

// KeyImage computes I = x·H_p(x·G), the linkability marker for a one-time
// private key x (spec.md §4.1/§4.3/Glossary).
func KeyImage(x curve.Scalar) curve.Point {
	targetKey := curve.ScalarBaseMult(x)
	hp := curve.HashToPoint("key-image", targetKey.Bytes())
	return hp.ScalarMult(x)
}
