// Package curve wraps the Ristretto255 group (over edwards25519) into the
// scalar/point primitives every other crypto package builds on: stealth
// addresses (crypto/stealth), Pedersen commitments and range proofs
// (crypto/commitment), and MLSAG ring signatures (crypto/ringsig). This is
// C1 of the design: none of the pack's example repos do Ristretto
// arithmetic (they're all secp256k1/UTXO-script chains), so this package is
// grounded on gtank/ristretto255, the standard real Go implementation of
// exactly the group spec.md §4.1 and §6 call for, plus golang.org/x/crypto
// for the hash primitives spec.md §6 names (Blake2b-256, HKDF).
package curve

import (
	"crypto/sha512"
	"io"

	"github.com/gtank/ristretto255"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// Scalar is an element of the Ristretto255 scalar field.
type Scalar struct{ s *ristretto255.Scalar }

// Point is an element of the Ristretto255 group.
type Point struct{ p *ristretto255.Element }

// G is the group's conventional base point.
func G() Point {
	return Point{p: ristretto255.NewElement().Base()}
}

// NewScalarFromBytes reduces a 64-byte uniform buffer into a scalar, used
// throughout for hash-to-scalar (H_s in spec.md §4.1/§4.3).
func NewScalarFromBytes(wide [64]byte) Scalar {
	return Scalar{s: ristretto255.NewScalar().FromUniformBytes(wide[:])}
}

// RandomScalar samples a uniformly random scalar from r.
func RandomScalar(r io.Reader) (Scalar, error) {
	var wide [64]byte
	if _, err := io.ReadFull(r, wide[:]); err != nil {
		return Scalar{}, errors.Wrap(err, "sampling random scalar")
	}
	return NewScalarFromBytes(wide), nil
}

// HashToScalar computes H_s(domain, parts...) as SHA-512(domain‖parts...)
// reduced into the scalar field, the transcript hash spec.md §6 assigns to
// ring-signature challenges and key derivation.
func HashToScalar(domain string, parts ...[]byte) Scalar {
	h := sha512.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	var wide [64]byte
	copy(wide[:], h.Sum(nil))
	return NewScalarFromBytes(wide)
}

// HashToPoint is H_p, a hash-to-curve function used for key images
// (spec.md §4.1/§4.3): it hashes the input into 64 bytes and maps the
// result onto the Ristretto255 group via the group's own uniform map,
// which by construction lands on a point with unknown discrete log
// relative to G.
func HashToPoint(domain string, parts ...[]byte) Point {
	h := sha512.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	return Point{p: ristretto255.NewElement().FromUniformBytes(h.Sum(nil))}
}

// Blake2b256 is the account-key derivation hash named in spec.md §6.
func Blake2b256(parts ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HKDFExpand derives keyLen bytes from secret using HKDF-SHA512 with the
// given info string, used to derive PQ keypairs from a wallet mnemonic
// (spec.md §4.4: "kem-seed", "sig-seed").
func HKDFExpand(secret []byte, info string, keyLen int) ([]byte, error) {
	kdf := hkdf.New(sha512.New, secret, nil, []byte(info))
	out := make([]byte, keyLen)
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, errors.Wrap(err, "hkdf expand")
	}
	return out, nil
}

// Scalar arithmetic.

func (a Scalar) Add(b Scalar) Scalar {
	return Scalar{s: ristretto255.NewScalar().Add(a.s, b.s)}
}

func (a Scalar) Sub(b Scalar) Scalar {
	return Scalar{s: ristretto255.NewScalar().Subtract(a.s, b.s)}
}

func (a Scalar) Mul(b Scalar) Scalar {
	return Scalar{s: ristretto255.NewScalar().Multiply(a.s, b.s)}
}

func (a Scalar) Negate() Scalar {
	return Scalar{s: ristretto255.NewScalar().Negate(a.s)}
}

// Equal reports constant-time equality.
func (a Scalar) Equal(b Scalar) bool {
	return a.s.Equal(b.s) == 1
}

func (a Scalar) Bytes() []byte {
	return a.s.Bytes()
}

// ScalarFromCanonicalBytes decodes a canonical little-endian scalar
// encoding, rejecting non-canonical representations.
func ScalarFromCanonicalBytes(b []byte) (Scalar, error) {
	s := ristretto255.NewScalar()
	if err := s.Decode(b); err != nil {
		return Scalar{}, errors.Wrap(err, "decoding scalar")
	}
	return Scalar{s: s}, nil
}

// ScalarFromUint64 embeds a small non-negative integer as a scalar, used
// for amounts and fees entering a Pedersen commitment.
func ScalarFromUint64(v uint64) Scalar {
	var wide [64]byte
	for i := 0; i < 8; i++ {
		wide[i] = byte(v >> (8 * i))
	}
	return NewScalarFromBytes(wide)
}

// Point arithmetic.

func (a Point) Add(b Point) Point {
	return Point{p: ristretto255.NewElement().Add(a.p, b.p)}
}

func (a Point) Sub(b Point) Point {
	return Point{p: ristretto255.NewElement().Subtract(a.p, b.p)}
}

func (a Point) ScalarMult(s Scalar) Point {
	return Point{p: ristretto255.NewElement().ScalarMult(s.s, a.p)}
}

// ScalarBaseMult computes s*G.
func ScalarBaseMult(s Scalar) Point {
	return Point{p: ristretto255.NewElement().ScalarBaseMult(s.s)}
}

func (a Point) Equal(b Point) bool {
	return a.p.Equal(b.p) == 1
}

func (a Point) Bytes() []byte {
	return a.p.Bytes()
}

// PointFromCanonicalBytes decodes a canonical compressed Ristretto255
// point, rejecting any of the well-known non-canonical encodings.
func PointFromCanonicalBytes(b []byte) (Point, error) {
	p := ristretto255.NewElement()
	if err := p.Decode(b); err != nil {
		return Point{}, errors.Wrap(err, "decoding point")
	}
	return Point{p: p}, nil
}

// MultiScalarMult computes sum(scalars[i]*points[i]) in one call.
// crypto/ringsig and crypto/commitment verify term by term and do not
// call it.
func MultiScalarMult(scalars []Scalar, points []Point) Point {
	rscalars := make([]*ristretto255.Scalar, len(scalars))
	rpoints := make([]*ristretto255.Element, len(points))
	for i := range scalars {
		rscalars[i] = scalars[i].s
		rpoints[i] = points[i].p
	}
	return Point{p: ristretto255.NewElement().MultiscalarMult(rscalars, rpoints)}
}

// Identity is the group's neutral element.
func Identity() Point {
	return Point{p: ristretto255.NewElement().Zero()}
}
