// Package commitment implements Pedersen amount commitments and their
// range proofs (spec.md §4.2): C = v·G + r·H, where H is a second
// generator with unknown discrete log relative to G. No pack repo carries
// a range-proof library (Bulletproofs is protocol logic, not a library
// concern — see SPEC_FULL.md §5.1-5.6), so the proof here is hand-rolled
// directly on crypto/curve, the same way the teacher hand-rolls GHOSTDAG
// ordering over plain curve calls rather than pulling in a DAG library.
//
// The range proof decomposes a 64-bit value into its bits and, for each
// bit, gives a non-interactive 1-of-2 ring signature (Abe-Ohkubo-Suzuki)
// proving the bit's own commitment opens to either 0 or 2^i without
// revealing which. This is the same ring-equation shape crypto/ringsig
// generalizes to ring size R for spending proofs.
package commitment

import (
	"crypto/rand"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/pkg/errors"
)

const valueBits = 64

// Generator returns H, the blinding generator. It is derived by hashing a
// fixed domain string to a curve point, giving it unknown discrete log
// relative to G (spec.md §4.2).
func Generator() curve.Point {
	return curve.HashToPoint("botho/commitment/H")
}

// Commit builds C = value·G + blinding·H.
func Commit(value uint64, blinding curve.Scalar) curve.Point {
	return curve.ScalarBaseMult(curve.ScalarFromUint64(value)).Add(Generator().ScalarMult(blinding))
}

// RandomBlinding samples a fresh blinding scalar.
func RandomBlinding() (curve.Scalar, error) {
	s, err := curve.RandomScalar(rand.Reader)
	return s, errors.Wrap(err, "sampling blinding factor")
}

// SumCommitments adds a list of commitments (used to check that input and
// output commitments balance).
func SumCommitments(points []curve.Point) curve.Point {
	sum := curve.Identity()
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum
}

// bitChallengeHash is the Fiat-Shamir challenge for one bit's ring step.
func bitChallengeHash(m0, m1, r curve.Point) curve.Scalar {
	return curve.HashToScalar("botho/commitment/range-bit", m0.Bytes(), m1.Bytes(), r.Bytes())
}

// bitProof is a 1-of-2 AOS ring signature over (M0, M1) = (C_i, C_i - 2^i·G),
// proving the bit commitment C_i opens to 0 or 2^i under H.
type bitProof struct {
	C0 curve.Scalar
	S  [2]curve.Scalar
}

func proveBit(m [2]curve.Point, h curve.Point, real int, r curve.Scalar) (*bitProof, error) {
	k, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "sampling bit nonce")
	}
	fake := 1 - real

	var c [2]curve.Scalar
	var s [2]curve.Scalar

	rPoint := h.ScalarMult(k)
	c[fake] = bitChallengeHash(m[0], m[1], rPoint)

	s[fake], err = curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "sampling fake response")
	}
	rFake := h.ScalarMult(s[fake]).Sub(m[fake].ScalarMult(c[fake]))
	c[real] = bitChallengeHash(m[0], m[1], rFake)
	s[real] = k.Add(c[real].Mul(r))

	return &bitProof{C0: c[0], S: s}, nil
}

func verifyBit(m [2]curve.Point, h curve.Point, p *bitProof) bool {
	c := [2]curve.Scalar{p.C0}
	for i := 0; i < 2; i++ {
		next := (i + 1) % 2
		r := h.ScalarMult(p.S[i]).Sub(m[i].ScalarMult(c[i]))
		challenge := bitChallengeHash(m[0], m[1], r)
		if next == 0 {
			return challenge.Equal(p.C0)
		}
		c[next] = challenge
	}
	return false
}

// RangeProof proves a committed value lies in [0, 2^64) without revealing
// it (spec.md §4.2: "every output amount MUST be proven to lie in a valid
// range").
type RangeProof struct {
	BitCommitments [valueBits]curve.Point
	Proofs         [valueBits]*bitProof
}

// Prove builds a range proof for Commit(value, blinding).
func Prove(value uint64, blinding curve.Scalar) (*RangeProof, error) {
	h := Generator()
	proof := &RangeProof{}

	blindingSum := curve.ScalarFromUint64(0)
	for i := 0; i < valueBits; i++ {
		var r curve.Scalar
		if i == valueBits-1 {
			r = blinding.Sub(blindingSum)
		} else {
			var err error
			r, err = curve.RandomScalar(rand.Reader)
			if err != nil {
				return nil, errors.Wrap(err, "sampling bit blinding")
			}
			blindingSum = blindingSum.Add(r)
		}

		bit := int((value >> uint(i)) & 1)
		power := curve.ScalarBaseMult(curve.ScalarFromUint64(uint64(1) << uint(i)))

		ci := h.ScalarMult(r)
		if bit == 1 {
			ci = ci.Add(power)
		}
		proof.BitCommitments[i] = ci

		m := [2]curve.Point{ci, ci.Sub(power)}
		bp, err := proveBit(m, h, bit, r)
		if err != nil {
			return nil, errors.Wrapf(err, "proving bit %d", i)
		}
		proof.Proofs[i] = bp
	}
	return proof, nil
}

// Verify checks that proof attests to commitment holding a value in
// [0, 2^64).
func (proof *RangeProof) Verify(commitment curve.Point) bool {
	h := Generator()
	sum := curve.Identity()
	for i := 0; i < valueBits; i++ {
		ci := proof.BitCommitments[i]
		sum = sum.Add(ci)

		power := curve.ScalarBaseMult(curve.ScalarFromUint64(uint64(1) << uint(i)))
		m := [2]curve.Point{ci, ci.Sub(power)}
		if !verifyBit(m, h, proof.Proofs[i]) {
			return false
		}
	}
	return sum.Equal(commitment)
}

// Bytes returns the canonical encoding of a range proof: each bit
// commitment followed by its ring proof's starting challenge and two
// responses, in bit order. Used by the hashserialization package to
// fold a proof into a transaction's canonical hash without reaching
// into bitProof's unexported fields.
func (proof *RangeProof) Bytes() []byte {
	out := make([]byte, 0, valueBits*(32+32+64))
	for i := 0; i < valueBits; i++ {
		out = append(out, proof.BitCommitments[i].Bytes()...)
		out = append(out, proof.Proofs[i].C0.Bytes()...)
		out = append(out, proof.Proofs[i].S[0].Bytes()...)
		out = append(out, proof.Proofs[i].S[1].Bytes()...)
	}
	return out
}

// ExcessCommitment computes the difference between a transaction's input
// pseudo-output commitments and its declared outputs plus fee (spec.md
// §4.6 "cryptographic checks"). When the transaction is well-formed every
// value term cancels and the result is a pure multiple of H; BalanceProof
// attests to that.
func ExcessCommitment(pseudoInputs []curve.Point, outputs []curve.Point, feePicocredits uint64) curve.Point {
	lhs := SumCommitments(pseudoInputs)
	rhs := SumCommitments(outputs).Add(curve.ScalarBaseMult(curve.ScalarFromUint64(feePicocredits)))
	return lhs.Sub(rhs)
}

// BalanceProof is a Schnorr proof of knowledge of the excess blinding
// factor z such that excess = z·H, binding a transaction's inputs and
// outputs to the same total value without revealing any individual
// amount.
type BalanceProof struct {
	R curve.Point
	S curve.Scalar
}

// ProveBalance proves knowledge of z behind excess = z·H.
func ProveBalance(excess curve.Point, z curve.Scalar) (*BalanceProof, error) {
	k, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "sampling balance nonce")
	}
	h := Generator()
	r := h.ScalarMult(k)
	e := curve.HashToScalar("botho/commitment/balance", excess.Bytes(), r.Bytes())
	s := k.Add(e.Mul(z))
	return &BalanceProof{R: r, S: s}, nil
}

// VerifyBalance checks a BalanceProof against the claimed excess point.
func (p *BalanceProof) VerifyBalance(excess curve.Point) bool {
	h := Generator()
	e := curve.HashToScalar("botho/commitment/balance", excess.Bytes(), p.R.Bytes())
	lhs := h.ScalarMult(p.S)
	rhs := p.R.Add(excess.ScalarMult(e))
	return lhs.Equal(rhs)
}

// PseudoOutputs builds one ring-signed pseudo-output commitment per input
// amount, choosing blindings so their sum equals
// outputBlindingSum, the sum of blindings behind the transaction's real
// outputs. The last pseudo-output absorbs the remainder so the overall
// excess collapses to zero (spec.md §4.2's "fresh blinding factor per
// pseudo-output").
func PseudoOutputs(amounts []uint64, outputBlindingSum curve.Scalar) ([]curve.Point, []curve.Scalar, error) {
	if len(amounts) == 0 {
		return nil, nil, errors.New("no input amounts")
	}
	blindings := make([]curve.Scalar, len(amounts))
	points := make([]curve.Point, len(amounts))

	sum := curve.ScalarFromUint64(0)
	for i, amount := range amounts {
		var r curve.Scalar
		if i == len(amounts)-1 {
			r = outputBlindingSum.Sub(sum)
		} else {
			var err error
			r, err = curve.RandomScalar(rand.Reader)
			if err != nil {
				return nil, nil, errors.Wrap(err, "sampling pseudo-output blinding")
			}
			sum = sum.Add(r)
		}
		blindings[i] = r
		points[i] = Commit(amount, r)
	}
	return points, blindings, nil
}
