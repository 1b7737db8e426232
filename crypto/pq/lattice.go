// Package pq implements the post-quantum layer of spec.md §4.4: a hybrid
// ML-KEM-768/ML-DSA-65 authentication layer (crypto/pq's Kem/Sig wrappers
// around cloudflare/circl), plus "Lion", the lattice-based linkable ring
// signature named in spec.md §4.3/§4.4 for PQ-private transactions.
//
// Lion is grounded on original_source/crypto/lion: same ring dimension
// (N=256), modulus (Q=8380417, shared with ML-DSA/Dilithium), module rank
// (K=L=4), ring size (11), secret-key bound (ETA=2), and challenge weight
// (TAU=39). This port keeps the module-lattice commitment (w = A·y) and
// the AOS ring-chaining structure, but drops Dilithium's high/low-bit hint
// compression (a bandwidth optimization, not a soundness requirement);
// signing retries Fiat-Shamir-with-aborts rejection sampling up to
// maxAttempts times — see DESIGN.md.
package pq

import (
	"crypto/rand"

	"golang.org/x/crypto/sha3"
)

const (
	// N is the polynomial ring dimension, degree of X^N+1.
	N = 256
	// Q is the ring modulus, shared with ML-DSA for consistent security
	// margins.
	Q = 8380417
	// K is the module rank of a public key / commitment vector.
	K = 4
	// L is the module rank of a secret key / response vector.
	L = 4
	// RingSize is the fixed Lion ring size. chainparams.Params.PQRingSize
	// is a separate value that this package does not read.
	RingSize = 11
	// Eta bounds secret-key coefficients to [-Eta, Eta].
	Eta = 2
	// Tau is the number of nonzero (±1) coefficients in a challenge
	// polynomial.
	Tau = 39
	// Gamma1 bounds commitment-randomness coefficients to
	// [-(Gamma1-1), Gamma1].
	Gamma1 = 1 << 17
	// Beta = Tau*Eta bounds ||c*s||∞ for any valid challenge/secret pair.
	Beta = Tau * Eta
	// maxAttempts bounds Fiat-Shamir-with-aborts retries.
	maxAttempts = 256
)

// Poly is an element of Z_q[X]/(X^N+1), coefficients stored in [0, Q).
type Poly [N]int32

// PolyVec is a vector of polynomials (a module element).
type PolyVec []Poly

// PolyMatrix is a matrix of polynomials, rows x cols.
type PolyMatrix [][]Poly

func reduce(v int64) int32 {
	v %= Q
	if v < 0 {
		v += Q
	}
	return int32(v)
}

func polyAdd(a, b Poly) Poly {
	var out Poly
	for i := range out {
		out[i] = reduce(int64(a[i]) + int64(b[i]))
	}
	return out
}

func polySub(a, b Poly) Poly {
	var out Poly
	for i := range out {
		out[i] = reduce(int64(a[i]) - int64(b[i]))
	}
	return out
}

// polyMul computes a*b mod (X^N+1, Q) by schoolbook negacyclic convolution.
func polyMul(a, b Poly) Poly {
	var wide [2 * N]int64
	for i := 0; i < N; i++ {
		if a[i] == 0 {
			continue
		}
		for j := 0; j < N; j++ {
			wide[i+j] += int64(a[i]) * int64(b[j])
		}
	}
	var out Poly
	for i := 0; i < N; i++ {
		out[i] = reduce(wide[i] - wide[i+N])
	}
	return out
}

func vecAdd(a, b PolyVec) PolyVec {
	out := make(PolyVec, len(a))
	for i := range a {
		out[i] = polyAdd(a[i], b[i])
	}
	return out
}

func vecSub(a, b PolyVec) PolyVec {
	out := make(PolyVec, len(a))
	for i := range a {
		out[i] = polySub(a[i], b[i])
	}
	return out
}

// vecScalarPolyMul multiplies every entry of v by the same polynomial c
// (used to compute c·s for a challenge c and secret vector s).
func vecScalarPolyMul(c Poly, v PolyVec) PolyVec {
	out := make(PolyVec, len(v))
	for i := range v {
		out[i] = polyMul(c, v[i])
	}
	return out
}

// matMulVec computes A*v, A being rows x len(v).
func matMulVec(a PolyMatrix, v PolyVec) PolyVec {
	out := make(PolyVec, len(a))
	for i := range a {
		acc := Poly{}
		for j := range a[i] {
			acc = polyAdd(acc, polyMul(a[i][j], v[j]))
		}
		out[i] = acc
	}
	return out
}

func polyBytes(p Poly) []byte {
	b := make([]byte, 4*N)
	for i, c := range p {
		b[4*i] = byte(c)
		b[4*i+1] = byte(c >> 8)
		b[4*i+2] = byte(c >> 16)
		b[4*i+3] = byte(c >> 24)
	}
	return b
}

func vecBytes(v PolyVec) []byte {
	b := make([]byte, 0, len(v)*4*N)
	for _, p := range v {
		b = append(b, polyBytes(p)...)
	}
	return b
}

// shakeStream opens a SHAKE256 XOF seeded with domain-separated inputs.
func shakeStream(domain string, parts ...[]byte) sha3.ShakeHash {
	h := sha3.NewShake256()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	return h
}

// expandMatrixA deterministically derives the ring's shared public matrix
// A from a fixed protocol seed, giving every Lion keypair the same A (the
// AOS ring equation below requires it).
func expandMatrixA() PolyMatrix {
	stream := shakeStream("botho/pq/lion/matrix-A")
	a := make(PolyMatrix, K)
	buf := make([]byte, 4)
	for i := 0; i < K; i++ {
		a[i] = make([]Poly, L)
		for j := 0; j < L; j++ {
			for c := 0; c < N; c++ {
				if _, err := stream.Read(buf); err != nil {
					panic(err)
				}
				v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
				a[i][j][c] = int32(v % Q)
			}
		}
	}
	return a
}

var matrixA = expandMatrixA()

// sampleShortVec samples a secret vector of length L with coefficients in
// [-Eta, Eta], deterministically from seed.
func sampleShortVec(seed []byte) PolyVec {
	stream := shakeStream("botho/pq/lion/secret", seed)
	v := make(PolyVec, L)
	buf := make([]byte, 1)
	for i := 0; i < L; i++ {
		for c := 0; c < N; c++ {
			for {
				if _, err := stream.Read(buf); err != nil {
					panic(err)
				}
				candidate := buf[0] % 16
				if candidate <= 2*Eta {
					v[i][c] = reduce(int64(candidate) - Eta)
					break
				}
			}
		}
	}
	return v
}

// sampleYRandom samples commitment randomness uniformly from
// [-(Gamma1-1), Gamma1] using a cryptographic RNG (the real signer's
// per-attempt nonce).
func sampleYRandom() (PolyVec, error) {
	y := make(PolyVec, L)
	buf := make([]byte, 4)
	for i := 0; i < L; i++ {
		for c := 0; c < N; c++ {
			if _, err := rand.Read(buf); err != nil {
				return nil, err
			}
			v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
			centered := int64(v%(2*Gamma1)) - (Gamma1 - 1)
			y[i][c] = reduce(centered)
		}
	}
	return y, nil
}

// sampleDecoyResponse samples a non-real ring member's response directly
// within the verification bound, the "decoy response sampling" approach
// original_source/crypto/lion/src/params.rs documents via
// REJECTION_SAMPLING_MARGIN.
func sampleDecoyResponse() (PolyVec, error) {
	const margin = 100
	bound := int64(Gamma1 - Beta - margin)
	z := make(PolyVec, L)
	buf := make([]byte, 4)
	for i := 0; i < L; i++ {
		for c := 0; c < N; c++ {
			if _, err := rand.Read(buf); err != nil {
				return nil, err
			}
			v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
			centered := int64(v%uint32(2*bound)) - bound
			z[i][c] = reduce(centered)
		}
	}
	return z, nil
}

// infinityNormOK reports whether every centered coefficient of v has
// absolute value below bound.
func infinityNormOK(v PolyVec, bound int64) bool {
	for _, p := range v {
		for _, c := range p {
			centered := int64(c)
			if centered > Q/2 {
				centered -= Q
			}
			if centered < 0 {
				centered = -centered
			}
			if centered >= bound {
				return false
			}
		}
	}
	return true
}

// sampleChallenge derives a sparse challenge polynomial (Tau coefficients
// of ±1, the rest 0) from a Fiat-Shamir transcript hash.
func sampleChallenge(transcript []byte) Poly {
	stream := shakeStream("botho/pq/lion/challenge", transcript)
	var c Poly
	set := 0
	signBuf := make([]byte, 1)
	for set < Tau {
		var idxBuf [2]byte
		if _, err := stream.Read(idxBuf[:]); err != nil {
			panic(err)
		}
		idx := (uint16(idxBuf[0]) | uint16(idxBuf[1])<<8) % N
		if c[idx] != 0 {
			continue
		}
		if _, err := stream.Read(signBuf); err != nil {
			panic(err)
		}
		if signBuf[0]&1 == 0 {
			c[idx] = 1
		} else {
			c[idx] = Q - 1 // -1 mod Q
		}
		set++
	}
	return c
}
