package pq

import (
	"github.com/pkg/errors"
)

// KeyPair is a Lion ring-signature keypair: SecretKey is sampled short
// (coefficients in [-Eta, Eta]); PublicKey = A·SecretKey mod (X^N+1, Q).
type KeyPair struct {
	SecretKey PolyVec
	PublicKey PolyVec
}

// GenerateKeyPair derives a Lion keypair from a 32-byte seed (spec.md
// §4.4: wallets derive PQ keys via HKDF from a single mnemonic seed).
func GenerateKeyPair(seed []byte) KeyPair {
	sk := sampleShortVec(seed)
	pk := matMulVec(matrixA, sk)
	return KeyPair{SecretKey: sk, PublicKey: pk}
}

// KeyImage returns the deterministic linkability tag for a secret key:
// same secret key always yields the same image, distinct secret keys
// (overwhelmingly) yield distinct images.
func (kp KeyPair) KeyImage() [32]byte {
	stream := shakeStream("botho/pq/lion/key-image", vecBytes(kp.SecretKey))
	var out [32]byte
	if _, err := stream.Read(out[:]); err != nil {
		panic(err)
	}
	return out
}

// Signature is a Lion ring signature over RingSize public keys.
type Signature struct {
	C0        Poly
	Responses []PolyVec
	KeyImage  [32]byte
}

func ringTranscriptChallenge(message []byte, ring []PolyVec, w PolyVec) Poly {
	parts := make([][]byte, 0, len(ring)+2)
	parts = append(parts, message)
	for _, pk := range ring {
		parts = append(parts, vecBytes(pk))
	}
	parts = append(parts, vecBytes(w))
	h := shakeStream("botho/pq/lion/ring-challenge", parts...)
	buf := make([]byte, 64)
	if _, err := h.Read(buf); err != nil {
		panic(err)
	}
	return sampleChallenge(buf)
}

// SignRing produces a Lion ring signature of message, proving knowledge of the
// secret key behind ring[real] without revealing real.
func SignRing(message []byte, ring []PolyVec, real int, secretKey PolyVec) (*Signature, error) {
	n := len(ring)
	if n == 0 {
		return nil, errors.New("empty ring")
	}
	if real < 0 || real >= n {
		return nil, errors.New("real index out of range")
	}

	keyImage := KeyPair{SecretKey: secretKey}.KeyImage()
	bound := int64(Gamma1 - Beta)

	for attempt := 0; ; attempt++ {
		if attempt >= maxAttempts {
			return nil, errors.New("exceeded rejection-sampling attempts")
		}

		y, err := sampleYRandom()
		if err != nil {
			return nil, errors.Wrap(err, "sampling commitment randomness")
		}

		responses := make([]PolyVec, n)
		c := make([]Poly, n)

		commitment := matMulVec(matrixA, y)
		c[(real+1)%n] = ringTranscriptChallenge(message, ring, commitment)

		for step := 1; step < n; step++ {
			i := (real + step) % n
			next := (i + 1) % n

			z, err := sampleDecoyResponse()
			if err != nil {
				return nil, errors.Wrap(err, "sampling decoy response")
			}
			responses[i] = z

			az := matMulVec(matrixA, z)
			ct := vecScalarPolyMul(c[i], ring[i])
			w := vecSub(az, ct)
			c[next] = ringTranscriptChallenge(message, ring, w)
		}

		candidate := vecAdd(y, vecScalarPolyMul(c[real], secretKey))
		if !infinityNormOK(candidate, bound) {
			continue
		}
		responses[real] = candidate

		return &Signature{
			C0:        c[0],
			Responses: responses,
			KeyImage:  keyImage,
		}, nil
	}
}

// VerifyRing checks a Lion ring signature. Note: for the chain to close at
// index 0 regardless of which member was real, C0 must be the challenge
// that verification produces right before wrapping back to ring index 0;
// Verify recomputes the whole chain starting from C0 at index 0.
func VerifyRing(message []byte, ring []PolyVec, sig *Signature) bool {
	n := len(ring)
	if n == 0 || len(sig.Responses) != n {
		return false
	}
	bound := int64(Gamma1 - Beta)
	for _, z := range sig.Responses {
		if !infinityNormOK(z, bound) {
			return false
		}
	}

	c := sig.C0
	for i := 0; i < n; i++ {
		az := matMulVec(matrixA, sig.Responses[i])
		ct := vecScalarPolyMul(c, ring[i])
		w := vecSub(az, ct)
		next := ringTranscriptChallenge(message, ring, w)
		if i == n-1 {
			return next.Equal(sig.C0)
		}
		c = next
	}
	return false
}

// Equal reports whether two challenge polynomials are identical.
func (p Poly) Equal(other Poly) bool {
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
