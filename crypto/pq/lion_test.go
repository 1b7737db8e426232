package pq

import "testing"

func buildRing(n, real int) ([]PolyVec, PolyVec) {
	ring := make([]PolyVec, n)
	var realSecret PolyVec
	for i := 0; i < n; i++ {
		seed := make([]byte, 32)
		seed[0] = byte(i + 1)
		kp := GenerateKeyPair(seed)
		ring[i] = kp.PublicKey
		if i == real {
			realSecret = kp.SecretKey
		}
	}
	return ring, realSecret
}

func TestLionRingSignatureVerifies(t *testing.T) {
	const n = RingSize
	const real = 3
	ring, secret := buildRing(n, real)

	msg := []byte("lion-transaction-hash")
	sig, err := SignRing(msg, ring, real, secret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !VerifyRing(msg, ring, sig) {
		t.Fatalf("valid Lion ring signature rejected")
	}
}

func TestLionKeyImageDeterministic(t *testing.T) {
	_, secret := buildRing(5, 0)
	kp := KeyPair{SecretKey: secret}
	if kp.KeyImage() != kp.KeyImage() {
		t.Fatalf("key image not deterministic")
	}
}

func TestLionKeyImageDistinctForDistinctKeys(t *testing.T) {
	kp1 := GenerateKeyPair([]byte("seed-one-aaaaaaaaaaaaaaaaaaaaaaaa"))
	kp2 := GenerateKeyPair([]byte("seed-two-bbbbbbbbbbbbbbbbbbbbbbbb"))
	if kp1.KeyImage() == kp2.KeyImage() {
		t.Fatalf("distinct keys produced the same key image")
	}
}

func TestLionRingSignatureRejectsTamperedMessage(t *testing.T) {
	const n = 5
	const real = 1
	ring, secret := buildRing(n, real)

	sig, err := SignRing([]byte("original"), ring, real, secret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if VerifyRing([]byte("tampered"), ring, sig) {
		t.Fatalf("Lion signature validated under a tampered message")
	}
}
