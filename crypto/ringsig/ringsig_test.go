package ringsig

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
)

func buildRing(t *testing.T, n, real int) ([]curve.Point, []curve.Point, curve.Scalar, curve.Scalar) {
	t.Helper()
	spendKeys := make([]curve.Point, n)
	commitmentDiffs := make([]curve.Point, n)
	var realSpendPriv, realCommitPriv curve.Scalar

	for i := 0; i < n; i++ {
		sp, err := curve.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("RandomScalar: %v", err)
		}
		cp, err := curve.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("RandomScalar: %v", err)
		}
		spendKeys[i] = curve.ScalarBaseMult(sp)
		commitmentDiffs[i] = rowBaseMult(1, cp)
		if i == real {
			realSpendPriv = sp
			realCommitPriv = cp
		}
	}
	return spendKeys, commitmentDiffs, realSpendPriv, realCommitPriv
}

func TestRingSignatureVerifies(t *testing.T) {
	const n = 11
	const real = 4
	spendKeys, commitmentDiffs, sp, cp := buildRing(t, n, real)

	msg := []byte("transaction-signing-hash")
	sig, err := Sign(msg, spendKeys, commitmentDiffs, real, sp, cp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(msg, spendKeys, commitmentDiffs, sig) {
		t.Fatalf("valid ring signature rejected")
	}
}

func TestRingSignatureRejectsWrongMessage(t *testing.T) {
	const n = 5
	const real = 2
	spendKeys, commitmentDiffs, sp, cp := buildRing(t, n, real)

	sig, err := Sign([]byte("original"), spendKeys, commitmentDiffs, real, sp, cp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if Verify([]byte("tampered"), spendKeys, commitmentDiffs, sig) {
		t.Fatalf("ring signature validated under the wrong message")
	}
}

func TestRingSignatureRejectsForgedMember(t *testing.T) {
	const n = 5
	const real = 2
	spendKeys, commitmentDiffs, sp, cp := buildRing(t, n, real)

	msg := []byte("transaction-signing-hash")
	sig, err := Sign(msg, spendKeys, commitmentDiffs, real, sp, cp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	forged, _ := curve.RandomScalar(rand.Reader)
	spendKeys[0] = curve.ScalarBaseMult(forged)
	if Verify(msg, spendKeys, commitmentDiffs, sig) {
		t.Fatalf("ring signature validated after swapping a ring member's key")
	}
}

func TestKeyImageDeterministicAcrossSignatures(t *testing.T) {
	const n = 5
	const real = 1
	spendKeys, commitmentDiffs, sp, cp := buildRing(t, n, real)

	sig1, err := Sign([]byte("tx-1"), spendKeys, commitmentDiffs, real, sp, cp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig2, err := Sign([]byte("tx-2"), spendKeys, commitmentDiffs, real, sp, cp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !sig1.SpendKeyImage().Equal(sig2.SpendKeyImage()) {
		t.Fatalf("same spend key produced different key images across signatures")
	}
}

func TestKeyImageDistinctForDistinctSpendKeys(t *testing.T) {
	const n = 5
	spendKeys1, commitmentDiffs1, sp1, cp1 := buildRing(t, n, 0)
	spendKeys2, commitmentDiffs2, sp2, cp2 := buildRing(t, n, 0)

	sig1, _ := Sign([]byte("m"), spendKeys1, commitmentDiffs1, 0, sp1, cp1)
	sig2, _ := Sign([]byte("m"), spendKeys2, commitmentDiffs2, 0, sp2, cp2)
	if sig1.SpendKeyImage().Equal(sig2.SpendKeyImage()) {
		t.Fatalf("distinct spend keys produced the same key image")
	}
}
