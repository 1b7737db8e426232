package hashserialization

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/ringsig"
	"github.com/botho-project/botho/txtypes"
)

func randomPoint(t *testing.T) curve.Point {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return curve.ScalarBaseMult(s)
}

func sampleTransaction(t *testing.T) *txtypes.Transaction {
	t.Helper()
	return &txtypes.Transaction{
		Version: 1,
		Outputs: []txtypes.TxOut{
			{
				Commitment: randomPoint(t),
				TargetKey:  randomPoint(t),
				PublicKey:  randomPoint(t),
			},
		},
		FeeAmount:      10_000_000,
		FeeTokenID:     0,
		TombstoneBlock: 1000,
	}
}

func TestTransactionHashIsDeterministic(t *testing.T) {
	tx := sampleTransaction(t)
	h1 := TransactionHash(tx)
	h2 := TransactionHash(tx)
	if h1 != h2 {
		t.Fatalf("TransactionHash is not deterministic: %x != %x", h1, h2)
	}
}

func TestTransactionHashChangesWithFee(t *testing.T) {
	tx1 := sampleTransaction(t)
	tx2 := sampleTransaction(t)
	tx2.Outputs = tx1.Outputs
	tx2.FeeAmount = tx1.FeeAmount + 1

	if TransactionHash(tx1) == TransactionHash(tx2) {
		t.Fatalf("expected different fees to produce different hashes")
	}
}

func TestSigningHashIndependentOfSignatures(t *testing.T) {
	tx := sampleTransaction(t)
	tx.Inputs = []txtypes.TxIn{{
		Ring: []txtypes.RingMember{
			{PublicKey: randomPoint(t), Commitment: randomPoint(t)},
		},
		KeyImage: randomPoint(t),
	}}

	before := TransactionSigningHash(tx)

	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	sig := &ringsig.Signature{C0: s, S: [][2]curve.Scalar{{s, s}}}
	sig.KeyImages[0] = randomPoint(t)
	sig.KeyImages[1] = randomPoint(t)
	tx.Inputs[0].Signature = sig

	after := TransactionSigningHash(tx)
	if before != after {
		t.Fatalf("signing hash changed after attaching a signature")
	}
	if TransactionHash(tx) == before {
		t.Fatalf("full hash should differ from the signing hash once a signature is attached")
	}
}
