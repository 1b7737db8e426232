package merkle

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/txtypes"
)

func randomOutput(t *testing.T) txtypes.TxOut {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	p := curve.ScalarBaseMult(s)
	return txtypes.TxOut{Commitment: p, TargetKey: p, PublicKey: p}
}

func sampleTx(t *testing.T, fee uint64) txtypes.Transaction {
	t.Helper()
	return txtypes.Transaction{Version: 1, Outputs: []txtypes.TxOut{randomOutput(t)}, FeeAmount: fee}
}

func TestCalculateTxRootDeterministic(t *testing.T) {
	mint := sampleTx(t, 0)
	txs := []txtypes.Transaction{sampleTx(t, 1), sampleTx(t, 2), sampleTx(t, 3)}

	r1 := CalculateTxRoot(&mint, txs)
	r2 := CalculateTxRoot(&mint, txs)
	if r1 != r2 {
		t.Fatalf("CalculateTxRoot is not deterministic")
	}
}

func TestCalculateTxRootSensitiveToOrder(t *testing.T) {
	mint := sampleTx(t, 0)
	a, b := sampleTx(t, 1), sampleTx(t, 2)

	r1 := CalculateTxRoot(&mint, []txtypes.Transaction{a, b})
	r2 := CalculateTxRoot(&mint, []txtypes.Transaction{b, a})
	if r1 == r2 {
		t.Fatalf("expected reordering transactions to change the root")
	}
}

func TestCalculateTxRootHandlesOddCount(t *testing.T) {
	mint := sampleTx(t, 0)
	txs := []txtypes.Transaction{sampleTx(t, 1), sampleTx(t, 2), sampleTx(t, 3)}
	if (CalculateTxRoot(&mint, txs) == txtypes.Hash{}) {
		t.Fatalf("expected a non-zero root for an odd transaction count")
	}
}
