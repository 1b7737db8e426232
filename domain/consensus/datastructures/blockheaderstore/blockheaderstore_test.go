package blockheaderstore

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	handle, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	return handle
}

func randomPoint(t *testing.T) curve.Point {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return curve.ScalarBaseMult(s)
}

func TestStageGetHasUnstage(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	hash := txtypes.Hash{1}
	header := &txtypes.BlockHeader{
		Version:        1,
		PrevBlockHash:  txtypes.Hash{2},
		TxRoot:         txtypes.Hash{3},
		Timestamp:      1_700_000_000,
		Height:         4,
		Difficulty:     500,
		Nonce:          7,
		MinterViewKey:  randomPoint(t),
		MinterSpendKey: randomPoint(t),
	}

	if ok, err := store.Has(hash); err != nil || ok {
		t.Fatalf("Has before stage: ok=%v err=%v", ok, err)
	}

	batch := handle.NewBatch()
	Stage(batch, hash, header)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if ok, err := store.Has(hash); err != nil || !ok {
		t.Fatalf("Has after stage: ok=%v err=%v", ok, err)
	}

	got, ok, err := store.Get(hash)
	if err != nil || !ok {
		t.Fatalf("Get after stage: ok=%v err=%v", ok, err)
	}
	if got.Height != header.Height || got.Nonce != header.Nonce || got.TxRoot != header.TxRoot {
		t.Fatalf("Get() = %+v, want %+v", got, header)
	}

	unstageBatch := handle.NewBatch()
	Unstage(unstageBatch, hash)
	if err := handle.Commit(unstageBatch); err != nil {
		t.Fatalf("Commit unstage: %v", err)
	}

	if ok, err := store.Has(hash); err != nil || ok {
		t.Fatalf("Has after unstage: ok=%v err=%v", ok, err)
	}
}
