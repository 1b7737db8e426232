package keyimagestore

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/infrastructure/db"
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

func TestStageHasUnstage(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)
	keyImage := randomPoint(t)

	if spent, err := store.Has(keyImage); err != nil || spent {
		t.Fatalf("Has before stage: spent=%v err=%v", spent, err)
	}

	batch := handle.NewBatch()
	Stage(batch, keyImage)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if spent, err := store.Has(keyImage); err != nil || !spent {
		t.Fatalf("Has after stage: spent=%v err=%v", spent, err)
	}

	unstageBatch := handle.NewBatch()
	Unstage(unstageBatch, keyImage)
	if err := handle.Commit(unstageBatch); err != nil {
		t.Fatalf("Commit unstage: %v", err)
	}

	if spent, err := store.Has(keyImage); err != nil || spent {
		t.Fatalf("Has after unstage: spent=%v err=%v", spent, err)
	}
}
