package utxostore

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
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

func TestStageGetUnstage(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	out := txtypes.TxOut{
		Commitment: randomPoint(t),
		TargetKey:  randomPoint(t),
		PublicKey:  randomPoint(t),
	}
	entry := externalapi.NewUTXOEntry(out, txtypes.TokenID(1), 5, false)

	batch := handle.NewBatch()
	Stage(batch, entry)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, ok, err := store.Get(out.PublicKey, out.Commitment)
	if err != nil || !ok {
		t.Fatalf("Get after stage: ok=%v err=%v", ok, err)
	}
	if !got.Equal(entry) {
		t.Fatalf("staged entry mismatch")
	}

	seen, err := store.HasOutputPublicKey(out.PublicKey)
	if err != nil || !seen {
		t.Fatalf("HasOutputPublicKey after stage: seen=%v err=%v", seen, err)
	}

	unstageBatch := handle.NewBatch()
	Unstage(unstageBatch, out.PublicKey, out.Commitment)
	if err := handle.Commit(unstageBatch); err != nil {
		t.Fatalf("Commit unstage: %v", err)
	}

	_, ok, err = store.Get(out.PublicKey, out.Commitment)
	if err != nil || ok {
		t.Fatalf("Get after unstage: ok=%v err=%v, want entry gone", ok, err)
	}

	// The seen-pubkey marker must survive the unstage: no other output
	// can legitimately reuse the same one-time public key.
	seen, err = store.HasOutputPublicKey(out.PublicKey)
	if err != nil || !seen {
		t.Fatalf("HasOutputPublicKey after unstage: seen=%v err=%v, want still true", seen, err)
	}
}

func TestGetMissingEntryReturnsNotOK(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	_, ok, err := store.Get(randomPoint(t), randomPoint(t))
	if err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}
}
