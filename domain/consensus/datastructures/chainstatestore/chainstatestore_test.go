package chainstatestore

import (
	"testing"

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

func TestLoadEmptyStoreReturnsNil(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state != nil {
		t.Fatalf("Load on empty store = %+v, want nil", state)
	}
}

func TestStageThenLoadRoundTrips(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	want := &State{
		TipHash:               txtypes.Hash{1, 2, 3},
		Height:                9,
		AccumulatedDifficulty: 12345,
		BlockVersion:          2,
	}

	batch := handle.NewBatch()
	Stage(batch, want)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || *got != *want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestClearRemovesTip(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	batch := handle.NewBatch()
	Stage(batch, &State{TipHash: txtypes.Hash{9}, Height: 1})
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	clearBatch := handle.NewBatch()
	Clear(clearBatch)
	if err := handle.Commit(clearBatch); err != nil {
		t.Fatalf("Commit clear: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load after clear: %v", err)
	}
	if got != nil {
		t.Fatalf("Load after clear = %+v, want nil", got)
	}
}
