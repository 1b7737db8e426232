package clusterwealthstore

import (
	"testing"

	"github.com/botho-project/botho/clustertag"
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

func TestLoadEmptyStoreReturnsEmptyWealth(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	wealth, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if wealth.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", wealth.Len())
	}
}

func TestStageThenLoadRoundTrips(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	batch := handle.NewBatch()
	Stage(batch, clustertag.ClusterID(1), 1000)
	Stage(batch, clustertag.ClusterID(2), 2000)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	wealth, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if wealth.Get(1) != 1000 || wealth.Get(2) != 2000 {
		t.Fatalf("loaded wealth mismatch: cluster1=%d cluster2=%d", wealth.Get(1), wealth.Get(2))
	}
}

func TestStageZeroRemovesEntry(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	batch := handle.NewBatch()
	Stage(batch, clustertag.ClusterID(3), 500)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	zeroBatch := handle.NewBatch()
	Stage(zeroBatch, clustertag.ClusterID(3), 0)
	if err := handle.Commit(zeroBatch); err != nil {
		t.Fatalf("Commit zero: %v", err)
	}

	wealth, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if wealth.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after zeroing the only cluster", wealth.Len())
	}
}
