package clustertag

import "testing"

func TestWealthApplyDeltaClampsAtZero(t *testing.T) {
	w := NewWealth()
	w.ApplyDelta(1, 100)
	if got := w.Get(1); got != 100 {
		t.Fatalf("Get(1) = %d, want 100", got)
	}

	w.ApplyDelta(1, -150)
	if got := w.Get(1); got != 0 {
		t.Fatalf("Get(1) after over-subtracting = %d, want 0", got)
	}
	if w.Len() != 0 {
		t.Fatalf("expected zeroed entry to be removed, Len() = %d", w.Len())
	}
}

func TestWealthSetRemovesZero(t *testing.T) {
	w := NewWealth()
	w.Set(2, 500)
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", w.Len())
	}
	w.Set(2, 0)
	if w.Len() != 0 {
		t.Fatalf("Set(2, 0) should remove the entry, Len() = %d", w.Len())
	}
}

func TestWealthTotalSumsAllClusters(t *testing.T) {
	w := NewWealth()
	w.ApplyDelta(1, 100)
	w.ApplyDelta(2, 250)
	w.ApplyDelta(3, 75)
	if got := w.Total(); got != 425 {
		t.Fatalf("Total() = %d, want 425", got)
	}
}

func TestWealthEachVisitsOnlyNonZero(t *testing.T) {
	w := NewWealth()
	w.ApplyDelta(1, 10)
	w.ApplyDelta(2, -10)

	seen := make(map[ClusterID]uint64)
	w.Each(func(c ClusterID, wealth uint64) { seen[c] = wealth })
	if len(seen) != 1 || seen[1] != 10 {
		t.Fatalf("Each visited %v, want only cluster 1 with 10", seen)
	}
}
