package clustertag

import "testing"

const scale = 1_000_000

func TestSingleIsFullyAttributed(t *testing.T) {
	v := Single(7, scale)
	if v.Get(7) != scale {
		t.Fatalf("Get(7) = %d, want %d", v.Get(7), scale)
	}
	if v.Background(scale) != 0 {
		t.Fatalf("Background() = %d, want 0", v.Background(scale))
	}
}

func TestNewVectorIsAllBackground(t *testing.T) {
	v := New()
	if v.Background(scale) != scale {
		t.Fatalf("Background() = %d, want %d", v.Background(scale), scale)
	}
	if v.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", v.Len())
	}
}

func TestApplyDecayShrinksTrackedWeightIntoBackground(t *testing.T) {
	v := Single(1, scale)
	v.ApplyDecay(50_000) // 5%

	want := scale * 950 / 1000
	if got := v.Get(1); got != want {
		t.Fatalf("Get(1) after decay = %d, want %d", got, want)
	}
	if bg := v.Background(scale); bg != scale-want {
		t.Fatalf("Background() after decay = %d, want %d", bg, scale-want)
	}
}

func TestApplyDecayRemovesWeightBelowOne(t *testing.T) {
	v := &Vector{weights: map[ClusterID]uint64{1: 1}}
	v.ApplyDecay(500) // 0.05%: 1*999_500/1_000_000 == 0
	if v.Get(1) != 0 || v.Len() != 0 {
		t.Fatalf("expected fully decayed dust entry to be pruned, got %+v", v.weights)
	}
}

func TestPruneDropsBelowMinStoredWeight(t *testing.T) {
	v := &Vector{weights: map[ClusterID]uint64{
		1: 500,
		2: 2_000,
	}}
	v.prune(16, 1_000)
	if _, ok := v.weights[1]; ok {
		t.Fatalf("cluster 1 should have been pruned below MinStoredWeight")
	}
	if v.Get(2) != 2_000 {
		t.Fatalf("cluster 2 should survive pruning, got %d", v.Get(2))
	}
}

func TestPruneEnforcesMaxTags(t *testing.T) {
	v := &Vector{weights: map[ClusterID]uint64{
		1: 10_000,
		2: 20_000,
		3: 30_000,
	}}
	v.prune(2, 0)
	if v.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", v.Len())
	}
	if _, ok := v.weights[1]; ok {
		t.Fatalf("smallest entry should have been dropped to respect MaxTags")
	}
}

func TestMixIsValueWeighted(t *testing.T) {
	receiver := Single(1, scale) // receiver's existing balance, all cluster 1
	incoming := Single(2, scale) // incoming transfer, all cluster 2

	// Receiver has 3x the value of the incoming transfer: cluster 1
	// should end up with roughly 3x cluster 2's weight.
	merged := Mix(300, receiver, incoming, 100, scale, 16, 0)

	c1, c2 := merged.Get(1), merged.Get(2)
	if c1 == 0 || c2 == 0 {
		t.Fatalf("expected both clusters represented, got c1=%d c2=%d", c1, c2)
	}
	if c1 <= c2 {
		t.Fatalf("expected cluster 1 (larger prior balance) to dominate, got c1=%d c2=%d", c1, c2)
	}
}

func TestMixOfEmptyReceiverEqualsIncoming(t *testing.T) {
	incoming := Single(5, scale)
	merged := Mix(0, New(), incoming, 100, scale, 16, 0)
	if merged.Get(5) != scale {
		t.Fatalf("Get(5) = %d, want %d", merged.Get(5), scale)
	}
}

func TestMixOfZeroTotalReturnsEmptyVector(t *testing.T) {
	merged := Mix(0, New(), New(), 0, scale, 16, 0)
	if merged.Background(scale) != scale {
		t.Fatalf("expected all-background result for a zero-value mix")
	}
}
