package clustertag

import "testing"

func TestRateBpsMonotonicWithWealth(t *testing.T) {
	curve := DefaultFeeCurve
	prev := uint64(0)
	wealths := []uint64{0, 1, 10_000_000_000_000_000, 50_000_000_000_000_000, 100_000_000_000_000_000, 250_000_000_000_000_000, 1_000_000_000_000_000_000}
	for _, w := range wealths {
		rate := curve.RateBps(w)
		if rate < prev {
			t.Fatalf("RateBps(%d) = %d, want >= previous breakpoint rate %d", w, rate, prev)
		}
		prev = rate
	}
}

func TestEffectiveRateBpsAllBackground(t *testing.T) {
	curve := DefaultFeeCurve
	wealth := NewWealth()
	rate := curve.EffectiveRateBps(New(), wealth, scale)
	if rate != curve.BackgroundRateBps {
		t.Fatalf("EffectiveRateBps() = %d, want background rate %d", rate, curve.BackgroundRateBps)
	}
}

func TestEffectiveRateBpsReflectsConcentratedCluster(t *testing.T) {
	curve := DefaultFeeCurve
	wealth := NewWealth()
	wealth.Set(1, 300_000_000_000_000_000) // deep into the high-rate breakpoints

	tags := Single(1, scale)
	rate := curve.EffectiveRateBps(tags, wealth, scale)
	if rate != curve.RateBps(300_000_000_000_000_000) {
		t.Fatalf("EffectiveRateBps() = %d, want %d", rate, curve.RateBps(300_000_000_000_000_000))
	}
	if rate <= curve.BackgroundRateBps {
		t.Fatalf("concentrated cluster should pay above background rate, got %d", rate)
	}
}
