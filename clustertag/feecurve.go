package clustertag

import "sort"

// Breakpoint is one step of a progressive fee curve: clusters with
// tracked wealth at or above WealthFloor pay RateBps basis points.
type Breakpoint struct {
	WealthFloor uint64
	RateBps     uint64
}

// FeeCurve maps a cluster's tracked wealth to a progressive fee rate:
// small, freshly-diversified clusters pay close to BackgroundRateBps,
// while a cluster that has concentrated a large share of supply pays a
// steadily higher rate, taxing concentration rather than velocity.
//
// original_source/cluster-tax/src/fee_curve.rs is absent from the
// retrieved pack (transfer.rs imports FeeCurve/FeeRateBps from it but
// the file was filtered from the snapshot); the breakpoint-table shape
// below is inferred from transfer.rs's `fee_curve.rate_bps(wealth)` /
// `fee_curve.background_rate_bps` call sites and spec.md §4.5's
// description of a monotonic progressive curve.
type FeeCurve struct {
	// BackgroundRateBps is the rate charged against a vector's implicit
	// background weight and used whenever a tag vector has no tracked
	// clusters at all.
	BackgroundRateBps uint64
	// Breakpoints must be sorted ascending by WealthFloor; RateBps must
	// be non-decreasing. Breakpoints[0].WealthFloor should be 0 so every
	// wealth value resolves to a rate.
	Breakpoints []Breakpoint
}

// DefaultFeeCurve is a gentle progressive schedule: 10 bps up to 1% of
// a 1e18-picocredit reference supply, climbing to 500 bps (5%) once a
// single cluster holds more than a quarter of that reference supply.
var DefaultFeeCurve = FeeCurve{
	BackgroundRateBps: 10,
	Breakpoints: []Breakpoint{
		{WealthFloor: 0, RateBps: 10},
		{WealthFloor: 10_000_000_000_000_000, RateBps: 25},
		{WealthFloor: 50_000_000_000_000_000, RateBps: 75},
		{WealthFloor: 100_000_000_000_000_000, RateBps: 200},
		{WealthFloor: 250_000_000_000_000_000, RateBps: 500},
	},
}

// RateBps returns the fee rate for a cluster holding wealth, the
// highest breakpoint whose WealthFloor does not exceed wealth.
func (c FeeCurve) RateBps(wealth uint64) uint64 {
	if len(c.Breakpoints) == 0 {
		return c.BackgroundRateBps
	}
	rate := c.Breakpoints[0].RateBps
	idx := sort.Search(len(c.Breakpoints), func(i int) bool {
		return c.Breakpoints[i].WealthFloor > wealth
	})
	if idx > 0 {
		rate = c.Breakpoints[idx-1].RateBps
	}
	return rate
}

// EffectiveRateBps computes a tag vector's value-weighted average fee
// rate: each tracked cluster contributes its curve rate weighted by its
// tag weight, and the implicit background share contributes
// BackgroundRateBps weighted by its own share
// (original_source/cluster-tax/src/transfer.rs: Account::effective_fee_rate).
func (c FeeCurve) EffectiveRateBps(tags *Vector, wealth *Wealth, scale uint64) uint64 {
	var weightedRate, totalWeight uint64

	tags.Each(func(cluster ClusterID, weight uint64) {
		rate := c.RateBps(wealth.Get(cluster))
		weightedRate += rate * weight
		totalWeight += weight
	})

	background := tags.Background(scale)
	weightedRate += c.BackgroundRateBps * background
	totalWeight += background

	if totalWeight == 0 {
		return c.BackgroundRateBps
	}
	return weightedRate / totalWeight
}
