// Package clustertag implements the cluster-tag anti-concentration
// mechanism of spec.md §4.5: every output carries a sparse vector
// attributing its value to the coin-creation events ("clusters") it
// descends from, tags decay and mix on every transfer, and a node-wide
// cluster-wealth map drives a progressive fee curve that taxes outputs
// whose tag vector is concentrated in a single large cluster.
//
// Grounded on original_source/cluster-tax/src/{cluster.rs,transfer.rs,
// validate.rs}: ClusterWealth's signed-delta update, the tag vector's
// decay-then-mix transfer sequence, and the value-weighted fee-rate
// average are ported directly; the Rust crate's account/balance
// simulation harness is replaced with pure functions the UTXO-based
// validator and block builder call per transaction (see transfer.go).
package clustertag

// ClusterID names a coin-creation event: a new cluster is spawned by every
// PoW block reward and every governed mint (spec.md §4.5).
type ClusterID uint64

// Wealth tracks W_Ck = Σ_i (balance_i × tag_i(k)), the total value
// attributed to each cluster across the whole UTXO set. It is the input
// to the progressive fee curve (FeeCurve.RateBps).
type Wealth struct {
	byCluster map[ClusterID]uint64
}

// NewWealth returns an empty cluster-wealth map.
func NewWealth() *Wealth {
	return &Wealth{byCluster: make(map[ClusterID]uint64)}
}

// Get returns the wealth attributed to cluster, or 0 if untracked.
func (w *Wealth) Get(cluster ClusterID) uint64 {
	return w.byCluster[cluster]
}

// ApplyDelta adds delta (which may be negative) to cluster's wealth,
// clamping at zero and removing the entry once it returns to zero
// (original_source/cluster-tax/src/cluster.rs: apply_delta).
func (w *Wealth) ApplyDelta(cluster ClusterID, delta int64) {
	current := int64(w.byCluster[cluster])
	next := current + delta
	if next <= 0 {
		delete(w.byCluster, cluster)
		return
	}
	w.byCluster[cluster] = uint64(next)
}

// Set assigns wealth directly, removing the entry if wealth is zero.
func (w *Wealth) Set(cluster ClusterID, wealth uint64) {
	if wealth == 0 {
		delete(w.byCluster, cluster)
		return
	}
	w.byCluster[cluster] = wealth
}

// Len returns the number of clusters with non-zero tracked wealth.
func (w *Wealth) Len() int {
	return len(w.byCluster)
}

// Total sums wealth across every tracked cluster, useful for consistency
// checks against the ledger's total supply.
func (w *Wealth) Total() uint64 {
	var sum uint64
	for _, v := range w.byCluster {
		sum += v
	}
	return sum
}

// Each calls fn for every cluster with non-zero wealth.
func (w *Wealth) Each(fn func(cluster ClusterID, wealth uint64)) {
	for c, v := range w.byCluster {
		fn(c, v)
	}
}
