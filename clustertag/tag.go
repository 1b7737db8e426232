package clustertag

import (
	"math/big"
	"sort"
)

// Vector is a sparse attribution vector: for each tracked cluster it
// stores a weight on a TagWeightScale fixed-point scale (1_000_000 ==
// 100% of the output's value). Weight not attributed to any tracked
// cluster is implicit "background" weight — untraceable or fully-decayed
// provenance — so a Vector is always conceptually complete without
// needing an explicit background entry.
//
// original_source/cluster-tax/src/tag.rs is absent from the retrieved
// pack (transfer.rs and validate.rs import it but it was filtered from
// the snapshot); this type is therefore designed fresh from its call
// sites in transfer.rs (New, Single, iter, background, apply_decay, mix)
// plus spec.md §4.5 and chainparams.Params' MaxTags/TagWeightScale/
// MinStoredWeight fields, in the teacher's idiom rather than translated.
type Vector struct {
	weights map[ClusterID]uint64
}

// New returns an empty tag vector: 100% background weight.
func New() *Vector {
	return &Vector{weights: make(map[ClusterID]uint64)}
}

// Single returns a tag vector fully attributed to one cluster, the shape
// a freshly PoW-minted or governed-minted output starts with.
func Single(cluster ClusterID, scale uint64) *Vector {
	return &Vector{weights: map[ClusterID]uint64{cluster: scale}}
}

// Clone returns a deep copy.
func (v *Vector) Clone() *Vector {
	out := make(map[ClusterID]uint64, len(v.weights))
	for c, w := range v.weights {
		out[c] = w
	}
	return &Vector{weights: out}
}

// SetForDecoding sets cluster's weight directly, bypassing decay/mix
// bookkeeping. Used only to reconstruct a Vector from its canonical
// wire form (txtypes.ToVector); all other mutation goes through
// ApplyDecay/Mix so transfer invariants stay enforced.
func (v *Vector) SetForDecoding(cluster ClusterID, weight uint64) {
	if weight == 0 {
		delete(v.weights, cluster)
		return
	}
	v.weights[cluster] = weight
}

// Get returns cluster's stored weight, or 0 if it is not tracked
// (meaning its weight has either never existed or decayed into
// background).
func (v *Vector) Get(cluster ClusterID) uint64 {
	return v.weights[cluster]
}

// Len returns the number of tracked (non-background) clusters.
func (v *Vector) Len() int {
	return len(v.weights)
}

// Each calls fn for every tracked cluster in ascending ClusterID order,
// so callers that need deterministic iteration (hashing, serialization)
// don't have to sort themselves.
func (v *Vector) Each(fn func(cluster ClusterID, weight uint64)) {
	ids := make([]ClusterID, 0, len(v.weights))
	for c := range v.weights {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, c := range ids {
		fn(c, v.weights[c])
	}
}

// trackedWeight sums all tracked weights.
func (v *Vector) trackedWeight() uint64 {
	var sum uint64
	for _, w := range v.weights {
		sum += w
	}
	return sum
}

// Background returns the implicit background weight: scale minus
// everything tracked, floored at 0 against rounding error.
func (v *Vector) Background(scale uint64) uint64 {
	tracked := v.trackedWeight()
	if tracked >= scale {
		return 0
	}
	return scale - tracked
}

// prune removes tracked entries below minStoredWeight, letting their
// weight fall back into the implicit background bucket, then — if still
// over maxTags — drops the smallest remaining entries until the count
// fits (spec.md §4.5's MaxTags bound on on-chain tag-vector size).
func (v *Vector) prune(maxTags int, minStoredWeight uint64) {
	for c, w := range v.weights {
		if w < minStoredWeight {
			delete(v.weights, c)
		}
	}
	if len(v.weights) <= maxTags {
		return
	}
	type kv struct {
		id     ClusterID
		weight uint64
	}
	all := make([]kv, 0, len(v.weights))
	for c, w := range v.weights {
		all = append(all, kv{c, w})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].weight < all[j].weight })
	excess := len(all) - maxTags
	for i := 0; i < excess; i++ {
		delete(v.weights, all[i].id)
	}
}

// ApplyDecay multiplies every tracked weight by
// (1_000_000-rateMille)/1_000_000, in place, widening the implicit
// background share by the remainder
// (original_source/cluster-tax/src/transfer.rs: TagVector::apply_decay,
// called on the sender's cloned tags before they travel to the
// receiver). rateMille is expressed in parts per million (50_000 == 5%),
// matching chainparams.Params.DecayRatePerMille.
func (v *Vector) ApplyDecay(rateMille uint64) {
	if rateMille == 0 {
		return
	}
	if rateMille > 1_000_000 {
		rateMille = 1_000_000
	}
	keep := uint64(1_000_000) - rateMille
	for c, w := range v.weights {
		next := mulDiv(w, keep, 1_000_000)
		if next == 0 {
			delete(v.weights, c)
			continue
		}
		v.weights[c] = next
	}
}

// Mix folds incoming (already decayed, representing incomingAmount of
// value) into the receiver's existing tag vector, which represented
// balanceBefore of value prior to the transfer arriving. Every weight —
// tracked and implicit background alike — is blended by relative value,
// so a receiver with a large existing balance isn't swamped by a small
// incoming transfer's provenance and vice versa
// (original_source/cluster-tax/src/transfer.rs: TagVector::mix).
func Mix(balanceBefore uint64, receiver *Vector, incoming *Vector, incomingAmount uint64, scale uint64, maxTags int, minStoredWeight uint64) *Vector {
	total := balanceBefore + incomingAmount
	if total == 0 {
		return New()
	}

	merged := make(map[ClusterID]uint64)
	if receiver != nil {
		receiver.Each(func(cluster ClusterID, weight uint64) {
			merged[cluster] += mulDiv(weight, balanceBefore, total)
		})
	}
	if incoming != nil {
		incoming.Each(func(cluster ClusterID, weight uint64) {
			merged[cluster] += mulDiv(weight, incomingAmount, total)
		})
	}

	out := &Vector{weights: merged}
	out.prune(maxTags, minStoredWeight)
	return out
}

// mulDiv computes weight * amount / total on the TagWeightScale fixed
// point. weight*amount can exceed uint64 range when amount is a large
// picocredit total, so the intermediate product is computed in
// math/big and only the final (bounded) quotient is narrowed back.
func mulDiv(weight, amount, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	product := new(big.Int).Mul(new(big.Int).SetUint64(weight), new(big.Int).SetUint64(amount))
	product.Div(product, new(big.Int).SetUint64(total))
	return product.Uint64()
}
