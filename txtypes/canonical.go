package txtypes

import "bytes"

// RingIsSorted reports whether a TxIn's ring is sorted ascending by
// public key with no duplicates (spec.md §4.6 item 1).
func RingIsSorted(ring []RingMember) bool {
	for i := 1; i < len(ring); i++ {
		if bytes.Compare(ring[i-1].PublicKey.Bytes(), ring[i].PublicKey.Bytes()) >= 0 {
			return false
		}
	}
	return true
}

// InputsAreSorted reports whether tx.Inputs are sorted ascending by
// their first ring member's public key.
func (tx *Transaction) InputsAreSorted() bool {
	for i := 1; i < len(tx.Inputs); i++ {
		if bytes.Compare(tx.Inputs[i-1].SortKey(), tx.Inputs[i].SortKey()) >= 0 {
			return false
		}
	}
	return true
}

// OutputsAreSorted reports whether tx.Outputs are sorted ascending by
// target public key.
func (tx *Transaction) OutputsAreSorted() bool {
	for i := 1; i < len(tx.Outputs); i++ {
		if bytes.Compare(tx.Outputs[i-1].SortKey(), tx.Outputs[i].SortKey()) >= 0 {
			return false
		}
	}
	return true
}

// KeyImagesAreSortedAndUnique reports whether tx's key images are
// sorted ascending with no duplicates (spec.md §4.6 item 1; a tx with
// a repeated key image against itself is always invalid regardless of
// the ledger's key-image set).
func (tx *Transaction) KeyImagesAreSortedAndUnique() bool {
	images := tx.KeyImages()
	for i := 1; i < len(images); i++ {
		if bytes.Compare(images[i-1].Bytes(), images[i].Bytes()) >= 0 {
			return false
		}
	}
	return true
}

// RingsAreWellFormed reports whether every input's ring has exactly
// ringSize members, sorted ascending with no duplicate public keys.
func (tx *Transaction) RingsAreWellFormed(ringSize int) bool {
	for _, in := range tx.Inputs {
		if len(in.Ring) != ringSize {
			return false
		}
		if !RingIsSorted(in.Ring) {
			return false
		}
	}
	return true
}

// ClusterTagsWellFormed reports whether a plaintext output tag vector is
// in canonical sparse form (sorted ascending by ClusterID, no duplicate
// or zero-weight entries), within maxTags stored entries, and summing to
// at most scale — the structural bound the validator checks on public
// tags before FeatureCommittedTags activates (spec.md §3, §4.6 item 6).
func ClusterTagsWellFormed(entries []ClusterTagEntry, maxTags int, scale uint64) bool {
	if len(entries) > maxTags {
		return false
	}
	var total uint64
	for i, e := range entries {
		if e.Weight == 0 {
			return false
		}
		if i > 0 && entries[i-1].Cluster >= e.Cluster {
			return false
		}
		total += e.Weight
	}
	return total <= scale
}
