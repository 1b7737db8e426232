// Package pastmediantimemanager computes a block's past median time,
// the floor a new block's timestamp must clear (spec.md §4.9), the same
// anti-timestamp-manipulation rule the teacher's pastmediantimemanager
// enforces, narrowed from a GHOSTDAG blue-window walk to a plain walk
// over the last few heights since Botho has a single linear chain.
package pastmediantimemanager

import (
	"sort"

	"github.com/botho-project/botho/domain/consensus/datastructures/blockstore"
	"github.com/pkg/errors"
)

// windowSize is the number of trailing blocks the median is taken over,
// matching the teacher's default of 2*timestampDeviationTolerance-1.
const windowSize = 11

// Manager resolves the past median time of the block that would extend
// a given tip height.
type Manager struct {
	blocks *blockstore.Store
}

// New instantiates a Manager over blocks.
func New(blocks *blockstore.Store) *Manager {
	return &Manager{blocks: blocks}
}

// PastMedianTime returns the median timestamp of the windowSize blocks
// ending at tipHeight (inclusive). A block extending tipHeight must have
// a timestamp strictly greater than this value.
func (m *Manager) PastMedianTime(tipHeight uint64) (int64, error) {
	var timestamps []int64
	start := uint64(0)
	if tipHeight+1 > windowSize {
		start = tipHeight + 1 - windowSize
	}
	for height := start; height <= tipHeight; height++ {
		block, ok, err := m.blocks.BlockByHeight(height)
		if err != nil {
			return 0, errors.Wrapf(err, "loading block at height %d", height)
		}
		if !ok {
			continue
		}
		timestamps = append(timestamps, block.Header.Timestamp)
	}
	if len(timestamps) == 0 {
		return 0, nil
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps[len(timestamps)/2], nil
}
