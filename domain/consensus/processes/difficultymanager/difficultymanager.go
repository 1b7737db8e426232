// Package difficultymanager retargets PoW difficulty every
// DifficultyAdjustmentWindowSize blocks, clamped to
// [1/DifficultyClampFactor, DifficultyClampFactor] of the previous
// difficulty (spec.md §4.9).
//
// Grounded on the teacher's difficultymanager (which retargeted over a
// GHOSTDAG blue-work window); retargeted here over a plain linear
// height window since Botho has no blue score, just one block per
// height.
package difficultymanager

import (
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/datastructures/blockstore"
	"github.com/pkg/errors"
)

// Manager computes the required difficulty for the block that extends
// the current tip.
type Manager struct {
	blocks *blockstore.Store
	params *chainparams.Params
}

// New instantiates a difficulty Manager over blocks.
func New(blocks *blockstore.Store, params *chainparams.Params) *Manager {
	return &Manager{blocks: blocks, params: params}
}

// RequiredDifficulty returns the difficulty a block at nextHeight must
// satisfy, given that the current tip is at tipHeight with
// tipDifficulty. Before the window fills (nextHeight is not a retarget
// boundary) it simply repeats tipDifficulty, matching the teacher's
// "only retarget every N blocks" cadence.
func (m *Manager) RequiredDifficulty(nextHeight uint64, tipDifficulty uint64) (uint64, error) {
	window := m.params.DifficultyAdjustmentWindowSize
	if window == 0 {
		return tipDifficulty, nil
	}
	if nextHeight == 0 {
		return initialDifficulty(m.params), nil
	}
	if nextHeight%window != 0 {
		return tipDifficulty, nil
	}

	windowStartHeight := nextHeight - window
	startBlock, ok, err := m.blocks.BlockByHeight(windowStartHeight)
	if err != nil {
		return 0, errors.Wrapf(err, "loading retarget window start at height %d", windowStartHeight)
	}
	if !ok {
		return tipDifficulty, nil
	}
	endBlock, ok, err := m.blocks.BlockByHeight(nextHeight - 1)
	if err != nil {
		return 0, errors.Wrapf(err, "loading retarget window end at height %d", nextHeight-1)
	}
	if !ok {
		return tipDifficulty, nil
	}

	actualSpan := endBlock.Header.Timestamp - startBlock.Header.Timestamp
	targetSpan := int64(window) * int64(m.params.TargetTimePerBlock.Seconds())
	if actualSpan <= 0 {
		actualSpan = 1
	}

	adjusted := float64(tipDifficulty) * float64(targetSpan) / float64(actualSpan)

	clampFactor := m.params.DifficultyClampFactor
	if clampFactor <= 0 {
		clampFactor = 4
	}
	minAllowed := float64(tipDifficulty) / clampFactor
	maxAllowed := float64(tipDifficulty) * clampFactor
	if adjusted < minAllowed {
		adjusted = minAllowed
	}
	if adjusted > maxAllowed {
		adjusted = maxAllowed
	}

	result := uint64(adjusted)
	if result == 0 {
		result = 1
	}
	return result, nil
}

// initialDifficulty is the genesis block's fixed starting difficulty,
// low enough that PowMax's implied target is never exceeded.
func initialDifficulty(params *chainparams.Params) uint64 {
	_ = params
	return 1
}
