// Package syncmanager supports block sync between Botho nodes: walking
// a height range for a peer's catch-up request, and building a block
// locator so two nodes can find their common ancestor (spec.md §5.12).
//
// Grounded on the teacher's syncmanager (GetHashesBetween/
// CreateBlockLocator over a DAG's blue-score order), narrowed to a
// linear chain where height alone is the canonical order, so the
// locator is a plain exponential step-back over heights rather than a
// DAG traversal.
package syncmanager

import (
	"github.com/botho-project/botho/domain/consensus/datastructures/blockstore"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/domain/consensus/processes/consensusstatemanager"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Manager answers sync-protocol queries against the local ledger.
type Manager struct {
	blocks       *blockstore.Store
	stateManager *consensusstatemanager.Manager
}

// New instantiates a Manager.
func New(blocks *blockstore.Store, stateManager *consensusstatemanager.Manager) *Manager {
	return &Manager{blocks: blocks, stateManager: stateManager}
}

// GetHashesBetween returns every block hash in (lowHeight, highHeight],
// capped at limit entries, the shape a peer's "send me what I'm
// missing" request needs.
func (m *Manager) GetHashesBetween(lowHeight, highHeight uint64, limit uint32) ([]txtypes.Hash, error) {
	if highHeight <= lowHeight {
		return nil, nil
	}
	var hashes []txtypes.Hash
	for height := lowHeight + 1; height <= highHeight; height++ {
		if limit > 0 && uint32(len(hashes)) >= limit {
			break
		}
		block, ok, err := m.blocks.BlockByHeight(height)
		if err != nil {
			return nil, errors.Wrapf(err, "loading block at height %d", height)
		}
		if !ok {
			break
		}
		hashes = append(hashes, hashserialization.HeaderHash(&block.Header))
	}
	return hashes, nil
}

// GetMissingBlockBodyHashes returns every hash between the local tip and
// highHeight, the bodies a node still needs once it has validated
// headers up to highHeight.
func (m *Manager) GetMissingBlockBodyHashes(highHeight uint64) ([]txtypes.Hash, error) {
	return m.GetHashesBetween(m.stateManager.Height(), highHeight, 0)
}

// CreateBlockLocator returns a sparse, exponentially-spaced list of
// block hashes from the local tip back to genesis: the first ten at
// consecutive heights, then doubling the step each entry after that,
// the same shape the teacher's block locator uses so that two diverging
// chains can binary-search their fork point in O(log n) round trips.
func (m *Manager) CreateBlockLocator() ([]txtypes.Hash, error) {
	tipHeight := m.stateManager.Height()

	var locator []txtypes.Hash
	step := uint64(1)
	height := tipHeight
	for {
		block, ok, err := m.blocks.BlockByHeight(height)
		if err != nil {
			return nil, errors.Wrapf(err, "loading block at height %d", height)
		}
		if ok {
			locator = append(locator, hashserialization.HeaderHash(&block.Header))
		}
		if height == 0 {
			break
		}
		if len(locator) >= 10 {
			step *= 2
		}
		if height < step {
			height = 0
		} else {
			height -= step
		}
	}
	return locator, nil
}

// GetSyncInfo reports whether the local ledger is caught up: Botho has
// no headers-first mode, so the only two states that matter are
// "normal" (fully synced, able to accept new blocks) and
// "missing block bodies" (still catching up from a snapshot or peer).
func (m *Manager) GetSyncInfo(peerTipHeight uint64) *externalapi.SyncInfo {
	if peerTipHeight > m.stateManager.Height() {
		return &externalapi.SyncInfo{State: externalapi.SyncStateMissingBlockBodies}
	}
	return &externalapi.SyncInfo{State: externalapi.SyncStateNormal}
}
