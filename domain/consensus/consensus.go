// Package consensus wires the node's full block-processing pipeline
// into a single facade, mirroring the teacher's Consensus interface
// (BuildBlock/ValidateAndInsertBlock/UTXOByOutpoint over a consensus
// state manager and block processor) narrowed to Botho's linear-chain
// ledger: no DAG finality-conflict handlers, since a PoW chain with an
// SCP finality overlay (C11) has no concept of a finality conflict
// inside consensus itself.
package consensus

import (
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/stealth"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/domain/consensus/processes/blockbuilder"
	"github.com/botho-project/botho/domain/consensus/processes/blockprocessor"
	"github.com/botho-project/botho/domain/consensus/processes/consensusstatemanager"
	"github.com/botho-project/botho/domain/consensus/processes/syncmanager"
	"github.com/botho-project/botho/domain/mempool"
	"github.com/botho-project/botho/domain/miningmanager"
	"github.com/botho-project/botho/txtypes"
)

// Consensus is the node's single entry point for applying and building
// blocks.
type Consensus struct {
	stateManager *consensusstatemanager.Manager
	processor    *blockprocessor.Processor
	mining       *miningmanager.Manager
	mempool      *mempool.Pool
	sync         *syncmanager.Manager
}

// Height returns the current ledger height.
func (c *Consensus) Height() uint64 { return c.stateManager.Height() }

// TipHash returns the current tip's block hash.
func (c *Consensus) TipHash() txtypes.Hash { return c.stateManager.TipHash() }

// ValidateAndInsertBlock runs block through the full validation
// pipeline and, if it passes, applies it to the ledger.
func (c *Consensus) ValidateAndInsertBlock(block *txtypes.Block) error {
	return c.processor.ValidateAndInsertBlock(block)
}

// SubmitTransaction validates and pools a transaction for the next
// block template.
func (c *Consensus) SubmitTransaction(tx *txtypes.Transaction, blockVersion uint32) error {
	return c.mining.HandleNewTransaction(tx, blockVersion)
}

// BuildBlockTemplate assembles and solves a new block template
// extending the current tip, paying the reward to minter.
func (c *Consensus) BuildBlockTemplate(minter stealth.PublicAddress, lottery []txtypes.LotteryOutput) (*txtypes.Block, error) {
	tipHash := c.stateManager.TipHash()
	tip := blockbuilder.Tip{
		Exists:     tipHash != (txtypes.Hash{}),
		Hash:       tipHash,
		Height:     c.stateManager.Height(),
		Difficulty: c.stateManager.TipDifficulty(),
	}
	return c.mining.GetBlockTemplate(tip, minter, lottery)
}

// UTXOEntry resolves a ring member by its on-chain identity.
func (c *Consensus) UTXOEntry(publicKey, commitment curve.Point) (*externalapi.UTXOEntry, bool) {
	return c.stateManager.UTXOEntry(publicKey, commitment)
}

// Block resolves a block by its header hash.
func (c *Consensus) Block(hash txtypes.Hash) (*txtypes.Block, bool) {
	return c.stateManager.Block(hash)
}

// BlockByHeight resolves a block by its height on the canonical chain.
func (c *Consensus) BlockByHeight(height uint64) (*txtypes.Block, bool) {
	return c.stateManager.BlockByHeight(height)
}

// RangeOutputs lists up to count outputs starting at startIndex, for
// wallet-side scanning (spec.md §6 "chain_getOutputs").
func (c *Consensus) RangeOutputs(startIndex, count int) ([]*externalapi.UTXOEntry, error) {
	return c.stateManager.RangeOutputs(startIndex, count)
}

// TipDifficulty returns the current tip block's own difficulty.
func (c *Consensus) TipDifficulty() uint64 { return c.stateManager.TipDifficulty() }

// MempoolSize returns the number of transactions currently pooled.
func (c *Consensus) MempoolSize() int { return c.mempool.Count() }

// GetHashesBetween lists every block hash in (lowHeight, highHeight],
// capped at limit entries, serving a peer's block-sync request.
func (c *Consensus) GetHashesBetween(lowHeight, highHeight uint64, limit uint32) ([]txtypes.Hash, error) {
	return c.sync.GetHashesBetween(lowHeight, highHeight, limit)
}

// CreateBlockLocator returns a sparse set of hashes from the tip back
// to genesis, for locating a common ancestor with a peer.
func (c *Consensus) CreateBlockLocator() ([]txtypes.Hash, error) {
	return c.sync.CreateBlockLocator()
}

// GetSyncInfo reports this node's catch-up state relative to a peer's
// reported tip height.
func (c *Consensus) GetSyncInfo(peerTipHeight uint64) *externalapi.SyncInfo {
	return c.sync.GetSyncInfo(peerTipHeight)
}
