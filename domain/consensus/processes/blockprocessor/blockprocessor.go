// Package blockprocessor is the single entry point incoming blocks (own
// or a peer's) pass through before they reach the ledger: header
// validation, minting-transaction shape, then the ledger append itself,
// mirroring the teacher's blockProcessor.ValidateAndInsertBlock
// pipeline (validatePreProofOfWork -> ValidateProofOfWork ->
// validatePostProofOfWork -> AddBlockToVirtual) narrowed to a linear
// chain with no pruning point or reachability tree to maintain.
package blockprocessor

import (
	"github.com/botho-project/botho/domain/consensus/processes/blockvalidator"
	"github.com/botho-project/botho/domain/consensus/processes/consensusstatemanager"
	"github.com/botho-project/botho/domain/mempool"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Processor validates and applies incoming blocks.
type Processor struct {
	validator    *blockvalidator.Validator
	stateManager *consensusstatemanager.Manager
	mempool      *mempool.Pool
}

// New instantiates a Processor.
func New(validator *blockvalidator.Validator, stateManager *consensusstatemanager.Manager, pool *mempool.Pool) *Processor {
	return &Processor{validator: validator, stateManager: stateManager, mempool: pool}
}

// ValidateAndInsertBlock runs every check in blockvalidator against
// block, applies it to the ledger if they all pass, then evicts its
// transactions from the mempool. If any check fails the ledger is left
// untouched: AppendBlock only runs once header and minting-transaction
// validation have both already passed, so a rejected block never
// partially mutates the stores.
func (p *Processor) ValidateAndInsertBlock(block *txtypes.Block) error {
	if err := p.validator.ValidateHeaderInIsolation(&block.Header); err != nil {
		return errors.Wrap(err, "header in isolation")
	}

	tipHeight := p.stateManager.Height()
	tipDifficulty := p.stateManager.TipDifficulty()
	if err := p.validator.ValidateHeaderInContext(&block.Header, tipHeight, tipDifficulty); err != nil {
		return errors.Wrap(err, "header in context")
	}

	if err := p.validator.ValidateMintingTransaction(&block.MintingTx, block.Header.Version); err != nil {
		return errors.Wrap(err, "minting transaction")
	}

	if err := p.stateManager.AppendBlock(block); err != nil {
		return errors.Wrap(err, "appending block")
	}

	p.mempool.RemoveMined(block)
	p.mempool.ExpireTombstoned(block.Header.Height)

	return nil
}
