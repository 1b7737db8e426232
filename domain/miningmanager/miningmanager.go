// Package miningmanager is the node's public mining surface: submitting
// transactions to the mempool and pulling a solved block template,
// mirroring the teacher's miningmanager facade over its mempool +
// blocktemplatebuilder pair, narrowed to Botho's single concrete
// blockbuilder rather than a pluggable template-builder interface.
package miningmanager

import (
	"github.com/botho-project/botho/crypto/stealth"
	"github.com/botho-project/botho/domain/consensus/processes/blockbuilder"
	"github.com/botho-project/botho/domain/mempool"
	"github.com/botho-project/botho/txtypes"
)

// Manager exposes mempool submission and block-template assembly.
type Manager struct {
	mempool *mempool.Pool
	builder *blockbuilder.Builder
}

// New instantiates a Manager over an already-wired mempool and block
// builder.
func New(pool *mempool.Pool, builder *blockbuilder.Builder) *Manager {
	return &Manager{mempool: pool, builder: builder}
}

// HandleNewTransaction validates and pools a relayed or locally
// submitted transaction.
func (m *Manager) HandleNewTransaction(tx *txtypes.Transaction, blockVersion uint32) error {
	return m.mempool.Add(tx, blockVersion)
}

// GetBlockTemplate assembles and solves a new block template extending
// tip, ready to hand to blockprocessor.ValidateAndInsertBlock.
func (m *Manager) GetBlockTemplate(tip blockbuilder.Tip, minter stealth.PublicAddress,
	lottery []txtypes.LotteryOutput) (*txtypes.Block, error) {
	block, err := m.builder.BuildTemplate(tip, minter, lottery)
	if err != nil {
		return nil, err
	}
	m.builder.SolveTemplate(block)
	return block, nil
}
