// Package blockbuilder assembles a block template — mempool selection,
// minting transaction, tx_root, and proof of work — the way the
// teacher's mining.go CPU-bound loop assembles a DomainBlock, adapted
// to Botho's single-minter PoW reward and Blake3 header hash (spec.md
// §4.9, §5.10).
package blockbuilder

import (
	"math/rand"
	"time"

	"github.com/botho-project/botho/crypto/stealth"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/processes/coinbasemanager"
	"github.com/botho-project/botho/domain/consensus/processes/difficultymanager"
	"github.com/botho-project/botho/domain/consensus/utils/merkle"
	"github.com/botho-project/botho/domain/consensus/utils/mining"
	"github.com/botho-project/botho/domain/mempool"
	"github.com/botho-project/botho/txtypes"
)

// Tip describes the chain state a template extends: either the genesis
// case (no previous block) or the current tip's hash/height/difficulty.
type Tip struct {
	Exists     bool
	Hash       txtypes.Hash
	Height     uint64
	Difficulty uint64
}

// Builder assembles block templates and searches for their proof of
// work.
type Builder struct {
	params            *chainparams.Params
	mempool           *mempool.Pool
	coinbaseManager   *coinbasemanager.Manager
	difficultyManager *difficultymanager.Manager
	threads           int
}

// New instantiates a Builder. threads is the worker-pool width used by
// SolveTemplate; a value <= 0 defaults to 1.
func New(params *chainparams.Params, pool *mempool.Pool, coinbaseManager *coinbasemanager.Manager,
	difficultyManager *difficultymanager.Manager, threads int) *Builder {
	if threads <= 0 {
		threads = 1
	}
	return &Builder{
		params:            params,
		mempool:           pool,
		coinbaseManager:   coinbaseManager,
		difficultyManager: difficultyManager,
		threads:           threads,
	}
}

// BuildTemplate assembles an unsolved block extending tip: mempool
// selection, the minting transaction, and tx_root, but Header.Nonce is
// left at its zero value — call SolveTemplate to find a valid proof of
// work before handing the block to consensusstatemanager.AppendBlock.
func (b *Builder) BuildTemplate(tip Tip, minter stealth.PublicAddress, lottery []txtypes.LotteryOutput) (*txtypes.Block, error) {
	nextHeight := uint64(0)
	prevHash := txtypes.Hash{}
	if tip.Exists {
		nextHeight = tip.Height + 1
		prevHash = tip.Hash
	}

	difficulty, err := b.difficultyManager.RequiredDifficulty(nextHeight, tip.Difficulty)
	if err != nil {
		return nil, err
	}

	mintingTx, err := b.coinbaseManager.BuildMintingTransaction(minter, lottery)
	if err != nil {
		return nil, err
	}

	txs := b.mempool.GetForBlock()
	txRoot := merkle.CalculateTxRoot(&mintingTx, txs)

	header := txtypes.BlockHeader{
		Version:        b.params.CurrentBlockVersion,
		PrevBlockHash:  prevHash,
		TxRoot:         txRoot,
		Timestamp:      time.Now().Unix(),
		Height:         nextHeight,
		Difficulty:     difficulty,
		MinterViewKey:  minter.ViewPublic,
		MinterSpendKey: minter.SpendPublic,
	}

	return &txtypes.Block{
		Header:       header,
		MintingTx:    mintingTx,
		Transactions: txs,
	}, nil
}

// SolveTemplate searches for a nonce satisfying block's declared
// difficulty, using the builder's configured worker-pool width
// (pow.go), and sets block.Header.Nonce to the winning value.
func (b *Builder) SolveTemplate(block *txtypes.Block) {
	target := mining.TargetForDifficulty(block.Header.Difficulty, b.params)
	nonce := solveParallel(&block.Header, target, b.threads, rand.New(rand.NewSource(time.Now().UnixNano())))
	block.Header.Nonce = nonce
}
