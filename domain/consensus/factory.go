package consensus

import (
	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/datastructures/blockstore"
	"github.com/botho-project/botho/domain/consensus/processes/blockbuilder"
	"github.com/botho-project/botho/domain/consensus/processes/blockprocessor"
	"github.com/botho-project/botho/domain/consensus/processes/blockvalidator"
	"github.com/botho-project/botho/domain/consensus/processes/coinbasemanager"
	"github.com/botho-project/botho/domain/consensus/processes/consensusstatemanager"
	"github.com/botho-project/botho/domain/consensus/processes/difficultymanager"
	"github.com/botho-project/botho/domain/consensus/processes/pastmediantimemanager"
	"github.com/botho-project/botho/domain/consensus/processes/syncmanager"
	"github.com/botho-project/botho/domain/consensus/processes/transactionvalidator"
	"github.com/botho-project/botho/domain/mempool"
	"github.com/botho-project/botho/domain/miningmanager"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/pkg/errors"
)

// defaultMiningThreads is the worker-pool width BuildBlockTemplate's
// proof-of-work search falls back to when the caller leaves it unset.
const defaultMiningThreads = 1

// New opens a Consensus over handle, wiring every process — C7b's
// transaction validator, C8's ledger, difficulty/median-time/coinbase,
// block validation, mempool, block building, mining — into the single
// facade consensus.go exposes, the same shape the teacher's factory.go
// wires before handing back a Consensus, narrowed to Botho's concrete
// process set (no DAG topology manager, reachability tree, or pruning
// manager to construct). maxMempoolBytes bounds the mempool's resident
// transaction bytes (spec.md §5); threads bounds BuildBlockTemplate's
// proof-of-work search width (threads <= 0 defaults to 1).
func New(handle *db.DB, params *chainparams.Params, maxMempoolBytes uint64, threads int) (*Consensus, error) {
	if threads <= 0 {
		threads = defaultMiningThreads
	}

	validator := transactionvalidator.New(params, clustertag.DefaultFeeCurve)

	stateManager, err := consensusstatemanager.New(handle, validator, params)
	if err != nil {
		return nil, errors.Wrap(err, "opening consensus state manager")
	}

	blocks := blockstore.New(handle)
	difficultyManager := difficultymanager.New(blocks, params)
	medianTimeManager := pastmediantimemanager.New(blocks)
	coinbaseManager := coinbasemanager.New(params)
	blockValidator := blockvalidator.New(params, difficultyManager, medianTimeManager, coinbaseManager)

	pool := mempool.New(validator, stateManager, maxMempoolBytes)
	builder := blockbuilder.New(params, pool, coinbaseManager, difficultyManager, threads)
	mining := miningmanager.New(pool, builder)

	processor := blockprocessor.New(blockValidator, stateManager, pool)
	syncMgr := syncmanager.New(blocks, stateManager)

	return &Consensus{
		stateManager: stateManager,
		processor:    processor,
		mining:       mining,
		mempool:      pool,
		sync:         syncMgr,
	}, nil
}
