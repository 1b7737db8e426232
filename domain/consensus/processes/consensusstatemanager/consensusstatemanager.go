// Package consensusstatemanager owns the ledger's single mutable view:
// append_block and revert_to apply and undo one block at a time under a
// single-writer lock, exactly the concurrency model SPEC_FULL.md §6
// describes (a writer never runs concurrently with another writer or
// with a reader observing a torn view).
//
// Grounded on the teacher's consensusstatemanager (the process that
// owned AddBlockToVirtual over the DAG's UTXO diff), replacing GHOSTDAG
// merge-set application with Botho's linear append/revert and widening
// "virtual UTXO diff" into the ledger's four persisted stores (UTXO set,
// key-image set, cluster wealth, chain-state tip), committed together
// in one infrastructure/db.Batch per block so a crash mid-apply can
// never leave the stores inconsistent with each other.
package consensusstatemanager

import (
	"sync"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/datastructures/blockheaderstore"
	"github.com/botho-project/botho/domain/consensus/datastructures/blockstatusstore"
	"github.com/botho-project/botho/domain/consensus/datastructures/blockstore"
	"github.com/botho-project/botho/domain/consensus/datastructures/chainstatestore"
	"github.com/botho-project/botho/domain/consensus/datastructures/clusterwealthstore"
	"github.com/botho-project/botho/domain/consensus/datastructures/consensusstatestore"
	"github.com/botho-project/botho/domain/consensus/datastructures/keyimagestore"
	"github.com/botho-project/botho/domain/consensus/datastructures/utxostore"
	"github.com/botho-project/botho/domain/consensus/model"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/domain/consensus/ruleerrors"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Manager is the node's sole ledger writer. Every exported method takes
// either the read lock (LedgerTip queries) or the write lock (AppendBlock,
// RevertTo): the two never run concurrently, so a reader can never
// observe a block half-applied.
type Manager struct {
	mu sync.RWMutex

	db        *db.DB
	validator model.TransactionValidator
	params    *chainparams.Params

	utxos      *utxostore.Store
	keyImages  *keyimagestore.Store
	wealthDB   *clusterwealthstore.Store
	chainState *chainstatestore.Store
	headers    *blockheaderstore.Store
	blocks     *blockstore.Store
	statuses   *blockstatusstore.Store

	wealth *clustertag.Wealth
	tip    *chainstatestore.State // nil before genesis
}

// New opens a Manager over handle, loading its in-memory caches
// (cluster wealth, chain tip) from whatever state handle already holds.
func New(handle *db.DB, validator model.TransactionValidator, params *chainparams.Params) (*Manager, error) {
	wealthDB := clusterwealthstore.New(handle)
	wealth, err := wealthDB.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading cluster wealth")
	}

	chainState := chainstatestore.New(handle)
	tip, err := chainState.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading chain state")
	}

	return &Manager{
		db:         handle,
		validator:  validator,
		params:     params,
		utxos:      utxostore.New(handle),
		keyImages:  keyimagestore.New(handle),
		wealthDB:   wealthDB,
		chainState: chainState,
		headers:    blockheaderstore.New(handle),
		blocks:     blockstore.New(handle),
		statuses:   blockstatusstore.New(handle),
		wealth:     wealth,
		tip:        tip,
	}, nil
}

// Height returns the tip's block height, or 0 before genesis.
func (m *Manager) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tip == nil {
		return 0
	}
	return m.tip.Height
}

// TipHash returns the current tip's block hash, or the zero hash before
// genesis.
func (m *Manager) TipHash() txtypes.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tip == nil {
		return txtypes.Hash{}
	}
	return m.tip.TipHash
}

// TipDifficulty returns the current tip block's own difficulty field
// (not the accumulated total), or 0 before genesis.
func (m *Manager) TipDifficulty() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tip == nil {
		return 0
	}
	block, ok, err := m.blocks.BlockByHeight(m.tip.Height)
	if err != nil || !ok {
		return 0
	}
	return block.Header.Difficulty
}

// Block resolves a block by its header hash.
func (m *Manager) Block(hash txtypes.Hash) (*txtypes.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	block, ok, err := m.blocks.Block(hash)
	if err != nil {
		return nil, false
	}
	return block, ok
}

// BlockByHeight resolves a block by its height on the canonical chain.
func (m *Manager) BlockByHeight(height uint64) (*txtypes.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	block, ok, err := m.blocks.BlockByHeight(height)
	if err != nil {
		return nil, false
	}
	return block, ok
}

// UTXOEntry resolves a ring member by its on-chain identity.
func (m *Manager) UTXOEntry(publicKey, commitment curve.Point) (*externalapi.UTXOEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok, err := m.utxos.Get(publicKey, commitment)
	if err != nil {
		return nil, false
	}
	return entry, ok
}

// RangeOutputs lists up to count outputs starting at startIndex, the
// scan chain_getOutputs serves for wallet-side scanning.
func (m *Manager) RangeOutputs(startIndex, count int) ([]*externalapi.UTXOEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.utxos.Range(startIndex, count)
}

// HasKeyImage reports whether keyImage has already been spent.
func (m *Manager) HasKeyImage(keyImage curve.Point) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ok, err := m.keyImages.Has(keyImage)
	return err == nil && ok
}

// HasOutputPublicKey reports whether publicKey has ever identified an
// output on the canonical chain.
func (m *Manager) HasOutputPublicKey(publicKey curve.Point) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ok, err := m.utxos.HasOutputPublicKey(publicKey)
	return err == nil && ok
}

// ClusterWealth returns the node-wide cluster wealth map as of the tip.
func (m *Manager) ClusterWealth() *clustertag.Wealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wealth
}

var _ model.LedgerTip = (*Manager)(nil)

// overlay layers a block's own, not-yet-committed outputs and key
// images on top of Manager's persisted view, so a later transaction in
// the same block sees an earlier one's outputs as valid ring members —
// correct for a linear chain, where transactions within a block apply
// in order, unlike the teacher's DAG where merge-set ordering needed a
// full topological sort first.
type overlay struct {
	base *Manager

	newEntries map[string]*externalapi.UTXOEntry
	seenKeys   map[string]bool
	spentKeys  map[string]curve.Point
}

func newOverlay(base *Manager) *overlay {
	return &overlay{
		base:       base,
		newEntries: make(map[string]*externalapi.UTXOEntry),
		seenKeys:   make(map[string]bool),
		spentKeys:  make(map[string]curve.Point),
	}
}

func pairKey(publicKey, commitment curve.Point) string {
	return string(publicKey.Bytes()) + string(commitment.Bytes())
}

func (o *overlay) UTXOEntry(publicKey, commitment curve.Point) (*externalapi.UTXOEntry, bool) {
	if entry, ok := o.newEntries[pairKey(publicKey, commitment)]; ok {
		return entry, true
	}
	entry, ok, err := o.base.utxos.Get(publicKey, commitment)
	if err != nil {
		return nil, false
	}
	return entry, ok
}

func (o *overlay) HasKeyImage(keyImage curve.Point) bool {
	if _, ok := o.spentKeys[string(keyImage.Bytes())]; ok {
		return true
	}
	ok, err := o.base.keyImages.Has(keyImage)
	return err == nil && ok
}

func (o *overlay) HasOutputPublicKey(publicKey curve.Point) bool {
	if o.seenKeys[string(publicKey.Bytes())] {
		return true
	}
	ok, err := o.base.utxos.HasOutputPublicKey(publicKey)
	return err == nil && ok
}

func (o *overlay) ClusterWealth() *clustertag.Wealth { return o.base.wealth }

// Height reads the tip directly: AppendBlock already holds the write
// lock, so going through Manager.Height would block on its read lock.
func (o *overlay) Height() uint64 {
	if o.base.tip == nil {
		return 0
	}
	return o.base.tip.Height
}

func (o *overlay) addOutput(out txtypes.TxOut, blockHeight uint64, isCoinbase bool) {
	entry := externalapi.NewUTXOEntry(out, txtypes.TokenID(o.base.params.NativeTokenID), blockHeight, isCoinbase)
	o.newEntries[pairKey(out.PublicKey, out.Commitment)] = entry
	o.seenKeys[string(out.PublicKey.Bytes())] = true
}

func (o *overlay) spendKeyImage(keyImage curve.Point) {
	o.spentKeys[string(keyImage.Bytes())] = keyImage
}

// AppendBlock validates and applies block on top of the current tip,
// advancing it by exactly one height. The block's minting transaction is
// validated separately from its ordinary transactions (coinbasemanager's
// responsibility; transactionvalidator.ValidateTransaction refuses
// coinbase shapes outright), matching spec.md §4.9.
func (m *Manager) AppendBlock(block *txtypes.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expectedHeight := uint64(0)
	if m.tip != nil {
		expectedHeight = m.tip.Height + 1
	}
	if block.Header.Height != expectedHeight {
		return ruleerrors.New(ruleerrors.ErrStructuralError,
			"block height %d does not extend tip at height %d", block.Header.Height, expectedHeight)
	}
	if m.tip != nil && block.Header.PrevBlockHash != m.tip.TipHash {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "block does not chain from the current tip")
	}

	if len(block.MintingTx.Outputs) == 0 {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "minting transaction has no outputs")
	}
	if !block.MintingTx.IsCoinbase() {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "minting transaction must have no ring inputs")
	}

	view := newOverlay(m)
	for _, out := range block.MintingTx.Outputs {
		view.addOutput(out, block.Header.Height, true)
	}

	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if err := m.validator.ValidateTransaction(tx, view, block.Header.Version); err != nil {
			return errors.Wrapf(err, "transaction %d", i)
		}
		for _, in := range tx.Inputs {
			view.spendKeyImage(in.KeyImage)
		}
		for _, out := range tx.Outputs {
			view.addOutput(out, block.Header.Height, false)
		}
	}

	mintCluster := clustertag.ClusterID(block.Header.Height)
	m.wealth.ApplyDelta(mintCluster, int64(m.params.BlockReward))

	batch := m.db.NewBatch()
	for _, entry := range view.newEntries {
		utxostore.Stage(batch, entry)
	}
	for _, point := range view.spentKeys {
		keyimagestore.Stage(batch, point)
	}
	clusterwealthstore.Stage(batch, mintCluster, m.wealth.Get(mintCluster))

	headerHash := hashserialization.HeaderHash(&block.Header)
	blockheaderstore.Stage(batch, headerHash, &block.Header)
	blockstore.Stage(batch, headerHash, block.Header.Height, block)
	blockstatusstore.Stage(batch, headerHash, blockstatusstore.StatusValid)

	newTip := &chainstatestore.State{
		TipHash:               headerHash,
		Height:                block.Header.Height,
		AccumulatedDifficulty: accumulatedBefore(m.tip) + block.Header.Difficulty,
		BlockVersion:          block.Header.Version,
	}
	chainstatestore.Stage(batch, newTip)

	if err := m.db.Commit(batch); err != nil {
		return errors.Wrap(err, "committing block application")
	}

	m.tip = newTip
	return nil
}

func accumulatedBefore(tip *chainstatestore.State) uint64 {
	if tip == nil {
		return 0
	}
	return tip.AccumulatedDifficulty
}

// RevertTo undoes every block above targetHeight, restoring the ledger
// to the state it held right after targetHeight was applied. It is the
// inverse of repeated AppendBlock calls, recomputing each reverted
// block's effects from its own persisted contents rather than from a
// separate undo log.
func (m *Manager) RevertTo(targetHeight uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tip == nil {
		return errors.New("consensusstatemanager: cannot revert an empty ledger")
	}
	if targetHeight > m.tip.Height {
		return errors.New("consensusstatemanager: revert target is above the current tip")
	}

	batch := m.db.NewBatch()
	for height := m.tip.Height; height > targetHeight; height-- {
		block, ok, err := m.blocks.BlockByHeight(height)
		if err != nil {
			return errors.Wrapf(err, "loading block at height %d", height)
		}
		if !ok {
			return errors.Errorf("consensusstatemanager: missing block at height %d during revert", height)
		}
		headerHash := hashserialization.HeaderHash(&block.Header)

		for _, out := range block.MintingTx.Outputs {
			utxostore.Unstage(batch, out.PublicKey, out.Commitment)
		}
		mintCluster := clustertag.ClusterID(height)
		m.wealth.ApplyDelta(mintCluster, -int64(m.params.BlockReward))
		clusterwealthstore.Stage(batch, mintCluster, m.wealth.Get(mintCluster))

		for _, tx := range block.Transactions {
			for _, in := range tx.Inputs {
				keyimagestore.Unstage(batch, in.KeyImage)
			}
			for _, out := range tx.Outputs {
				utxostore.Unstage(batch, out.PublicKey, out.Commitment)
			}
		}

		blockheaderstore.Unstage(batch, headerHash)
		blockstore.Unstage(batch, headerHash, height)
		blockstatusstore.Unstage(batch, headerHash)
	}

	targetBlock, ok, err := m.blocks.BlockByHeight(targetHeight)
	if err != nil {
		return errors.Wrapf(err, "loading block at height %d", targetHeight)
	}
	if !ok {
		return errors.Errorf("consensusstatemanager: missing block at height %d during revert", targetHeight)
	}
	accumulated := uint64(0)
	for h := uint64(0); h <= targetHeight; h++ {
		b, ok, err := m.blocks.BlockByHeight(h)
		if err != nil {
			return errors.Wrapf(err, "recomputing accumulated difficulty at height %d", h)
		}
		if !ok {
			return errors.Errorf("consensusstatemanager: missing block at height %d while recomputing difficulty", h)
		}
		accumulated += b.Header.Difficulty
	}
	newTip := &chainstatestore.State{
		TipHash:               hashserialization.HeaderHash(&targetBlock.Header),
		Height:                targetHeight,
		AccumulatedDifficulty: accumulated,
		BlockVersion:          targetBlock.Header.Version,
	}
	chainstatestore.Stage(batch, newTip)

	if err := m.db.Commit(batch); err != nil {
		return errors.Wrap(err, "committing block revert")
	}

	m.tip = newTip
	return nil
}

// Export serializes the ledger's full current state for a new peer to
// bootstrap from instead of replaying every block.
func (m *Manager) Export() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return consensusstatestore.Export(m.db)
}

// Import replaces the ledger's full state with a snapshot produced by
// another node's Export, then reloads the in-memory caches from it.
func (m *Manager) Import(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := consensusstatestore.Import(m.db, data); err != nil {
		return errors.Wrap(err, "importing snapshot")
	}

	wealth, err := m.wealthDB.Load()
	if err != nil {
		return errors.Wrap(err, "reloading cluster wealth after import")
	}
	tip, err := m.chainState.Load()
	if err != nil {
		return errors.Wrap(err, "reloading chain state after import")
	}
	m.wealth = wealth
	m.tip = tip
	return nil
}
