// Package mempool holds not-yet-mined, individually valid transactions,
// ready for a block template or for relay to peers (spec.md §5).
//
// Grounded on the teacher's domain/mempool, with maps keyed by hash, by
// key image (the thing that makes a transaction invalid if duplicated)
// and by tombstone height; insertion order and fee-per-byte are kept on
// each entry and sorted when a block template is requested. Admission calls
// straight into the C7 transaction validator instead of the teacher's
// script-based sanity checks, and there is no orphan pool: every ring
// member must already exist on-chain at submission time (spec.md §4.6
// item 3), so a transaction that fails ledger lookup is simply
// rejected rather than parked.
package mempool

import (
	"sort"
	"sync"

	"github.com/botho-project/botho/domain/consensus/model"
	"github.com/botho-project/botho/domain/consensus/ruleerrors"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/domain/consensus/utils/ledgercodec"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// entry is one admitted transaction plus its hash, encoded size,
// fee-per-byte and insertion order.
type entry struct {
	tx          *txtypes.Transaction
	hash        txtypes.Hash
	sizeBytes   int
	feePerByte  float64
	insertOrder uint64
}

// Pool is the node's mempool: every currently-admitted transaction,
// indexed by hash, key image and tombstone height.
type Pool struct {
	mu sync.RWMutex

	validator model.TransactionValidator
	tip       model.LedgerTip
	maxBytes  uint64

	nextInsertOrder uint64

	byHash      map[txtypes.Hash]*entry
	byKeyImage  map[string]txtypes.Hash // first-seen spender of a key image
	byTombstone map[uint64]map[txtypes.Hash]struct{}
}

// New instantiates an empty pool. tip is the ledger view the validator
// checks each admission against; maxBytes bounds how much
// of the pool GetForBlock will ever hand back for one template.
func New(validator model.TransactionValidator, tip model.LedgerTip, maxBytes uint64) *Pool {
	return &Pool{
		validator:   validator,
		tip:         tip,
		maxBytes:    maxBytes,
		byHash:      make(map[txtypes.Hash]*entry),
		byKeyImage:  make(map[string]txtypes.Hash),
		byTombstone: make(map[uint64]map[txtypes.Hash]struct{}),
	}
}

// Add validates tx against the current tip and, if it passes, admits it
// to the pool. A transaction that spends a key image already claimed by
// another pooled transaction is rejected outright: Botho has no
// replace-by-fee policy, the first valid spend wins the slot until a
// block decides it for real.
func (p *Pool) Add(tx *txtypes.Transaction, blockVersion uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := hashserialization.TransactionHash(tx)
	if _, exists := p.byHash[hash]; exists {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "transaction already in mempool")
	}

	for _, in := range tx.Inputs {
		key := string(in.KeyImage.Bytes())
		if existing, ok := p.byKeyImage[key]; ok && existing != hash {
			return ruleerrors.New(ruleerrors.ErrDuplicateKeyImage,
				"key image already claimed by a pooled transaction")
		}
	}

	if err := p.validator.ValidateTransaction(tx, p.tip, blockVersion); err != nil {
		return errors.Wrap(err, "mempool admission")
	}

	size := len(ledgercodec.EncodeTransaction(tx))
	feePerByte := 0.0
	if size > 0 {
		feePerByte = float64(tx.FeeAmount) / float64(size)
	}

	e := &entry{
		tx:          tx,
		hash:        hash,
		sizeBytes:   size,
		feePerByte:  feePerByte,
		insertOrder: p.nextInsertOrder,
	}
	p.nextInsertOrder++

	p.byHash[hash] = e
	for _, in := range tx.Inputs {
		p.byKeyImage[string(in.KeyImage.Bytes())] = hash
	}
	if tx.TombstoneBlock > 0 {
		if p.byTombstone[tx.TombstoneBlock] == nil {
			p.byTombstone[tx.TombstoneBlock] = make(map[txtypes.Hash]struct{})
		}
		p.byTombstone[tx.TombstoneBlock][hash] = struct{}{}
	}

	return nil
}

// Remove evicts hash from every index, used once a transaction is
// mined or explicitly discarded.
func (p *Pool) Remove(hash txtypes.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash txtypes.Hash) {
	e, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	for _, in := range e.tx.Inputs {
		key := string(in.KeyImage.Bytes())
		if p.byKeyImage[key] == hash {
			delete(p.byKeyImage, key)
		}
	}
	if e.tx.TombstoneBlock > 0 {
		delete(p.byTombstone[e.tx.TombstoneBlock], hash)
		if len(p.byTombstone[e.tx.TombstoneBlock]) == 0 {
			delete(p.byTombstone, e.tx.TombstoneBlock)
		}
	}
}

// RemoveMined evicts every transaction in block from the pool, called
// once consensusstatemanager.AppendBlock has accepted the block.
func (p *Pool) RemoveMined(block *txtypes.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range block.Transactions {
		hash := hashserialization.TransactionHash(&block.Transactions[i])
		p.removeLocked(hash)
	}
}

// ExpireTombstoned evicts every pooled transaction whose tombstone
// block is at or before height, since those inputs are no longer
// spendable this way (spec.md §3 TxIn.input_rules).
func (p *Pool) ExpireTombstoned(height uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for tombstone, hashes := range p.byTombstone {
		if tombstone > height {
			continue
		}
		for hash := range hashes {
			p.removeLocked(hash)
		}
	}
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// GetForBlock returns pooled transactions ordered by fee-per-byte
// (highest first), greedily packed under the pool's byte budget,
// matching the teacher's fee-rate block-selection policy.
func (p *Pool) GetForBlock() []txtypes.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*entry, 0, len(p.byHash))
	for _, e := range p.byHash {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].feePerByte != entries[j].feePerByte {
			return entries[i].feePerByte > entries[j].feePerByte
		}
		return entries[i].insertOrder < entries[j].insertOrder
	})

	var selected []txtypes.Transaction
	var usedBytes uint64
	for _, e := range entries {
		if p.maxBytes > 0 && usedBytes+uint64(e.sizeBytes) > p.maxBytes {
			continue
		}
		selected = append(selected, *e.tx)
		usedBytes += uint64(e.sizeBytes)
	}
	return selected
}
