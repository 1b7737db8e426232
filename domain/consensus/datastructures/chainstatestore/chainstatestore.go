// Package chainstatestore persists the ledger's single mutable pointer:
// which block is the current tip, and the running totals
// (append_block/revert_to in domain/consensus/processes/
// consensusstatemanager need to recompute difficulty and feed
// pastmediantimemanager without rescanning the whole chain.
//
// Grounded on the teacher's virtual-state store (the single record
// tracking the DAG's selected tip), narrowed from a multi-parent
// selected-tip set to Botho's single linear-chain tip.
package chainstatestore

import (
	"encoding/binary"

	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

var tipKey = []byte("tip")

// State is the ledger's current tip pointer.
type State struct {
	TipHash               txtypes.Hash
	Height                uint64
	AccumulatedDifficulty uint64
	BlockVersion          uint32
}

// Store is the on-disk chain-state record.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

// Load returns the persisted tip state, or (nil, nil) if the chain is
// still empty (pre-genesis).
func (s *Store) Load() (*State, error) {
	data, err := s.db.Get(db.NamespaceChainState, tipKey)
	if err != nil {
		return nil, errors.Wrap(err, "chainstatestore load")
	}
	if data == nil {
		return nil, nil
	}
	if len(data) != 52 {
		return nil, errors.New("chainstatestore: malformed tip record")
	}
	var state State
	copy(state.TipHash[:], data[0:32])
	state.Height = binary.LittleEndian.Uint64(data[32:40])
	state.AccumulatedDifficulty = binary.LittleEndian.Uint64(data[40:48])
	state.BlockVersion = binary.LittleEndian.Uint32(data[48:52])
	return &state, nil
}

// Clear removes the tip record entirely, returning the store to the
// pre-genesis state.
func Clear(batch *db.Batch) {
	batch.Delete(db.NamespaceChainState, tipKey)
}

// Stage writes the new tip state into batch.
func Stage(batch *db.Batch, state *State) {
	data := make([]byte, 52)
	copy(data[0:32], state.TipHash[:])
	binary.LittleEndian.PutUint64(data[32:40], state.Height)
	binary.LittleEndian.PutUint64(data[40:48], state.AccumulatedDifficulty)
	binary.LittleEndian.PutUint32(data[48:52], state.BlockVersion)
	batch.Put(db.NamespaceChainState, tipKey, data)
}
