// Package blockstore persists full blocks, indexed both by hash (for
// direct lookup during sync) and by height (for the linear-chain walk
// append_block/revert_to and pastmediantimemanager need).
//
// Grounded on the teacher's blockstore package shape (Block/Blocks/
// Delete over a DB-backed cache), narrowed from Kaspa's
// hash-addressed-DAG storage to Botho's linear chain, where height
// alone already gives a canonical order and a height index is enough
// to support revert_to without a pruning-point/finality-window design.
package blockstore

import (
	"encoding/binary"

	"github.com/botho-project/botho/domain/consensus/utils/ledgercodec"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Store is the on-disk full-block archive.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

func heightKey(height uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], height)
	return k[:]
}

// Block returns the block with the given hash.
func (s *Store) Block(hash txtypes.Hash) (*txtypes.Block, bool, error) {
	data, err := s.db.Get(db.NamespaceBlocksByHash, hash[:])
	if err != nil {
		return nil, false, errors.Wrap(err, "blockstore get by hash")
	}
	if data == nil {
		return nil, false, nil
	}
	block, err := ledgercodec.DecodeBlock(data)
	if err != nil {
		return nil, false, errors.Wrap(err, "blockstore decode")
	}
	return block, true, nil
}

// BlockByHeight returns the canonical block at height.
func (s *Store) BlockByHeight(height uint64) (*txtypes.Block, bool, error) {
	hashBytes, err := s.db.Get(db.NamespaceBlocksByHeight, heightKey(height))
	if err != nil {
		return nil, false, errors.Wrap(err, "blockstore get height index")
	}
	if hashBytes == nil {
		return nil, false, nil
	}
	var hash txtypes.Hash
	copy(hash[:], hashBytes)
	return s.Block(hash)
}

// Stage stages hash's block, at height, for the block being applied.
func Stage(batch *db.Batch, hash txtypes.Hash, height uint64, block *txtypes.Block) {
	batch.Put(db.NamespaceBlocksByHash, hash[:], ledgercodec.EncodeBlock(block))
	batch.Put(db.NamespaceBlocksByHeight, heightKey(height), hash[:])
}

// Unstage removes hash's block and its height index entry as part of
// reverting the block at height.
func Unstage(batch *db.Batch, hash txtypes.Hash, height uint64) {
	batch.Delete(db.NamespaceBlocksByHash, hash[:])
	batch.Delete(db.NamespaceBlocksByHeight, heightKey(height))
}
