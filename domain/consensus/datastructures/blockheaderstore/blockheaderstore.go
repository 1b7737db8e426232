// Package blockheaderstore persists block headers independently of
// their bodies, keyed by header hash. consensusstatemanager writes and
// removes a header with each block it applies or reverts; difficulty
// retargeting and block sync read whole blocks from blockstore instead.
//
// Grounded on the teacher's blockheaderstore package shape (Stage/
// BlockHeader/HasBlockHeader over a DB-backed cache), narrowed to
// Botho's single-parent header (txtypes.BlockHeader) instead of
// Kaspa's multi-parent DomainBlockHeader, and re-pointed at
// ledgercodec instead of protobuf-generated DbBlockHeader structs.
package blockheaderstore

import (
	"github.com/botho-project/botho/domain/consensus/utils/ledgercodec"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Store is the on-disk block-header index, keyed by block hash.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

// Get returns the header for hash, or ok=false if it isn't known.
func (s *Store) Get(hash txtypes.Hash) (*txtypes.BlockHeader, bool, error) {
	data, err := s.db.Get(db.NamespaceBlockHeaders, hash[:])
	if err != nil {
		return nil, false, errors.Wrap(err, "blockheaderstore get")
	}
	if data == nil {
		return nil, false, nil
	}
	header, err := ledgercodec.DecodeBlockHeader(data)
	if err != nil {
		return nil, false, errors.Wrap(err, "blockheaderstore decode")
	}
	return header, true, nil
}

// Has reports whether hash's header is known.
func (s *Store) Has(hash txtypes.Hash) (bool, error) {
	ok, err := s.db.Has(db.NamespaceBlockHeaders, hash[:])
	return ok, errors.Wrap(err, "blockheaderstore has")
}

// Stage stages hash's header for the block being applied.
func Stage(batch *db.Batch, hash txtypes.Hash, header *txtypes.BlockHeader) {
	batch.Put(db.NamespaceBlockHeaders, hash[:], ledgercodec.EncodeBlockHeader(header))
}

// Unstage removes hash's header as part of reverting the block it
// belongs to.
func Unstage(batch *db.Batch, hash txtypes.Hash) {
	batch.Delete(db.NamespaceBlockHeaders, hash[:])
}
