// Package blockstatusstore tracks each known block's validation status,
// separately from its header and body, so the sync manager can tell a
// fully-validated block apart from one it only has a header for, or one
// it has already marked invalid and must never re-request
// (spec.md §5.12).
//
// Grounded on the teacher's blockstatusstore package shape (Insert/Get/
// Exists over a DB-backed cache), with Kaspa's DAG-oriented status set
// (UTXOPendingVerification, DisqualifiedFromChain, etc.) narrowed to the
// three statuses a linear PoW chain actually distinguishes.
package blockstatusstore

import (
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Status is a block's validation state.
type Status byte

const (
	// StatusHeaderOnly means the header is known but the body hasn't
	// been fetched or validated yet.
	StatusHeaderOnly Status = iota
	// StatusValid means the full block passed every check in
	// domain/consensus/processes/blockvalidator and consensusstatemanager
	// applied it.
	StatusValid
	// StatusInvalid means the block failed validation and must never be
	// re-requested from a peer that offers it again.
	StatusInvalid
)

// Store is the on-disk block-status index, keyed by block hash.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

func statusKey(hash txtypes.Hash) []byte {
	k := make([]byte, 0, 33)
	k = append(k, 's')
	k = append(k, hash[:]...)
	return k
}

// Get returns hash's status, or ok=false if hash is entirely unknown.
func (s *Store) Get(hash txtypes.Hash) (status Status, ok bool, err error) {
	data, err := s.db.Get(db.NamespaceBlockHeaders, statusKey(hash))
	if err != nil {
		return 0, false, errors.Wrap(err, "blockstatusstore get")
	}
	if data == nil {
		return 0, false, nil
	}
	return Status(data[0]), true, nil
}

// Stage records hash's status as part of the block being applied.
func Stage(batch *db.Batch, hash txtypes.Hash, status Status) {
	batch.Put(db.NamespaceBlockHeaders, statusKey(hash), []byte{byte(status)})
}

// Unstage removes hash's status record as part of reverting it.
func Unstage(batch *db.Batch, hash txtypes.Hash) {
	batch.Delete(db.NamespaceBlockHeaders, statusKey(hash))
}
