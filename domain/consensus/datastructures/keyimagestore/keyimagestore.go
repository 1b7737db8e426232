// Package keyimagestore persists the set of spent key images, the
// double-spend-prevention mechanism ring signatures use in place of a
// script-based chain's "mark outpoint spent" (spec.md §4.3, §4.6 item
// 3): a ring signature never reveals which member it really spends, so
// the ledger can only forbid a given key image from appearing twice,
// not remove any particular output from circulation.
//
// Grounded on the teacher's utxoindex "mark spent" bookkeeping, keyed
// by key image instead of outpoint.
package keyimagestore

import (
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/pkg/errors"
)

// Store is the on-disk spent-key-image set.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

func imageKey(keyImage curve.Point) []byte {
	return keyImage.Bytes()
}

// Has reports whether keyImage has already been spent.
func (s *Store) Has(keyImage curve.Point) (bool, error) {
	ok, err := s.db.Has(db.NamespaceKeyImages, imageKey(keyImage))
	return ok, errors.Wrap(err, "keyimagestore has")
}

// Stage marks keyImage spent as part of an in-progress block
// application.
func Stage(batch *db.Batch, keyImage curve.Point) {
	batch.Put(db.NamespaceKeyImages, imageKey(keyImage), []byte{1})
}

// Unstage unmarks keyImage as part of reverting the block that spent it.
func Unstage(batch *db.Batch, keyImage curve.Point) {
	batch.Delete(db.NamespaceKeyImages, imageKey(keyImage))
}
