// Package utxostore persists the ledger's unspent-output set: every
// output any transaction has ever created, keyed by its on-chain
// identity (target public key, amount commitment) rather than by the
// (txHash, index) outpoint a script-based chain would use, since ring
// membership resolves outputs by curve point rather than by a
// transaction's own coordinates (spec.md §3, §4.6 item 3).
//
// Unlike a script-based UTXO set, an output here is never deleted once
// created: ring signatures let any past output serve as a decoy ring
// member indefinitely, so "spent" is tracked separately, by key image
// (see keyimagestore), not by removing the output from this store.
// Grounded on the teacher's utxoindex/consensusstatestore's UTXO-keyed
// persistence, adapted from an outpoint key to a public-key/commitment
// key and from "present means unspent" to "present means ever-existed".
package utxostore

import (
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/domain/consensus/utils/ledgercodec"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/pkg/errors"
)

// seenPrefix and entryPrefix distinguish the store's two key families
// within the single NamespaceUTXOs column: entryPrefix|pubkey|commitment
// maps to the full encoded UTXOEntry, seenPrefix|pubkey is a standing
// marker that Unstage leaves in place, so HasOutputPublicKey still
// answers true for an output key whose entry a revert has removed.
const (
	entryPrefix byte = 1
	seenPrefix  byte = 2
)

// Store is the on-disk unspent-output set.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

func entryKey(publicKey, commitment curve.Point) []byte {
	k := make([]byte, 0, 65)
	k = append(k, entryPrefix)
	k = append(k, publicKey.Bytes()...)
	k = append(k, commitment.Bytes()...)
	return k
}

func seenKey(publicKey curve.Point) []byte {
	k := make([]byte, 0, 33)
	k = append(k, seenPrefix)
	k = append(k, publicKey.Bytes()...)
	return k
}

// Get resolves a ring member's full UTXO entry, the way
// model.LedgerTip.UTXOEntry does for the transaction validator.
func (s *Store) Get(publicKey, commitment curve.Point) (*externalapi.UTXOEntry, bool, error) {
	data, err := s.db.Get(db.NamespaceUTXOs, entryKey(publicKey, commitment))
	if err != nil {
		return nil, false, errors.Wrap(err, "utxostore get")
	}
	if data == nil {
		return nil, false, nil
	}
	entry, err := ledgercodec.DecodeUTXOEntry(data)
	if err != nil {
		return nil, false, errors.Wrap(err, "utxostore decode")
	}
	return entry, true, nil
}

// HasOutputPublicKey reports whether publicKey has ever identified an
// output on the canonical chain, spent or unspent.
func (s *Store) HasOutputPublicKey(publicKey curve.Point) (bool, error) {
	ok, err := s.db.Has(db.NamespaceUTXOs, seenKey(publicKey))
	return ok, errors.Wrap(err, "utxostore has-seen")
}

// Range decodes up to count full entries starting at the startIndex'th
// one in key order, the "by global index" scan chain_getOutputs needs
// (spec.md §6). The entry-key namespace has no intrinsic notion of
// insertion order, so "index" here means position in ascending
// (public key, commitment) key order, stable across calls as long as
// the set itself doesn't change underneath the scan.
func (s *Store) Range(startIndex, count int) ([]*externalapi.UTXOEntry, error) {
	var entries []*externalapi.UTXOEntry
	skipped := 0
	err := s.db.Iterate(db.NamespaceUTXOs, []byte{entryPrefix}, func(_, v []byte) bool {
		if skipped < startIndex {
			skipped++
			return true
		}
		if len(entries) >= count {
			return false
		}
		entry, err := ledgercodec.DecodeUTXOEntry(v)
		if err != nil {
			return false
		}
		entries = append(entries, entry)
		return true
	})
	return entries, errors.Wrap(err, "utxostore range")
}

// Stage adds out to batch: its full entry plus the standing seen-pubkey
// marker, as part of an in-progress block application.
func Stage(batch *db.Batch, entry *externalapi.UTXOEntry) {
	out := entry.Output
	batch.Put(db.NamespaceUTXOs, entryKey(out.PublicKey, out.Commitment), ledgercodec.EncodeUTXOEntry(entry))
	batch.Put(db.NamespaceUTXOs, seenKey(out.PublicKey), []byte{1})
}

// Unstage removes an entry staged by a block being reverted. The
// seen-pubkey marker is left in place: a reorg that drops the block
// that created an output doesn't retroactively un-observe it, since no
// other output can legitimately reuse the same one-time public key.
func Unstage(batch *db.Batch, publicKey, commitment curve.Point) {
	batch.Delete(db.NamespaceUTXOs, entryKey(publicKey, commitment))
}
