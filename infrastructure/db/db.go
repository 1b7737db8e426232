// Package db wraps a single goleveldb handle into the column-family-style
// key-value store the ledger needs: one physical database, several logical
// namespaces distinguished by a one-byte prefix, and atomic batched writes
// across namespaces so a block apply either commits in full or not at all.
//
// The teacher's database2/ffldb split column families into separate
// on-disk buckets; goleveldb has no native column families, so prefixing is
// the standard substitute (the same trick ffldb itself falls back to for
// metadata buckets it can't give their own bucket).
package db

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Namespace is a one-byte column-family prefix.
type Namespace byte

// Namespaces used by the ledger store (domain/consensus/datastructures).
const (
	NamespaceBlocksByHeight Namespace = iota
	NamespaceBlocksByHash
	NamespaceBlockHeaders
	NamespaceUTXOs
	NamespaceKeyImages
	NamespaceClusterWealth
	NamespaceChainState
	NamespaceTxLocations
	NamespaceMempoolState
)

// DB is a single-writer, many-reader key-value store.
type DB struct {
	ldb *leveldb.DB
}

// Open opens (creating if absent) a goleveldb database at path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger database at %s", path)
	}
	return &DB{ldb: ldb}, nil
}

// Close flushes and closes the underlying database.
func (d *DB) Close() error {
	return d.ldb.Close()
}

func key(ns Namespace, k []byte) []byte {
	out := make([]byte, 1+len(k))
	out[0] = byte(ns)
	copy(out[1:], k)
	return out
}

// Get reads a single value. It returns (nil, nil) if the key is absent.
func (d *DB) Get(ns Namespace, k []byte) ([]byte, error) {
	v, err := d.ldb.Get(key(ns, k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "db get")
	}
	return v, nil
}

// Has reports whether k exists in ns.
func (d *DB) Has(ns Namespace, k []byte) (bool, error) {
	ok, err := d.ldb.Has(key(ns, k), nil)
	if err != nil {
		return false, errors.Wrap(err, "db has")
	}
	return ok, nil
}

// Put writes a single key outside of a batch. Prefer Batch for any write
// that must be atomic with other writes (block apply, revert, snapshot
// load).
func (d *DB) Put(ns Namespace, k, v []byte) error {
	return errors.Wrap(d.ldb.Put(key(ns, k), v, nil), "db put")
}

// Iterate calls fn for every key in ns with the given key prefix, in
// ascending key order, until fn returns false or the iterator is
// exhausted.
func (d *DB) Iterate(ns Namespace, prefix []byte, fn func(k, v []byte) bool) error {
	rng := util.BytesPrefix(key(ns, prefix))
	it := d.ldb.NewIterator(rng, nil)
	defer it.Release()
	return iterate(it, fn)
}

func iterate(it iterator.Iterator, fn func(k, v []byte) bool) error {
	for it.Next() {
		// Strip the namespace byte before handing the key to the caller.
		k := it.Key()
		if len(k) > 0 {
			k = k[1:]
		}
		if !fn(k, it.Value()) {
			break
		}
	}
	return errors.Wrap(it.Error(), "db iterate")
}

// Batch accumulates writes across one or more namespaces for atomic commit.
// The ledger's append_block and revert_to operations each build exactly one
// Batch and Commit it once, so a crash mid-apply never leaves a torn view
// of the UTXO set, key-image set, cluster-wealth map, and chain state.
type Batch struct {
	b *leveldb.Batch
}

// NewBatch starts a new atomic write batch.
func (d *DB) NewBatch() *Batch {
	return &Batch{b: new(leveldb.Batch)}
}

// Put stages a write.
func (ba *Batch) Put(ns Namespace, k, v []byte) {
	ba.b.Put(key(ns, k), v)
}

// Delete stages a deletion.
func (ba *Batch) Delete(ns Namespace, k []byte) {
	ba.b.Delete(key(ns, k))
}

// Commit atomically applies every staged write. No partial application is
// ever observable by a reader.
func (d *DB) Commit(ba *Batch) error {
	return errors.Wrap(d.ldb.Write(ba.b, nil), "db commit batch")
}
