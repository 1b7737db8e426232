// Package consensusstatestore exports and imports a full snapshot of the
// ledger's mutable state — every unspent output, every spent key image,
// the cluster-wealth map, and the chain-state tip pointer — the way a
// new node bootstraps from a trusted peer's snapshot instead of
// replaying every block from genesis (spec.md §4.7 "snapshot
// export-import").
//
// Grounded on the teacher's consensusstatestore, which played the same
// "whole mutable state, not just one entry" role for the DAG's virtual
// UTXO set; narrowed here to Botho's four ledger namespaces and
// serialized as flat length-prefixed records instead of staged
// DBTransaction writes, since a snapshot is produced and consumed whole
// rather than incrementally staged.
package consensusstatestore

import (
	"encoding/binary"

	"github.com/botho-project/botho/infrastructure/db"
	"github.com/pkg/errors"
)

// snapshotNamespaces lists, in order, every namespace a snapshot covers.
// NamespaceBlocksByHeight/NamespaceBlocksByHash/NamespaceBlockHeaders
// are deliberately excluded: a snapshot recipient starts consensus at
// the snapshotted height and only needs the ledger's current state, not
// its full block history (spec.md §4.7: a snapshot is a substitute for
// replay, not an archive).
var snapshotNamespaces = []db.Namespace{
	db.NamespaceUTXOs,
	db.NamespaceKeyImages,
	db.NamespaceClusterWealth,
	db.NamespaceChainState,
}

// Export serializes every record in the ledger's state namespaces into
// one self-contained blob.
func Export(handle *db.DB) ([]byte, error) {
	var out []byte
	for _, ns := range snapshotNamespaces {
		count := 0
		var section []byte
		err := handle.Iterate(ns, nil, func(k, v []byte) bool {
			section = appendRecord(section, k, v)
			count++
			return true
		})
		if err != nil {
			return nil, errors.Wrapf(err, "exporting namespace %d", ns)
		}
		out = appendUint32(out, uint32(count))
		out = append(out, section...)
	}
	return out, nil
}

// Import loads a blob produced by Export into handle, overwriting any
// existing state in the covered namespaces.
func Import(handle *db.DB, data []byte) error {
	batch := handle.NewBatch()
	off := 0
	for _, ns := range snapshotNamespaces {
		if off+4 > len(data) {
			return errors.New("consensusstatestore: truncated snapshot header")
		}
		count := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		for i := uint32(0); i < count; i++ {
			var k, v []byte
			var err error
			k, v, off, err = readRecord(data, off)
			if err != nil {
				return errors.Wrapf(err, "importing namespace %d record %d", ns, i)
			}
			batch.Put(ns, k, v)
		}
	}
	if off != len(data) {
		return errors.New("consensusstatestore: trailing bytes after snapshot import")
	}
	return errors.Wrap(handle.Commit(batch), "consensusstatestore import commit")
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendRecord(buf, k, v []byte) []byte {
	buf = appendUint32(buf, uint32(len(k)))
	buf = append(buf, k...)
	buf = appendUint32(buf, uint32(len(v)))
	buf = append(buf, v...)
	return buf
}

func readRecord(data []byte, off int) (k, v []byte, next int, err error) {
	if off+4 > len(data) {
		return nil, nil, off, errors.New("truncated key length")
	}
	klen := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	if off+klen > len(data) {
		return nil, nil, off, errors.New("truncated key")
	}
	k = data[off : off+klen]
	off += klen

	if off+4 > len(data) {
		return nil, nil, off, errors.New("truncated value length")
	}
	vlen := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	if off+vlen > len(data) {
		return nil, nil, off, errors.New("truncated value")
	}
	v = data[off : off+vlen]
	off += vlen

	return k, v, off, nil
}
