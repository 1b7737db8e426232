// Package hashserialization canonicalizes txtypes.Transaction/Block into
// the frozen, tag-byte-prefixed wire encoding spec.md §6 requires for
// hashing and gossip: every field is preceded by a one-byte tag number,
// so a later block version can add fields without breaking old
// encodings, the same forward-compatibility goal protobuf serves.
//
// Grounded on the teacher's hashserialization package (a writer that
// never itself produces an error, panicking only if handed a
// structurally-invalid domain object) and merkle/hashes packages
// (double-hash-writer pattern) — generalized from kaspa's flat,
// untagged field sequence to Botho's tag-prefixed table, and from
// double-SHA256 to Blake3 per spec.md §6 ("Blake3 or SHA-256,
// protocol-fixed, for block/tx merkleization").
package hashserialization

import (
	"bytes"
	"encoding/binary"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/curve"
	"lukechampine.com/blake3"
)

// Field tags, frozen per block version (SPEC_FULL.md §4): never reuse a
// retired tag number, only append new ones.
const (
	tagTxVersion       byte = 1
	tagTxInput         byte = 2
	tagTxOutput        byte = 3
	tagTxFeeAmount     byte = 4
	tagTxFeeTokenID    byte = 5
	tagTxTombstone     byte = 6
	tagTxPseudoOutput  byte = 7
	tagTxRangeProof    byte = 8
	tagTxBalanceProof  byte = 9
	tagTxSignature     byte = 10
	tagTxCommittedTags byte = 11
	tagTxEnd           byte = 0

	tagOutCommitment   byte = 1
	tagOutTargetKey    byte = 2
	tagOutPublicKey    byte = 3
	tagOutMaskedAmount byte = 4
	tagOutMemo         byte = 5
	tagOutClusterTag   byte = 6
	tagOutPQEnvelope   byte = 7
	tagOutEnd          byte = 0

	tagInRingMember byte = 1
	tagInKeyImage   byte = 2
	tagInInputRules byte = 3
	tagInPQ         byte = 4
	tagInEnd        byte = 0

	tagHdrVersion     byte = 1
	tagHdrPrevHash    byte = 2
	tagHdrTxRoot      byte = 3
	tagHdrTimestamp   byte = 4
	tagHdrHeight      byte = 5
	tagHdrDifficulty  byte = 6
	tagHdrNonce       byte = 7
	tagHdrMinterView  byte = 8
	tagHdrMinterSpend byte = 9
	tagHdrEnd         byte = 0
)

// writer accumulates a canonical byte form; none of its methods can
// fail (bytes.Buffer.Write never errors), matching the teacher's
// assumption that serialization of a structurally-valid domain object
// never fails.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) tag(t byte) { w.buf.WriteByte(t) }

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) i64(v int64) { w.u64(uint64(v)) }

func (w *writer) bytesField(t byte, data []byte) {
	w.tag(t)
	w.u64(uint64(len(data)))
	w.buf.Write(data)
}

func (w *writer) point(t byte, p curve.Point) {
	w.bytesField(t, p.Bytes())
}

func (w *writer) hash(t byte, h [32]byte) {
	w.tag(t)
	w.buf.Write(h[:])
}

func writeClusterTags(w *writer, t byte, entries []clusterTagPair) {
	w.tag(t)
	w.u64(uint64(len(entries)))
	for _, e := range entries {
		w.u64(uint64(e.Cluster))
		w.u64(e.Weight)
	}
}

type clusterTagPair struct {
	Cluster clustertag.ClusterID
	Weight  uint64
}

func blake3Sum(data []byte) [32]byte {
	return blake3.Sum256(data)
}
