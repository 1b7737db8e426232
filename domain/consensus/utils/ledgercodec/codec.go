// Package ledgercodec encodes the ledger's persisted domain types —
// UTXO entries, blocks, and block headers — into the flat binary form
// infrastructure/db stores them in.
//
// It follows the writer style of domain/consensus/utils/hashserialization
// (methods that append to a buffer and never fail) with its own writer
// type, and adds the matching reader that package omits, since hashing
// only ever needs to go one way. Unlike hashserialization's tag-prefixed
// form, the layout here is flat and positional: there is no tag byte per
// field and no per-field forward compatibility, and the stores in
// domain/consensus/datastructures carry no schema version.
package ledgercodec

import (
	"encoding/binary"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/pq"
	"github.com/botho-project/botho/crypto/ringsig"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) i64(v int64) { w.u64(uint64(v)) }

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) bytes(b []byte) {
	w.u64(uint64(len(b)))
	w.raw(b)
}

func (w *writer) bytesPtr(b []byte) {
	if b == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.bytes(b)
}

func (w *writer) point(p curve.Point) { w.raw(p.Bytes()) }

func (w *writer) scalar(s curve.Scalar) { w.raw(s.Bytes()) }

func (w *writer) hash(h txtypes.Hash) { w.raw(h[:]) }

func (w *writer) poly(p pq.Poly) {
	for _, c := range p {
		w.u32(uint32(c))
	}
}

func (w *writer) polyVec(v pq.PolyVec) {
	w.u64(uint64(len(v)))
	for _, p := range v {
		w.poly(p)
	}
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail(errors.Errorf("ledgercodec: truncated buffer, need %d bytes at offset %d of %d", n, r.off, len(r.buf)))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) rawN(n int) []byte {
	b := r.need(n)
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) bytesField() []byte {
	n := r.u64()
	if r.err != nil {
		return nil
	}
	return r.rawN(int(n))
}

func (r *reader) bytesPtrField() []byte {
	if r.u8() == 0 {
		return nil
	}
	return r.bytesField()
}

func (r *reader) point() curve.Point {
	b := r.rawN(32)
	if r.err != nil {
		return curve.Point{}
	}
	p, err := curve.PointFromCanonicalBytes(b)
	if err != nil {
		r.fail(errors.Wrap(err, "decoding point"))
		return curve.Point{}
	}
	return p
}

func (r *reader) scalar() curve.Scalar {
	b := r.rawN(32)
	if r.err != nil {
		return curve.Scalar{}
	}
	s, err := curve.ScalarFromCanonicalBytes(b)
	if err != nil {
		r.fail(errors.Wrap(err, "decoding scalar"))
		return curve.Scalar{}
	}
	return s
}

func (r *reader) hash() txtypes.Hash {
	var h txtypes.Hash
	copy(h[:], r.rawN(32))
	return h
}

func (r *reader) poly() pq.Poly {
	var p pq.Poly
	for i := range p {
		p[i] = int32(r.u32())
	}
	return p
}

func (r *reader) polyVec() pq.PolyVec {
	n := r.u64()
	if r.err != nil {
		return nil
	}
	v := make(pq.PolyVec, n)
	for i := range v {
		v[i] = r.poly()
	}
	return v
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return errors.Errorf("ledgercodec: %d trailing bytes after decode", len(r.buf)-r.off)
	}
	return nil
}

// clusterTagEntries and maskedAmount helpers shared by output encode/decode.

func (w *writer) clusterTags(entries []txtypes.ClusterTagEntry) {
	w.u64(uint64(len(entries)))
	for _, e := range entries {
		w.u64(uint64(e.Cluster))
		w.u64(e.Weight)
	}
}

func (r *reader) clusterTags() []txtypes.ClusterTagEntry {
	n := r.u64()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return nil
	}
	out := make([]txtypes.ClusterTagEntry, n)
	for i := range out {
		out[i] = txtypes.ClusterTagEntry{
			Cluster: clustertag.ClusterID(r.u64()),
			Weight:  r.u64(),
		}
	}
	return out
}

func (w *writer) maskedAmount(m txtypes.MaskedAmount) {
	w.u8(uint8(m.Version))
	w.raw(m.MaskedValue[:])
	w.raw(m.MaskedBlind[:])
}

func (r *reader) maskedAmount() txtypes.MaskedAmount {
	var m txtypes.MaskedAmount
	m.Version = txtypes.MaskedAmountVersion(r.u8())
	copy(m.MaskedValue[:], r.rawN(8))
	copy(m.MaskedBlind[:], r.rawN(32))
	return m
}

func (w *writer) pqEnvelope(e *txtypes.PQEnvelope) {
	if e == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.bytes(e.KemCiphertext)
	w.bytes(e.SigPublicKey)
	w.polyVec(e.LionPublicKey)
}

func (r *reader) pqEnvelope() *txtypes.PQEnvelope {
	if r.u8() == 0 {
		return nil
	}
	return &txtypes.PQEnvelope{
		KemCiphertext: r.bytesField(),
		SigPublicKey:  r.bytesField(),
		LionPublicKey: r.polyVec(),
	}
}

func (w *writer) txOut(out *txtypes.TxOut) {
	w.point(out.Commitment)
	w.point(out.TargetKey)
	w.point(out.PublicKey)
	w.maskedAmount(out.MaskedAmount)
	if out.EncryptedMemo == nil {
		w.u8(0)
	} else {
		w.u8(1)
		w.raw(out.EncryptedMemo[:])
	}
	w.clusterTags(out.ClusterTags)
	w.pqEnvelope(out.PQEnvelope)
}

func (r *reader) txOut() txtypes.TxOut {
	var out txtypes.TxOut
	out.Commitment = r.point()
	out.TargetKey = r.point()
	out.PublicKey = r.point()
	out.MaskedAmount = r.maskedAmount()
	if r.u8() == 1 {
		var memo [32]byte
		copy(memo[:], r.rawN(32))
		out.EncryptedMemo = &memo
	}
	out.ClusterTags = r.clusterTags()
	out.PQEnvelope = r.pqEnvelope()
	return out
}

// EncodeUTXOEntry serializes a UTXO entry for the utxostore.
func EncodeUTXOEntry(entry *externalapi.UTXOEntry) []byte {
	w := &writer{}
	w.txOut(&entry.Output)
	w.u64(uint64(entry.TokenID))
	w.u64(entry.BlockHeight)
	if entry.IsCoinbase {
		w.u8(1)
	} else {
		w.u8(0)
	}
	return w.buf
}

// DecodeUTXOEntry parses the bytes EncodeUTXOEntry produces.
func DecodeUTXOEntry(data []byte) (*externalapi.UTXOEntry, error) {
	r := &reader{buf: data}
	out := r.txOut()
	tokenID := txtypes.TokenID(r.u64())
	height := r.u64()
	isCoinbase := r.u8() == 1
	if err := r.done(); err != nil {
		return nil, err
	}
	return &externalapi.UTXOEntry{
		Output:      out,
		TokenID:     tokenID,
		BlockHeight: height,
		IsCoinbase:  isCoinbase,
	}, nil
}
