package ledgercodec

import (
	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/pq"
	"github.com/botho-project/botho/crypto/ringsig"
	"github.com/botho-project/botho/txtypes"
)

func (w *writer) ringMember(m txtypes.RingMember) {
	w.point(m.PublicKey)
	w.point(m.Commitment)
}

func (r *reader) ringMember() txtypes.RingMember {
	return txtypes.RingMember{PublicKey: r.point(), Commitment: r.point()}
}

func (w *writer) inputRules(rules *txtypes.InputRules) {
	if rules == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(rules.TombstoneBlock)
	w.u64(uint64(len(rules.RequiredOutputs)))
	for _, h := range rules.RequiredOutputs {
		w.hash(h)
	}
}

func (r *reader) inputRules() *txtypes.InputRules {
	if r.u8() == 0 {
		return nil
	}
	rules := &txtypes.InputRules{TombstoneBlock: r.u64()}
	n := r.u64()
	if r.err != nil {
		return rules
	}
	rules.RequiredOutputs = make([]txtypes.Hash, n)
	for i := range rules.RequiredOutputs {
		rules.RequiredOutputs[i] = r.hash()
	}
	return rules
}

func (w *writer) lionSignature(sig *pq.Signature) {
	if sig == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.poly(sig.C0)
	w.u64(uint64(len(sig.Responses)))
	for _, v := range sig.Responses {
		w.polyVec(v)
	}
	w.raw(sig.KeyImage[:])
}

func (r *reader) lionSignature() *pq.Signature {
	if r.u8() == 0 {
		return nil
	}
	sig := &pq.Signature{C0: r.poly()}
	n := r.u64()
	if r.err != nil {
		return sig
	}
	sig.Responses = make([]pq.PolyVec, n)
	for i := range sig.Responses {
		sig.Responses[i] = r.polyVec()
	}
	copy(sig.KeyImage[:], r.rawN(32))
	return sig
}

func (w *writer) pqProof(p *txtypes.PQProof) {
	if p == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.lionSignature(p.LionSignature)
	w.bytesPtr(p.DsaSignature)
}

func (r *reader) pqProof() *txtypes.PQProof {
	if r.u8() == 0 {
		return nil
	}
	return &txtypes.PQProof{
		LionSignature: r.lionSignature(),
		DsaSignature:  r.bytesPtrField(),
	}
}

func (w *writer) ringSignature(sig *ringsig.Signature) {
	if sig == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.scalar(sig.C0)
	w.u64(uint64(len(sig.S)))
	for _, pair := range sig.S {
		w.scalar(pair[0])
		w.scalar(pair[1])
	}
	for _, ki := range sig.KeyImages {
		w.point(ki)
	}
}

func (r *reader) ringSignature() *ringsig.Signature {
	if r.u8() == 0 {
		return nil
	}
	sig := &ringsig.Signature{C0: r.scalar()}
	n := r.u64()
	if r.err == nil {
		sig.S = make([][2]curve.Scalar, n)
		for i := range sig.S {
			sig.S[i][0] = r.scalar()
			sig.S[i][1] = r.scalar()
		}
	}
	for i := range sig.KeyImages {
		sig.KeyImages[i] = r.point()
	}
	return sig
}

func (w *writer) rangeProof(p *commitment.RangeProof) {
	w.bytes(p.Bytes())
}

func (r *reader) rangeProof() *commitment.RangeProof {
	data := r.bytesField()
	if r.err != nil {
		return nil
	}
	proof, err := commitment.ParseRangeProof(data)
	if err != nil {
		r.fail(err)
		return nil
	}
	return proof
}

func (w *writer) balanceProof(p *commitment.BalanceProof) {
	if p == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.point(p.R)
	w.scalar(p.S)
}

func (r *reader) balanceProof() *commitment.BalanceProof {
	if r.u8() == 0 {
		return nil
	}
	return &commitment.BalanceProof{R: r.point(), S: r.scalar()}
}

func (w *writer) committedTagVector(v clustertag.CommittedTagVector) {
	w.u64(uint64(len(v.ClusterCommitments)))
	for cluster, c := range v.ClusterCommitments {
		w.u64(uint64(cluster))
		w.point(c)
	}
	w.point(v.BackgroundCommit)
}

func (r *reader) committedTagVector() clustertag.CommittedTagVector {
	n := r.u64()
	v := clustertag.CommittedTagVector{ClusterCommitments: make(map[clustertag.ClusterID]curve.Point, n)}
	for i := uint64(0); i < n && r.err == nil; i++ {
		cluster := clustertag.ClusterID(r.u64())
		v.ClusterCommitments[cluster] = r.point()
	}
	v.BackgroundCommit = r.point()
	return v
}

func (w *writer) inheritanceProof(p clustertag.InheritanceProof) {
	w.u64(uint64(p.InputIndex))
	w.point(p.Commitment)
}

func (r *reader) inheritanceProof() clustertag.InheritanceProof {
	return clustertag.InheritanceProof{InputIndex: int(r.u64()), Commitment: r.point()}
}

func (w *writer) tagProof(p *clustertag.ClusterTagProof) {
	if p == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(uint64(len(p.InheritanceProofs)))
	for _, ip := range p.InheritanceProofs {
		w.inheritanceProof(ip)
	}
	w.point(p.ConservationProof.R)
	w.scalar(p.ConservationProof.S)
}

func (r *reader) tagProof() *clustertag.ClusterTagProof {
	if r.u8() == 0 {
		return nil
	}
	p := &clustertag.ClusterTagProof{}
	n := r.u64()
	if r.err == nil {
		p.InheritanceProofs = make([]clustertag.InheritanceProof, n)
		for i := range p.InheritanceProofs {
			p.InheritanceProofs[i] = r.inheritanceProof()
		}
	}
	p.ConservationProof = clustertag.ConservationProof{R: r.point(), S: r.scalar()}
	return p
}

func (w *writer) txIn(in *txtypes.TxIn) {
	w.u64(uint64(len(in.Ring)))
	for _, m := range in.Ring {
		w.ringMember(m)
	}
	w.point(in.KeyImage)
	w.ringSignature(in.Signature)
	w.pqProof(in.PQ)
	w.inputRules(in.InputRules)
}

func (r *reader) txIn() txtypes.TxIn {
	var in txtypes.TxIn
	n := r.u64()
	if r.err != nil {
		return in
	}
	in.Ring = make([]txtypes.RingMember, n)
	for i := range in.Ring {
		in.Ring[i] = r.ringMember()
	}
	in.KeyImage = r.point()
	in.Signature = r.ringSignature()
	in.PQ = r.pqProof()
	in.InputRules = r.inputRules()
	return in
}

// EncodeTransaction serializes a full transaction, including signatures
// and proofs, for persistence in the block store.
func EncodeTransaction(tx *txtypes.Transaction) []byte {
	w := &writer{}
	w.u32(tx.Version)

	w.u64(uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		w.txIn(&tx.Inputs[i])
	}

	w.u64(uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		w.txOut(&tx.Outputs[i])
	}

	w.u64(tx.FeeAmount)
	w.u64(uint64(tx.FeeTokenID))
	w.u64(tx.TombstoneBlock)

	w.u64(uint64(len(tx.PseudoOutputs)))
	for _, p := range tx.PseudoOutputs {
		w.point(p)
	}

	w.u64(uint64(len(tx.RangeProofs)))
	for _, p := range tx.RangeProofs {
		w.rangeProof(p)
	}

	w.balanceProof(tx.BalanceProof)

	w.u64(uint64(len(tx.CommittedTags)))
	for _, ct := range tx.CommittedTags {
		w.committedTagVector(ct)
	}
	w.tagProof(tx.TagProof)

	return w.buf
}

// DecodeTransaction parses the bytes EncodeTransaction produces.
func DecodeTransaction(data []byte) (*txtypes.Transaction, error) {
	r := &reader{buf: data}
	tx := &txtypes.Transaction{}
	tx.Version = r.u32()

	nIn := r.u64()
	if r.err == nil {
		tx.Inputs = make([]txtypes.TxIn, nIn)
		for i := range tx.Inputs {
			tx.Inputs[i] = r.txIn()
		}
	}

	nOut := r.u64()
	if r.err == nil {
		tx.Outputs = make([]txtypes.TxOut, nOut)
		for i := range tx.Outputs {
			tx.Outputs[i] = r.txOut()
		}
	}

	tx.FeeAmount = r.u64()
	tx.FeeTokenID = txtypes.TokenID(r.u64())
	tx.TombstoneBlock = r.u64()

	nPseudo := r.u64()
	if r.err == nil {
		tx.PseudoOutputs = make([]curve.Point, nPseudo)
		for i := range tx.PseudoOutputs {
			tx.PseudoOutputs[i] = r.point()
		}
	}

	nRange := r.u64()
	if r.err == nil {
		tx.RangeProofs = make([]*commitment.RangeProof, nRange)
		for i := range tx.RangeProofs {
			tx.RangeProofs[i] = r.rangeProof()
		}
	}

	tx.BalanceProof = r.balanceProof()

	nTags := r.u64()
	if r.err == nil && nTags > 0 {
		tx.CommittedTags = make([]clustertag.CommittedTagVector, nTags)
		for i := range tx.CommittedTags {
			tx.CommittedTags[i] = r.committedTagVector()
		}
	}
	tx.TagProof = r.tagProof()

	if err := r.done(); err != nil {
		return nil, err
	}
	return tx, nil
}
