package hashserialization

import "github.com/botho-project/botho/txtypes"

// encodingMode selects which transaction fields serializeTransaction
// writes, mirroring the teacher's txEncoding bitmask (there: exclude
// payload/signature-script for TxID; here: exclude signatures for the
// signing hash per spec.md §3, "the signing hash excludes the
// signatures").
type encodingMode uint8

const (
	encodingFull encodingMode = iota
	encodingExcludeSignatures
)

// TransactionHash returns tx's canonical hash over every encoded field,
// ring signatures, range proofs, balance proof and ML-DSA signatures
// included (TagProof, Lion signatures and Lion public keys are not
// encoded) — the identifier used for UTXO lookups and on-chain
// references.
func TransactionHash(tx *txtypes.Transaction) txtypes.Hash {
	w := &writer{}
	serializeTransaction(w, tx, encodingFull)
	return blake3Sum(w.buf.Bytes())
}

// TransactionSigningHash returns the hash ring signatures and PQ
// signatures are computed over: the TransactionHash encoding without the
// ring signatures, ML-DSA signatures, range proofs and balance proof, so
// a signature can't be used to forge its own transcript.
func TransactionSigningHash(tx *txtypes.Transaction) txtypes.Hash {
	w := &writer{}
	serializeTransaction(w, tx, encodingExcludeSignatures)
	return blake3Sum(w.buf.Bytes())
}

func serializeTransaction(w *writer, tx *txtypes.Transaction, mode encodingMode) {
	w.tag(tagTxVersion)
	w.u32(tx.Version)

	for i := range tx.Inputs {
		w.tag(tagTxInput)
		serializeInput(w, &tx.Inputs[i], mode)
	}

	for i := range tx.Outputs {
		w.tag(tagTxOutput)
		serializeOutput(w, &tx.Outputs[i])
	}

	w.tag(tagTxFeeAmount)
	w.u64(tx.FeeAmount)

	w.tag(tagTxFeeTokenID)
	w.u64(uint64(tx.FeeTokenID))

	w.tag(tagTxTombstone)
	w.u64(tx.TombstoneBlock)

	for _, p := range tx.PseudoOutputs {
		w.point(tagTxPseudoOutput, p)
	}

	if mode != encodingExcludeSignatures {
		for _, rp := range tx.RangeProofs {
			w.tag(tagTxRangeProof)
			w.bytesField(0, rp.Bytes())
		}
		if tx.BalanceProof != nil {
			w.tag(tagTxBalanceProof)
			w.point(0, tx.BalanceProof.R)
			w.bytesField(0, tx.BalanceProof.S.Bytes())
		}
		for i := range tx.Inputs {
			if tx.Inputs[i].Signature == nil {
				continue
			}
			w.tag(tagTxSignature)
			serializeRingSignature(w, tx.Inputs[i].Signature)
		}
	}

	for _, ct := range tx.CommittedTags {
		w.tag(tagTxCommittedTags)
		serializeCommittedTagVector(w, ct)
	}

	w.tag(tagTxEnd)
}

func serializeInput(w *writer, in *txtypes.TxIn, mode encodingMode) {
	for _, m := range in.Ring {
		w.tag(tagInRingMember)
		w.point(0, m.PublicKey)
		w.point(0, m.Commitment)
	}

	w.tag(tagInKeyImage)
	w.point(0, in.KeyImage)

	if in.InputRules != nil {
		w.tag(tagInInputRules)
		w.u64(in.InputRules.TombstoneBlock)
		w.u64(uint64(len(in.InputRules.RequiredOutputs)))
		for _, h := range in.InputRules.RequiredOutputs {
			w.buf.Write(h[:])
		}
	}

	if mode != encodingExcludeSignatures && in.PQ != nil {
		w.tag(tagInPQ)
		w.bytesField(0, in.PQ.DsaSignature)
	}

	w.tag(tagInEnd)
}

func serializeOutput(w *writer, out *txtypes.TxOut) {
	w.tag(tagOutCommitment)
	w.point(0, out.Commitment)

	w.tag(tagOutTargetKey)
	w.point(0, out.TargetKey)

	w.tag(tagOutPublicKey)
	w.point(0, out.PublicKey)

	w.tag(tagOutMaskedAmount)
	w.buf.WriteByte(byte(out.MaskedAmount.Version))
	w.buf.Write(out.MaskedAmount.MaskedValue[:])
	w.buf.Write(out.MaskedAmount.MaskedBlind[:])

	if out.EncryptedMemo != nil {
		w.tag(tagOutMemo)
		w.buf.Write(out.EncryptedMemo[:])
	}

	if len(out.ClusterTags) > 0 {
		pairs := make([]clusterTagPair, len(out.ClusterTags))
		for i, e := range out.ClusterTags {
			pairs[i] = clusterTagPair{Cluster: e.Cluster, Weight: e.Weight}
		}
		writeClusterTags(w, tagOutClusterTag, pairs)
	}

	if out.PQEnvelope != nil {
		w.tag(tagOutPQEnvelope)
		w.bytesField(0, out.PQEnvelope.KemCiphertext)
		w.bytesField(0, out.PQEnvelope.SigPublicKey)
	}

	w.tag(tagOutEnd)
}
