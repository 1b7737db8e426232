package hashserialization

import "github.com/botho-project/botho/txtypes"

// HeaderHash returns a block header's canonical hash, used for
// block-to-block linking via PrevBlockHash.
func HeaderHash(h *txtypes.BlockHeader) txtypes.Hash {
	w := &writer{}
	serializeHeader(w, h)
	return blake3Sum(w.buf.Bytes())
}

func serializeHeader(w *writer, h *txtypes.BlockHeader) {
	w.tag(tagHdrVersion)
	w.u32(h.Version)

	w.tag(tagHdrPrevHash)
	w.buf.Write(h.PrevBlockHash[:])

	w.tag(tagHdrTxRoot)
	w.buf.Write(h.TxRoot[:])

	w.tag(tagHdrTimestamp)
	w.i64(h.Timestamp)

	w.tag(tagHdrHeight)
	w.u64(h.Height)

	w.tag(tagHdrDifficulty)
	w.u64(h.Difficulty)

	w.tag(tagHdrNonce)
	w.u64(h.Nonce)

	w.tag(tagHdrMinterView)
	w.point(0, h.MinterViewKey)

	w.tag(tagHdrMinterSpend)
	w.point(0, h.MinterSpendKey)

	w.tag(tagHdrEnd)
}
