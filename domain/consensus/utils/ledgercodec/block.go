package ledgercodec

import "github.com/botho-project/botho/txtypes"

func (w *writer) blockHeader(h *txtypes.BlockHeader) {
	w.u32(h.Version)
	w.hash(h.PrevBlockHash)
	w.hash(h.TxRoot)
	w.i64(h.Timestamp)
	w.u64(h.Height)
	w.u64(h.Difficulty)
	w.u64(h.Nonce)
	w.point(h.MinterViewKey)
	w.point(h.MinterSpendKey)
}

func (r *reader) blockHeader() txtypes.BlockHeader {
	var h txtypes.BlockHeader
	h.Version = r.u32()
	h.PrevBlockHash = r.hash()
	h.TxRoot = r.hash()
	h.Timestamp = r.i64()
	h.Height = r.u64()
	h.Difficulty = r.u64()
	h.Nonce = r.u64()
	h.MinterViewKey = r.point()
	h.MinterSpendKey = r.point()
	return h
}

// EncodeBlockHeader serializes a block header for the block-header store.
func EncodeBlockHeader(h *txtypes.BlockHeader) []byte {
	w := &writer{}
	w.blockHeader(h)
	return w.buf
}

// DecodeBlockHeader parses the bytes EncodeBlockHeader produces.
func DecodeBlockHeader(data []byte) (*txtypes.BlockHeader, error) {
	r := &reader{buf: data}
	h := r.blockHeader()
	if err := r.done(); err != nil {
		return nil, err
	}
	return &h, nil
}

func (w *writer) lotteryOutput(lo *txtypes.LotteryOutput) {
	w.txOut(&lo.Out)
	w.u64(lo.Amount)
}

func (r *reader) lotteryOutput() txtypes.LotteryOutput {
	var lo txtypes.LotteryOutput
	lo.Out = r.txOut()
	lo.Amount = r.u64()
	return lo
}

func (w *writer) transaction(tx *txtypes.Transaction) {
	w.bytes(EncodeTransaction(tx))
}

func (r *reader) transaction() txtypes.Transaction {
	data := r.bytesField()
	if r.err != nil {
		return txtypes.Transaction{}
	}
	tx, err := DecodeTransaction(data)
	if err != nil {
		r.fail(err)
		return txtypes.Transaction{}
	}
	return *tx
}

// EncodeBlock serializes a full block — header, minting transaction,
// ordinary transactions, and lottery outputs — for the block store.
func EncodeBlock(block *txtypes.Block) []byte {
	w := &writer{}
	w.blockHeader(&block.Header)
	w.transaction(&block.MintingTx)

	w.u64(uint64(len(block.Transactions)))
	for i := range block.Transactions {
		w.transaction(&block.Transactions[i])
	}

	w.u64(uint64(len(block.Lottery)))
	for i := range block.Lottery {
		w.lotteryOutput(&block.Lottery[i])
	}

	return w.buf
}

// DecodeBlock parses the bytes EncodeBlock produces.
func DecodeBlock(data []byte) (*txtypes.Block, error) {
	r := &reader{buf: data}
	block := &txtypes.Block{}
	block.Header = r.blockHeader()
	block.MintingTx = r.transaction()

	nTx := r.u64()
	if r.err == nil {
		block.Transactions = make([]txtypes.Transaction, nTx)
		for i := range block.Transactions {
			block.Transactions[i] = r.transaction()
		}
	}

	nLottery := r.u64()
	if r.err == nil {
		block.Lottery = make([]txtypes.LotteryOutput, nLottery)
		for i := range block.Lottery {
			block.Lottery[i] = r.lotteryOutput()
		}
	}

	if err := r.done(); err != nil {
		return nil, err
	}
	return block, nil
}
