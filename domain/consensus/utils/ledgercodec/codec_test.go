package ledgercodec

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/ringsig"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/txtypes"
)

func randomScalar(t *testing.T) curve.Scalar {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return s
}

func randomPoint(t *testing.T) curve.Point {
	t.Helper()
	return curve.ScalarBaseMult(randomScalar(t))
}

func sampleOutput(t *testing.T) txtypes.TxOut {
	t.Helper()
	memo := [32]byte{1, 2, 3}
	return txtypes.TxOut{
		Commitment: randomPoint(t),
		TargetKey:  randomPoint(t),
		PublicKey:  randomPoint(t),
		MaskedAmount: txtypes.MaskedAmount{
			Version:     txtypes.MaskedAmountV1,
			MaskedValue: [8]byte{9, 9, 9},
			MaskedBlind: [32]byte{7, 7, 7},
		},
		EncryptedMemo: &memo,
		ClusterTags: []txtypes.ClusterTagEntry{
			{Cluster: 1, Weight: 500_000},
			{Cluster: 3, Weight: 500_000},
		},
	}
}

func TestUTXOEntryRoundTrip(t *testing.T) {
	entry := externalapi.NewUTXOEntry(sampleOutput(t), txtypes.TokenID(1), 17, true)

	data := EncodeUTXOEntry(entry)
	decoded, err := DecodeUTXOEntry(data)
	if err != nil {
		t.Fatalf("DecodeUTXOEntry: %v", err)
	}
	if !entry.Equal(decoded) {
		t.Fatalf("decoded entry does not equal original")
	}
	if decoded.BlockHeight != 17 || !decoded.IsCoinbase {
		t.Fatalf("decoded entry metadata mismatch: %+v", decoded)
	}
	if len(decoded.Output.ClusterTags) != 2 || decoded.Output.ClusterTags[1].Cluster != 3 {
		t.Fatalf("decoded cluster tags mismatch: %+v", decoded.Output.ClusterTags)
	}
}

func sampleTransaction(t *testing.T) (*txtypes.Transaction, curve.Scalar) {
	t.Helper()

	spendKeys := []curve.Point{randomPoint(t), randomPoint(t)}
	commitmentDiffs := []curve.Point{randomPoint(t), randomPoint(t)}
	spendPriv := randomScalar(t)
	commitPriv := randomScalar(t)
	sig, err := ringsig.Sign([]byte("test message"), spendKeys, commitmentDiffs, 0, spendPriv, commitPriv)
	if err != nil {
		t.Fatalf("ringsig.Sign: %v", err)
	}

	blinding := randomScalar(t)
	rangeProof, err := commitment.Prove(1000, blinding)
	if err != nil {
		t.Fatalf("commitment.Prove: %v", err)
	}

	balanceProof, err := commitment.ProveBalance(randomPoint(t), randomScalar(t))
	if err != nil {
		t.Fatalf("commitment.ProveBalance: %v", err)
	}

	tx := &txtypes.Transaction{
		Version: 1,
		Inputs: []txtypes.TxIn{
			{
				Ring: []txtypes.RingMember{
					{PublicKey: spendKeys[0], Commitment: commitmentDiffs[0]},
					{PublicKey: spendKeys[1], Commitment: commitmentDiffs[1]},
				},
				KeyImage:  sig.SpendKeyImage(),
				Signature: sig,
				InputRules: &txtypes.InputRules{
					TombstoneBlock:  100,
					RequiredOutputs: []txtypes.Hash{{1, 2, 3}},
				},
			},
		},
		Outputs:        []txtypes.TxOut{sampleOutput(t)},
		FeeAmount:      250,
		FeeTokenID:     1,
		TombstoneBlock: 500,
		PseudoOutputs:  []curve.Point{randomPoint(t)},
		RangeProofs:    []*commitment.RangeProof{rangeProof},
		BalanceProof:   balanceProof,
		CommittedTags: []clustertag.CommittedTagVector{
			{
				ClusterCommitments: map[clustertag.ClusterID]curve.Point{1: randomPoint(t)},
				BackgroundCommit:   randomPoint(t),
			},
		},
		TagProof: &clustertag.ClusterTagProof{
			InheritanceProofs: []clustertag.InheritanceProof{
				{InputIndex: 0, Commitment: randomPoint(t)},
			},
			ConservationProof: clustertag.ConservationProof{R: randomPoint(t), S: randomScalar(t)},
		},
	}
	return tx, blinding
}

func TestTransactionRoundTrip(t *testing.T) {
	tx, blinding := sampleTransaction(t)

	data := EncodeTransaction(tx)
	decoded, err := DecodeTransaction(data)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	if decoded.Version != tx.Version || decoded.FeeAmount != tx.FeeAmount ||
		decoded.FeeTokenID != tx.FeeTokenID || decoded.TombstoneBlock != tx.TombstoneBlock {
		t.Fatalf("scalar fields mismatch: %+v", decoded)
	}
	if len(decoded.Inputs) != 1 || len(decoded.Inputs[0].Ring) != 2 {
		t.Fatalf("input ring mismatch: %+v", decoded.Inputs)
	}
	if !decoded.Inputs[0].KeyImage.Equal(tx.Inputs[0].KeyImage) {
		t.Fatalf("key image mismatch")
	}
	if decoded.Inputs[0].InputRules == nil || decoded.Inputs[0].InputRules.TombstoneBlock != 100 {
		t.Fatalf("input rules mismatch: %+v", decoded.Inputs[0].InputRules)
	}
	if len(decoded.Outputs) != 1 {
		t.Fatalf("outputs mismatch: %+v", decoded.Outputs)
	}
	if len(decoded.RangeProofs) != 1 || !decoded.RangeProofs[0].Verify(commitment.Commit(1000, blinding)) {
		t.Fatalf("decoded range proof failed to verify")
	}
	if len(decoded.CommittedTags) != 1 || len(decoded.CommittedTags[0].ClusterCommitments) != 1 {
		t.Fatalf("committed tags mismatch: %+v", decoded.CommittedTags)
	}
	if decoded.TagProof == nil || len(decoded.TagProof.InheritanceProofs) != 1 {
		t.Fatalf("tag proof mismatch: %+v", decoded.TagProof)
	}
	if !decoded.TagProof.ConservationProof.R.Equal(tx.TagProof.ConservationProof.R) {
		t.Fatalf("conservation proof mismatch")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	mintOut := sampleOutput(t)
	tx, _ := sampleTransaction(t)
	block := &txtypes.Block{
		Header: txtypes.BlockHeader{
			Version:        1,
			PrevBlockHash:  txtypes.Hash{9},
			TxRoot:         txtypes.Hash{8},
			Timestamp:      1_700_000_000,
			Height:         12,
			Difficulty:     9999,
			Nonce:          42,
			MinterViewKey:  randomPoint(t),
			MinterSpendKey: randomPoint(t),
		},
		MintingTx: txtypes.Transaction{
			Version: 1,
			Outputs: []txtypes.TxOut{mintOut},
		},
		Transactions: []txtypes.Transaction{*tx},
		Lottery: []txtypes.LotteryOutput{
			{Out: sampleOutput(t), Amount: 77},
		},
	}

	data := EncodeBlock(block)
	decoded, err := DecodeBlock(data)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}

	if decoded.Header.Height != 12 || decoded.Header.Nonce != 42 {
		t.Fatalf("header mismatch: %+v", decoded.Header)
	}
	if len(decoded.MintingTx.Outputs) != 1 {
		t.Fatalf("minting tx outputs mismatch: %+v", decoded.MintingTx)
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("transactions mismatch: %+v", decoded.Transactions)
	}
	if len(decoded.Lottery) != 1 || decoded.Lottery[0].Amount != 77 {
		t.Fatalf("lottery mismatch: %+v", decoded.Lottery)
	}

	headerOnly := EncodeBlockHeader(&block.Header)
	decodedHeader, err := DecodeBlockHeader(headerOnly)
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	if decodedHeader.TxRoot != block.Header.TxRoot {
		t.Fatalf("decoded header tx root mismatch")
	}
}
