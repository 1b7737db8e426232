package consensusstatemanager

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/processes/transactionvalidator"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
)

func newTestManager(t *testing.T) (*Manager, *chainparams.Params) {
	t.Helper()
	handle, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	params := chainparams.SimNetParams
	validator := transactionvalidator.New(&params, clustertag.DefaultFeeCurve)

	m, err := New(handle, validator, &params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, &params
}

func randomPoint(t *testing.T) curve.Point {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return curve.ScalarBaseMult(s)
}

// mintBlock builds a minting-only block (no ring transactions) extending
// prevHash at height, the minimal shape AppendBlock will accept without
// needing a full ring-signed transaction.
func mintBlock(t *testing.T, prevHash txtypes.Hash, height uint64) *txtypes.Block {
	t.Helper()
	return &txtypes.Block{
		Header: txtypes.BlockHeader{
			Version:        1,
			PrevBlockHash:  prevHash,
			Height:         height,
			Difficulty:     1,
			MinterViewKey:  randomPoint(t),
			MinterSpendKey: randomPoint(t),
		},
		MintingTx: txtypes.Transaction{
			Version: 1,
			Outputs: []txtypes.TxOut{
				{
					Commitment: randomPoint(t),
					TargetKey:  randomPoint(t),
					PublicKey:  randomPoint(t),
				},
			},
		},
	}
}

func TestAppendBlockAdvancesTipAndCreditsMintCluster(t *testing.T) {
	m, params := newTestManager(t)

	if m.Height() != 0 {
		t.Fatalf("Height() before genesis = %d, want 0", m.Height())
	}

	genesis := mintBlock(t, txtypes.Hash{}, 0)
	if err := m.AppendBlock(genesis); err != nil {
		t.Fatalf("AppendBlock genesis: %v", err)
	}
	if m.Height() != 0 {
		t.Fatalf("Height() after genesis = %d, want 0", m.Height())
	}

	genesisHash := hashserialization.HeaderHash(&genesis.Header)
	out := genesis.MintingTx.Outputs[0]
	entry, ok := m.UTXOEntry(out.PublicKey, out.Commitment)
	if !ok {
		t.Fatalf("minting output not found in UTXO set")
	}
	if !entry.IsCoinbase {
		t.Fatalf("minting output not marked coinbase")
	}

	wealth := m.ClusterWealth()
	if got := wealth.Get(clustertag.ClusterID(0)); got != params.BlockReward {
		t.Fatalf("mint cluster wealth = %d, want %d", got, params.BlockReward)
	}

	next := mintBlock(t, genesisHash, 1)
	if err := m.AppendBlock(next); err != nil {
		t.Fatalf("AppendBlock height 1: %v", err)
	}
	if m.Height() != 1 {
		t.Fatalf("Height() = %d, want 1", m.Height())
	}
}

func TestAppendBlockRejectsWrongHeight(t *testing.T) {
	m, _ := newTestManager(t)

	bad := mintBlock(t, txtypes.Hash{}, 5)
	if err := m.AppendBlock(bad); err == nil {
		t.Fatalf("expected an error appending a block at the wrong height")
	}
}

func TestRevertToUndoesAppendBlock(t *testing.T) {
	m, params := newTestManager(t)

	genesis := mintBlock(t, txtypes.Hash{}, 0)
	if err := m.AppendBlock(genesis); err != nil {
		t.Fatalf("AppendBlock genesis: %v", err)
	}
	genesisHash := hashserialization.HeaderHash(&genesis.Header)

	next := mintBlock(t, genesisHash, 1)
	if err := m.AppendBlock(next); err != nil {
		t.Fatalf("AppendBlock height 1: %v", err)
	}

	if err := m.RevertTo(0); err != nil {
		t.Fatalf("RevertTo(0): %v", err)
	}
	if m.Height() != 0 {
		t.Fatalf("Height() after revert = %d, want 0", m.Height())
	}

	out := next.MintingTx.Outputs[0]
	if _, ok := m.UTXOEntry(out.PublicKey, out.Commitment); ok {
		t.Fatalf("reverted block's output still present in UTXO set")
	}

	wealth := m.ClusterWealth()
	if got := wealth.Get(clustertag.ClusterID(1)); got != 0 {
		t.Fatalf("reverted mint cluster wealth = %d, want 0", got)
	}
	if got := wealth.Get(clustertag.ClusterID(0)); got != params.BlockReward {
		t.Fatalf("genesis mint cluster wealth after revert = %d, want %d", got, params.BlockReward)
	}

	if err := m.RevertTo(0); err != nil {
		t.Fatalf("RevertTo(0) again (no-op): %v", err)
	}
}

func TestExportImportRestoresState(t *testing.T) {
	m, _ := newTestManager(t)
	genesis := mintBlock(t, txtypes.Hash{}, 0)
	if err := m.AppendBlock(genesis); err != nil {
		t.Fatalf("AppendBlock genesis: %v", err)
	}

	snapshot, err := m.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	fresh, _ := newTestManager(t)
	if err := fresh.Import(snapshot); err != nil {
		t.Fatalf("Import: %v", err)
	}

	out := genesis.MintingTx.Outputs[0]
	if _, ok := fresh.UTXOEntry(out.PublicKey, out.Commitment); !ok {
		t.Fatalf("imported manager missing the original minting output")
	}
	if fresh.ClusterWealth().Get(clustertag.ClusterID(0)) != m.ClusterWealth().Get(clustertag.ClusterID(0)) {
		t.Fatalf("imported cluster wealth does not match source")
	}
}
