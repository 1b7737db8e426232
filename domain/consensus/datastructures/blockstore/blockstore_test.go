package blockstore

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/botho-project/botho/txtypes"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	handle, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	return handle
}

func randomPoint(t *testing.T) curve.Point {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return curve.ScalarBaseMult(s)
}

func sampleBlock(t *testing.T, height uint64) *txtypes.Block {
	t.Helper()
	return &txtypes.Block{
		Header: txtypes.BlockHeader{
			Version:        1,
			PrevBlockHash:  txtypes.Hash{byte(height)},
			TxRoot:         txtypes.Hash{byte(height + 1)},
			Height:         height,
			Difficulty:     1000,
			MinterViewKey:  randomPoint(t),
			MinterSpendKey: randomPoint(t),
		},
		MintingTx: txtypes.Transaction{Version: 1},
	}
}

func TestStageBlockByHashAndHeight(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	hash := txtypes.Hash{7}
	block := sampleBlock(t, 3)

	batch := handle.NewBatch()
	Stage(batch, hash, 3, block)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	byHash, ok, err := store.Block(hash)
	if err != nil || !ok {
		t.Fatalf("Block by hash: ok=%v err=%v", ok, err)
	}
	if byHash.Header.Height != 3 {
		t.Fatalf("Block by hash height = %d, want 3", byHash.Header.Height)
	}

	byHeight, ok, err := store.BlockByHeight(3)
	if err != nil || !ok {
		t.Fatalf("BlockByHeight: ok=%v err=%v", ok, err)
	}
	if byHeight.Header.TxRoot != block.Header.TxRoot {
		t.Fatalf("BlockByHeight TxRoot mismatch")
	}
}

func TestUnstageRemovesBothIndices(t *testing.T) {
	handle := openTestDB(t)
	store := New(handle)

	hash := txtypes.Hash{8}
	block := sampleBlock(t, 5)

	batch := handle.NewBatch()
	Stage(batch, hash, 5, block)
	if err := handle.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	unstageBatch := handle.NewBatch()
	Unstage(unstageBatch, hash, 5)
	if err := handle.Commit(unstageBatch); err != nil {
		t.Fatalf("Commit unstage: %v", err)
	}

	if _, ok, err := store.Block(hash); err != nil || ok {
		t.Fatalf("Block after unstage: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.BlockByHeight(5); err != nil || ok {
		t.Fatalf("BlockByHeight after unstage: ok=%v err=%v", ok, err)
	}
}
