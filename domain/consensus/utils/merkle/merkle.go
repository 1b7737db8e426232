// Package merkle computes tx_root, the block-header field committing
// to a block's full transaction set (spec.md §3, §4.9).
//
// Grounded on the teacher's merkle package: same power-of-two padding
// and "duplicate the last node when a level is odd" shape, retargeted
// from DomainTransaction/double-SHA256 to txtypes.Transaction/Blake3
// per spec.md §6.
package merkle

import (
	"math"

	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/txtypes"
	"lukechampine.com/blake3"
)

// nextPowerOfTwo returns the next highest power of two from n, or n
// itself if it is already a power of two.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}
	exponent := uint(math.Log2(float64(n))) + 1
	return 1 << exponent
}

func hashMerkleBranches(left, right txtypes.Hash) txtypes.Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return blake3.Sum256(buf[:])
}

// CalculateTxRoot computes the merkle root over every transaction hash
// in a block, the minting transaction first (spec.md §4.9: "Compute
// tx_root = H(H(tx_1) ‖ H(tx_2) ‖ ...)").
func CalculateTxRoot(mintingTx *txtypes.Transaction, transactions []txtypes.Transaction) txtypes.Hash {
	hashes := make([]txtypes.Hash, 0, len(transactions)+1)
	hashes = append(hashes, hashserialization.TransactionHash(mintingTx))
	for i := range transactions {
		hashes = append(hashes, hashserialization.TransactionHash(&transactions[i]))
	}
	return root(hashes)
}

// root builds the merkle tree as a linear array and returns its top node.
func root(leaves []txtypes.Hash) txtypes.Hash {
	if len(leaves) == 0 {
		return txtypes.Hash{}
	}

	nextPoT := nextPowerOfTwo(len(leaves))
	arraySize := nextPoT*2 - 1
	nodes := make([]*txtypes.Hash, arraySize)

	for i := range leaves {
		h := leaves[i]
		nodes[i] = &h
	}

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case nodes[i] == nil:
			nodes[offset] = nil
		case nodes[i+1] == nil:
			h := hashMerkleBranches(*nodes[i], *nodes[i])
			nodes[offset] = &h
		default:
			h := hashMerkleBranches(*nodes[i], *nodes[i+1])
			nodes[offset] = &h
		}
		offset++
	}

	return *nodes[len(nodes)-1]
}
