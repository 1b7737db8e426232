// Package mining implements the PoW nonce search and the
// difficulty<->target conversion shared by the block builder and the
// block validator (spec.md §4.9).
//
// Grounded on the teacher's mining package (SolveBlock incrementing a
// nonce until consensushashing.BlockHash clears the compact-bits
// target), adapted from DomainBlock/compact bits to txtypes.BlockHeader
// and a plain uint64 difficulty, and from SHA-256d to the Blake3 header
// hash domain.
package mining

import (
	"math"
	"math/big"
	"math/rand"

	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/txtypes"
)

// TargetForDifficulty converts a block's difficulty field into the hash
// target a valid proof of work must not exceed: target = PowMax /
// max(difficulty, 1), the same inverse relationship the teacher's
// compact-bits target encodes (higher difficulty, lower target).
func TargetForDifficulty(difficulty uint64, params *chainparams.Params) *big.Int {
	if difficulty == 0 {
		difficulty = 1
	}
	return new(big.Int).Div(params.PowMax, new(big.Int).SetUint64(difficulty))
}

// HashMeetsTarget reports whether hash, read as a big-endian integer, is
// at or below target.
func HashMeetsTarget(hash txtypes.Hash, target *big.Int) bool {
	value := new(big.Int).SetBytes(hash[:])
	return value.Cmp(target) <= 0
}

// SolveHeader increments header's nonce, starting from a random offset,
// until its Blake3 hash meets target. It returns the winning hash.
// Botho has no "went over the whole nonce space" panic path the teacher
// takes: at expected mainnet difficulties the search always completes
// long before the uint64 nonce space is exhausted, and a caller that
// wants a bound should race this against a context instead.
func SolveHeader(header *txtypes.BlockHeader, target *big.Int, rd *rand.Rand) txtypes.Hash {
	for i := rd.Uint64(); ; i++ {
		header.Nonce = i
		hash := hashserialization.HeaderHash(header)
		if HashMeetsTarget(hash, target) {
			return hash
		}
		if i == math.MaxUint64 {
			i = 0
		}
	}
}
