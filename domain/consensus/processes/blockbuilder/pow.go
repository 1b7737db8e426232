package blockbuilder

import (
	"math/big"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/domain/consensus/utils/mining"
	"github.com/botho-project/botho/txtypes"
)

// solveParallel searches for a nonce satisfying target across threads
// workers, each scanning a disjoint nonce stride: a shared random base
// plus the worker's index, stepping by threads. The first worker to find a match sets found and
// publishes its nonce; every other worker notices found on its next
// hash attempt and returns, matching the teacher's mining.go
// shared-atomic-flag CPU-bound-loop shape.
func solveParallel(header *txtypes.BlockHeader, target *big.Int, threads int, rd *rand.Rand) uint64 {
	var found atomic.Bool
	var winner uint64
	var once sync.Once
	var wg sync.WaitGroup

	wg.Add(threads)
	base := rd.Uint64()
	for worker := 0; worker < threads; worker++ {
		startOffset := base + uint64(worker)
		go func(start uint64) {
			defer wg.Done()
			local := *header
			stride := uint64(threads)
			if stride == 0 {
				stride = 1
			}
			for nonce := start; !found.Load(); nonce += stride {
				local.Nonce = nonce
				hash := hashserialization.HeaderHash(&local)
				if mining.HashMeetsTarget(hash, target) {
					once.Do(func() {
						winner = nonce
						found.Store(true)
					})
					return
				}
			}
		}(startOffset)
	}
	wg.Wait()
	return winner
}
