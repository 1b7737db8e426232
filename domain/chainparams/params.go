// Package chainparams defines the protocol constants that differentiate
// Botho networks (mainnet and simnet) the way the teacher's
// dagconfig.Params differentiates Kaspa networks — except the fields here
// describe a linear-chain SCP protocol rather than a GHOSTDAG DAG: ring
// size, tag-vector scale, tombstone window, fee floors, and block-version
// feature-activation heights instead of K and pruning depth.
package chainparams

import (
	"math/big"
	"time"
)

// FeatureGate names a feature whose validity is gated by block version.
type FeatureGate int

const (
	// FeatureMaskedTokenID allows a masked (non-native) token identifier
	// on an output.
	FeatureMaskedTokenID FeatureGate = iota
	// FeatureClusterTags allows non-empty cluster tag vectors.
	FeatureClusterTags
	// FeaturePQInputs allows ML-KEM/ML-DSA hybrid PQ inputs and outputs.
	FeaturePQInputs
	// FeatureInputRules allows tombstone/required-output input rules.
	FeatureInputRules
	// FeatureCommittedTags allows Phase-2 Pedersen-committed tag vectors
	// with zero-knowledge inheritance/conservation proofs.
	FeatureCommittedTags
)

// Params is the full set of protocol constants for one Botho network.
type Params struct {
	Name string

	GenesisTimestamp time.Time

	// RingSize is the fixed classical ring size R (spec.md §4.3).
	RingSize int
	// PQRingSize is the configured ring size for PQ rings, which may
	// differ from RingSize. No code reads it; crypto/pq's Lion signature
	// uses its own fixed pq.RingSize (11).
	PQRingSize int

	// MaxTags is the maximum number of stored (non-background) entries
	// in a cluster tag vector.
	MaxTags int
	// TagWeightScale is S, the fixed-point scale cluster weights are
	// expressed against (1_000_000 == 100%).
	TagWeightScale uint64
	// MinStoredWeight is the threshold below which a tag entry is
	// pruned into the implicit background bucket.
	MinStoredWeight uint64
	// DecayRatePerMille is d, the multiplicative decay rate applied to a
	// sender's attributed weights on every transfer, expressed in parts
	// per million (50_000 == 5%).
	DecayRatePerMille uint64
	// MinBlocksBetweenDecay is the minimum age, in blocks, a UTXO must
	// reach before its tags decay on spend (the AND-based decay model's
	// wall-time gate, spec.md §4.5 "Anti-wash invariants").
	MinBlocksBetweenDecay uint64

	// MaxTombstoneWindow bounds how far in the future a transaction's
	// tombstone block may be set, relative to the current height.
	MaxTombstoneWindow uint64

	// MinFeePicocredits is the protocol-wide minimum absolute fee.
	MinFeePicocredits uint64
	// NativeTokenID is the token identifier for the PoW-minted native
	// token.
	NativeTokenID uint64
	// GovernedTokenID is the reserved token identifier for MintTx
	// governed issuance (see SPEC_FULL.md §4, Open Question resolution).
	// It is distinct from NativeTokenID; ordinary blocks never contain a
	// MintTx for NativeTokenID.
	GovernedTokenID uint64

	// PowMax is the highest allowed PoW target (lowest difficulty).
	PowMax *big.Int
	// TargetTimePerBlock is the desired time between blocks (2 minutes
	// by default per spec.md §4.9).
	TargetTimePerBlock time.Duration
	// DifficultyAdjustmentWindowSize is N, the number of blocks between
	// retargets.
	DifficultyAdjustmentWindowSize uint64
	// DifficultyClampFactor bounds a single retarget adjustment to
	// [1/DifficultyClampFactor, DifficultyClampFactor] of the previous
	// difficulty.
	DifficultyClampFactor float64

	// MaxBlockBytes bounds block_builder.get_for_block's byte budget.
	MaxBlockBytes uint64

	// BlockReward is the fixed PoW minting reward in picocredits.
	BlockReward uint64

	// FeatureActivationHeight maps each gated feature to the first
	// block version at which it is accepted.
	FeatureActivationHeight map[FeatureGate]uint32

	// CurrentBlockVersion is the highest block version this build of
	// the node knows how to produce.
	CurrentBlockVersion uint32
	// MinAcceptedBlockVersion is the lowest block version this build
	// still accepts from the network (ErrBlockVersionTooOld below it).
	MinAcceptedBlockVersion uint32
}

// FeatureAllowedAtVersion reports whether gate is active at blockVersion.
func (p *Params) FeatureAllowedAtVersion(gate FeatureGate, blockVersion uint32) bool {
	activation, ok := p.FeatureActivationHeight[gate]
	if !ok {
		return false
	}
	return blockVersion >= activation
}

var bigOne = big.NewInt(1)

// mainPowMax is 2^239 - 1, comparable in magnitude to the teacher's
// testnetPowMax; Botho mainnet does not need Kaspa's 2^255 headroom since
// its PoW statement is a hash of a (much smaller) minting transaction.
var mainPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

// MainNetParams are the production network parameters.
var MainNetParams = Params{
	Name:                           "mainnet",
	RingSize:                       11,
	PQRingSize:                     13,
	MaxTags:                        16,
	TagWeightScale:                 1_000_000,
	MinStoredWeight:                1_000,
	DecayRatePerMille:              50_000,
	MinBlocksBetweenDecay:          720,     // ~1 day at 2 min/block
	MaxTombstoneWindow:             100_800, // ~2 weeks at 2 min/block
	MinFeePicocredits:              10_000_000,
	NativeTokenID:                  0,
	GovernedTokenID:                1,
	PowMax:                         mainPowMax,
	TargetTimePerBlock:             2 * time.Minute,
	DifficultyAdjustmentWindowSize: 2_016,
	DifficultyClampFactor:          4,
	MaxBlockBytes:                  2_000_000,
	BlockReward:                    20_000_000_000_000,
	FeatureActivationHeight: map[FeatureGate]uint32{
		FeatureMaskedTokenID:  1,
		FeatureClusterTags:    1,
		FeatureInputRules:     2,
		FeaturePQInputs:       3,
		FeatureCommittedTags:  4,
	},
	CurrentBlockVersion:     4,
	MinAcceptedBlockVersion: 1,
}

// SimNetParams relaxes PoW for fast local testing, keeping every other
// constant identical to mainnet so validator behavior under test matches
// production.
var SimNetParams = Params{
	Name:                           "simnet",
	RingSize:                       11,
	PQRingSize:                     13,
	MaxTags:                        16,
	TagWeightScale:                 1_000_000,
	MinStoredWeight:                1_000,
	DecayRatePerMille:              50_000,
	MinBlocksBetweenDecay:          720,
	MaxTombstoneWindow:             100_800,
	MinFeePicocredits:              10_000_000,
	NativeTokenID:                  0,
	GovernedTokenID:                1,
	PowMax:                         new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne),
	TargetTimePerBlock:             time.Second,
	DifficultyAdjustmentWindowSize: 32,
	DifficultyClampFactor:          4,
	MaxBlockBytes:                  2_000_000,
	BlockReward:                    20_000_000_000_000,
	FeatureActivationHeight: map[FeatureGate]uint32{
		FeatureMaskedTokenID: 1,
		FeatureClusterTags:   1,
		FeatureInputRules:    1,
		FeaturePQInputs:      1,
		FeatureCommittedTags: 1,
	},
	CurrentBlockVersion:     4,
	MinAcceptedBlockVersion: 1,
}
