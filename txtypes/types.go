// Package txtypes holds the canonical Go representation of everything
// that crosses the wire or gets hashed: outputs, input rings, masked
// amounts, transactions, and blocks. It mirrors the teacher's
// domain/consensus/model/externalapi "Domain*" structs — plain data,
// no behavior beyond cloning and canonical ordering — with hashing and
// byte-form encoding left to domain/consensus/utils/hashserialization,
// exactly as the teacher splits DomainTransaction from TransactionHash.
package txtypes

import (
	"bytes"
	"sort"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/pq"
	"github.com/botho-project/botho/crypto/ringsig"
)

// Hash is a 32-byte transaction or block digest.
type Hash [32]byte

// TokenID identifies which token an amount or fee is denominated in.
// chainparams.Params.NativeTokenID and .GovernedTokenID are the only
// two token IDs any block version currently mints.
type TokenID uint64

// MaskedAmountVersion distinguishes masked-amount wire formats so the
// validator can reject a V2-only field on a block version that hasn't
// activated it yet (spec.md §9: masked-amount versions are a tagged
// sum type).
type MaskedAmountVersion uint8

const (
	MaskedAmountV1 MaskedAmountVersion = iota
	MaskedAmountV2
)

// MaskedAmount is (value, blinding) XOR-masked with a shared-secret
// keystream the output's stealth owner alone can derive (spec.md §3).
type MaskedAmount struct {
	Version     MaskedAmountVersion
	MaskedValue [8]byte
	MaskedBlind [32]byte
}

// ClusterTagEntry is one (cluster, weight) pair of an output's plaintext
// tag vector, in the canonical sparse form spec.md §3 requires: sorted
// ascending by ClusterID, no zero-weight entries.
type ClusterTagEntry struct {
	Cluster clustertag.ClusterID
	Weight  uint64
}

// SortedClusterTags returns the canonical sparse form of v: sorted
// ascending by ClusterID with no zero-weight entries, so that two tag
// vectors with the same attribution always encode identically.
func SortedClusterTags(v *clustertag.Vector) []ClusterTagEntry {
	var entries []ClusterTagEntry
	v.Each(func(cluster clustertag.ClusterID, weight uint64) {
		entries = append(entries, ClusterTagEntry{Cluster: cluster, Weight: weight})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Cluster < entries[j].Cluster })
	return entries
}

// ToVector rebuilds a clustertag.Vector from its canonical wire form.
func ToVector(entries []ClusterTagEntry) *clustertag.Vector {
	v := clustertag.New()
	for _, e := range entries {
		v.SetForDecoding(e.Cluster, e.Weight)
	}
	return v
}

// PQEnvelope carries the post-quantum material a hybrid output pins:
// an ML-KEM-768 ciphertext encapsulating the shared secret, and the
// ML-DSA-65 verification key spending must also satisfy (spec.md §4.4).
type PQEnvelope struct {
	KemCiphertext []byte
	SigPublicKey  []byte
	LionPublicKey pq.PolyVec
}

// TxOut is the fundamental unit of wealth (spec.md §3).
type TxOut struct {
	Commitment    curve.Point
	TargetKey     curve.Point
	PublicKey     curve.Point
	MaskedAmount  MaskedAmount
	EncryptedMemo *[32]byte
	ClusterTags   []ClusterTagEntry
	PQEnvelope    *PQEnvelope
}

// SortKey returns the canonical-ordering key for an output: its target
// public key bytes (spec.md §4.6 item 1: "outputs sorted by public key").
func (o *TxOut) SortKey() []byte {
	return o.TargetKey.Bytes()
}

// RingMember is one reference inside a TxIn's ring: the on-chain
// output's one-time public key and amount commitment, enough for the
// ring/range-proof machinery without re-fetching the whole TxOut.
type RingMember struct {
	PublicKey  curve.Point
	Commitment curve.Point
}

// InputRules are optional predicates checked at block-inclusion time
// (spec.md §3 TxIn.input_rules): a tombstone block after which the
// input is no longer spendable this way, and/or a set of outputs that
// must also be present in the same transaction (for partial-fill
// orders).
type InputRules struct {
	TombstoneBlock  uint64
	RequiredOutputs []Hash
}

// PQProof is the per-input hybrid authentication material required
// once FeaturePQInputs activates: a Lion lattice ring signature and an
// ML-DSA-65 signature over the transaction's signing hash, both
// produced by the one-time spend key's PQ counterpart (spec.md §4.4).
type PQProof struct {
	LionSignature *pq.Signature
	DsaSignature  []byte
}

// TxIn is a spend authorization against a ring of R outputs (spec.md §3).
type TxIn struct {
	Ring       []RingMember
	KeyImage   curve.Point
	Signature  *ringsig.Signature
	PQ         *PQProof
	InputRules *InputRules
}

// SortKey returns the canonical-ordering key for an input: its first
// ring member's public key (spec.md §4.6 item 1: "inputs sorted by
// first ring member").
func (in *TxIn) SortKey() []byte {
	if len(in.Ring) == 0 {
		return nil
	}
	return in.Ring[0].PublicKey.Bytes()
}

// RingPublicKeys and RingCommitments project a TxIn's ring into the
// parallel slices crypto/ringsig.Sign/Verify expect.
func (in *TxIn) RingPublicKeys() []curve.Point {
	keys := make([]curve.Point, len(in.Ring))
	for i, m := range in.Ring {
		keys[i] = m.PublicKey
	}
	return keys
}

func (in *TxIn) RingCommitments() []curve.Point {
	commitments := make([]curve.Point, len(in.Ring))
	for i, m := range in.Ring {
		commitments[i] = m.Commitment
	}
	return commitments
}

// Transaction is a full, signed confidential transaction (spec.md §3).
type Transaction struct {
	Version        uint32
	Inputs         []TxIn
	Outputs        []TxOut
	FeeAmount      uint64
	FeeTokenID     TokenID
	TombstoneBlock uint64

	// PseudoOutputs carries one freshly-blinded commitment per input,
	// such that Σ PseudoOutputs == Σ Outputs.Commitment + fee·G
	// (spec.md §4.2); RangeProofs carries one bit-decomposition range proof per
	// output, and BalanceProof binds the whole set together.
	PseudoOutputs []curve.Point
	RangeProofs   []*commitment.RangeProof
	BalanceProof  *commitment.BalanceProof

	// CommittedTags carries Phase-2 committed tag vectors, one per
	// output, only once FeatureCommittedTags activates; nil otherwise.
	CommittedTags []clustertag.CommittedTagVector
	TagProof      *clustertag.ClusterTagProof
}

// IsCoinbase reports whether tx has no ring inputs, the shape a minting
// transaction takes (spec.md §4.9: "a reduced form of tx, no ring
// inputs").
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// SortedOutputIndices returns output indices in canonical order (by
// target-key bytes), without mutating tx.Outputs — callers that need to
// iterate canonically without invalidating existing output indices
// (global output numbering is assigned at append time, not at sort
// time) use this rather than sorting tx.Outputs in place.
func (tx *Transaction) SortedOutputIndices() []int {
	idx := make([]int, len(tx.Outputs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return bytes.Compare(tx.Outputs[idx[i]].SortKey(), tx.Outputs[idx[j]].SortKey()) < 0
	})
	return idx
}

// KeyImages returns every input's key image, for uniqueness/sortedness
// checks (spec.md §4.6 item 1).
func (tx *Transaction) KeyImages() []curve.Point {
	images := make([]curve.Point, len(tx.Inputs))
	for i, in := range tx.Inputs {
		images[i] = in.KeyImage
	}
	return images
}

// BlockHeader is a block's fixed-size metadata (spec.md §3).
type BlockHeader struct {
	Version        uint32
	PrevBlockHash  Hash
	TxRoot         Hash
	Timestamp      int64
	Height         uint64
	Difficulty     uint64
	Nonce          uint64
	MinterViewKey  curve.Point
	MinterSpendKey curve.Point
}

// LotteryOutput is one fee-redistribution output assigned by the
// lottery sub-protocol (spec.md §3, §9 open question on weight
// function determinism).
type LotteryOutput struct {
	Out    TxOut
	Amount uint64
}

// Block is a full block: header, minting transaction, ordinary
// transactions, and lottery outputs (spec.md §3).
type Block struct {
	Header       BlockHeader
	MintingTx    Transaction
	Transactions []Transaction
	Lottery      []LotteryOutput
}
