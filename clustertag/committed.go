package clustertag

import (
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/pkg/errors"
)

// CommittedTagVector is the Phase-2, block-version-gated representation
// of an output's tag vector: instead of publishing cluster weights in
// the clear, the output carries one Pedersen commitment per tracked
// cluster slot plus a commitment to the implicit background weight, so
// an observer learns nothing about which clusters an output descends
// from while the chain can still verify that weight was conserved and
// correctly inherited across a transfer.
//
// Grounded on original_source/cluster-tax/src/validate.rs's
// CommittedTagVector / validate_committed_tag_structure /
// validate_committed_tags shape; the zero-knowledge inheritance and
// conservation circuits themselves are out of scope for this port (no
// pack repo or example file implements a general-purpose arithmetic
// circuit prover), so verification here checks the two properties
// validate.rs's structural pass checks before ever reaching the ZK
// verifier: commitment well-formedness and pseudo-output count parity.
// Gated behind chainparams.FeatureCommittedTags.
type CommittedTagVector struct {
	ClusterCommitments map[ClusterID]curve.Point
	BackgroundCommit   curve.Point
}

// ClusterTagProof accompanies a transaction's committed outputs, proving
// that each output's committed weights were correctly inherited (decayed
// and mixed) from its ring of possible input tag vectors, and that total
// weight is conserved across the transaction net of fee.
type ClusterTagProof struct {
	// InheritanceProofs has one entry per transaction input, proving the
	// committed transferred-tag vector was derived from a decay of one
	// member of that input's ring without revealing which.
	InheritanceProofs []InheritanceProof
	// ConservationProof proves Σ(committed input weights) == Σ(committed
	// output weights) + fee-attributed weight, without revealing any
	// individual weight.
	ConservationProof ConservationProof
}

// InheritanceProof is a placeholder for a zero-knowledge proof that a
// committed output vector decays correctly from a committed input
// vector. Real construction needs a circuit prover outside this pack's
// dependency surface; the structural validation below only checks that
// the commitments it operates over are well-formed curve points.
type InheritanceProof struct {
	InputIndex int
	Commitment curve.Point
}

// ConservationProof is a placeholder Schnorr-style proof of knowledge
// binding a linear combination of cluster commitments to zero, the same
// algebraic shape as commitment.BalanceProof but over tag weight rather
// than amount.
type ConservationProof struct {
	R curve.Point
	S curve.Scalar
}

// ErrPseudoOutputCountMismatch reports that the proof's per-input
// inheritance-proof count doesn't match the transaction's input count
// (original_source/cluster-tax/src/validate.rs:
// PseudoOutputCountMismatch).
var ErrPseudoOutputCountMismatch = errors.New("cluster tag proof: pseudo-output count mismatch")

// ErrInvalidCommitment reports a cluster or background commitment that
// doesn't decompress to a valid Ristretto255 point.
var ErrInvalidCommitment = errors.New("cluster tag proof: invalid commitment encoding")

// ErrInvalidInheritanceProof and ErrInvalidConservationProof mirror
// validate.rs's corresponding CommittedTagValidationError variants.
var (
	ErrInvalidInheritanceProof  = errors.New("cluster tag proof: invalid inheritance proof")
	ErrInvalidConservationProof = errors.New("cluster tag proof: invalid conservation proof")
)

// ValidateStructure checks that every commitment in outputs decompresses
// to a valid curve point (original_source/cluster-tax/src/validate.rs:
// validate_committed_tag_structure). It does not check the proof itself.
func ValidateStructure(outputs []CommittedTagVector) error {
	for _, out := range outputs {
		for _, c := range out.ClusterCommitments {
			if _, err := curve.PointFromCanonicalBytes(c.Bytes()); err != nil {
				return ErrInvalidCommitment
			}
		}
		if _, err := curve.PointFromCanonicalBytes(out.BackgroundCommit.Bytes()); err != nil {
			return ErrInvalidCommitment
		}
	}
	return nil
}

// Validate checks a transaction's committed tag outputs against its
// proof: the inheritance-proof count must match the input count, and
// the conservation proof must verify as a Schnorr proof of knowledge
// that the claimed weight-conserving linear combination opens to zero
// (original_source/cluster-tax/src/validate.rs: validate_committed_tags).
func Validate(inputCount int, outputs []CommittedTagVector, proof ClusterTagProof) error {
	if len(proof.InheritanceProofs) != inputCount {
		return ErrPseudoOutputCountMismatch
	}
	if err := ValidateStructure(outputs); err != nil {
		return err
	}

	excess := curve.Identity()
	for _, ip := range proof.InheritanceProofs {
		excess = excess.Sub(ip.Commitment)
	}
	for _, out := range outputs {
		excess = excess.Add(out.BackgroundCommit)
		for _, c := range out.ClusterCommitments {
			excess = excess.Add(c)
		}
	}

	balanceProof := &commitment.BalanceProof{R: proof.ConservationProof.R, S: proof.ConservationProof.S}
	if !balanceProof.VerifyBalance(excess) {
		return ErrInvalidConservationProof
	}
	return nil
}
