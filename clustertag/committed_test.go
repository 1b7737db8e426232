package clustertag

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
)

func randomScalar(t *testing.T) curve.Scalar {
	t.Helper()
	s, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return s
}

func TestValidateStructureAcceptsWellFormedCommitments(t *testing.T) {
	out := CommittedTagVector{
		ClusterCommitments: map[ClusterID]curve.Point{
			1: curve.ScalarBaseMult(randomScalar(t)),
		},
		BackgroundCommit: curve.ScalarBaseMult(randomScalar(t)),
	}
	if err := ValidateStructure([]CommittedTagVector{out}); err != nil {
		t.Fatalf("ValidateStructure: %v", err)
	}
}

func TestValidateRejectsPseudoOutputCountMismatch(t *testing.T) {
	out := CommittedTagVector{
		ClusterCommitments: map[ClusterID]curve.Point{},
		BackgroundCommit:   curve.ScalarBaseMult(randomScalar(t)),
	}
	proof := ClusterTagProof{
		InheritanceProofs: nil, // transaction has 2 inputs below, proof has 0
	}
	err := Validate(2, []CommittedTagVector{out}, proof)
	if err != ErrPseudoOutputCountMismatch {
		t.Fatalf("Validate error = %v, want ErrPseudoOutputCountMismatch", err)
	}
}

func TestValidateConservationRoundTrip(t *testing.T) {
	blinding := randomScalar(t)
	excess := commitment.Generator().ScalarMult(blinding)

	balanceProof, err := commitment.ProveBalance(excess, blinding)
	if err != nil {
		t.Fatalf("ProveBalance: %v", err)
	}

	// The single input's commitment is the identity (no offsetting
	// weight), and the sole output's background commitment is `excess`
	// itself, so outputs-minus-inputs reduces to exactly `excess`.
	out := CommittedTagVector{
		ClusterCommitments: map[ClusterID]curve.Point{},
		BackgroundCommit:   excess,
	}
	proof := ClusterTagProof{
		InheritanceProofs: []InheritanceProof{{InputIndex: 0, Commitment: curve.Identity()}},
		ConservationProof: ConservationProof{R: balanceProof.R, S: balanceProof.S},
	}

	if err := Validate(1, []CommittedTagVector{out}, proof); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadConservationProof(t *testing.T) {
	excess := commitment.Generator().ScalarMult(randomScalar(t))
	wrongProof, err := commitment.ProveBalance(excess, randomScalar(t)) // wrong blinding
	if err != nil {
		t.Fatalf("ProveBalance: %v", err)
	}

	out := CommittedTagVector{
		ClusterCommitments: map[ClusterID]curve.Point{},
		BackgroundCommit:   excess,
	}
	proof := ClusterTagProof{
		InheritanceProofs: []InheritanceProof{{InputIndex: 0, Commitment: curve.Identity()}},
		ConservationProof: ConservationProof{R: wrongProof.R, S: wrongProof.S},
	}

	if err := Validate(1, []CommittedTagVector{out}, proof); err != ErrInvalidConservationProof {
		t.Fatalf("Validate error = %v, want ErrInvalidConservationProof", err)
	}
}
