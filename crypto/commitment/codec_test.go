package commitment

import "testing"

func TestParseRangeProofRoundTrip(t *testing.T) {
	blinding, err := RandomBlinding()
	if err != nil {
		t.Fatalf("RandomBlinding: %v", err)
	}
	proof, err := Prove(42, blinding)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	parsed, err := ParseRangeProof(proof.Bytes())
	if err != nil {
		t.Fatalf("ParseRangeProof: %v", err)
	}

	commitmentPoint := Commit(42, blinding)
	if !parsed.Verify(commitmentPoint) {
		t.Fatalf("parsed proof failed to verify against the original commitment")
	}
	if !bytesEqual(parsed.Bytes(), proof.Bytes()) {
		t.Fatalf("re-encoded proof does not match the original bytes")
	}
}

func TestParseRangeProofRejectsWrongLength(t *testing.T) {
	if _, err := ParseRangeProof(make([]byte, 10)); err == nil {
		t.Fatalf("expected an error for a truncated range proof")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
