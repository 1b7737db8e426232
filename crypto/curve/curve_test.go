package curve

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestScalarRoundTrip(t *testing.T) {
	s, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	decoded, err := ScalarFromCanonicalBytes(s.Bytes())
	if err != nil {
		t.Fatalf("ScalarFromCanonicalBytes: %v", err)
	}
	if !s.Equal(decoded) {
		t.Fatalf("scalar round-trip mismatch")
	}
}

func TestPointRoundTrip(t *testing.T) {
	s, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	p := ScalarBaseMult(s)
	decoded, err := PointFromCanonicalBytes(p.Bytes())
	if err != nil {
		t.Fatalf("PointFromCanonicalBytes: %v", err)
	}
	if !p.Equal(decoded) {
		t.Fatalf("point round-trip mismatch")
	}
}

func TestScalarAddSubInverse(t *testing.T) {
	a, _ := RandomScalar(rand.Reader)
	b, _ := RandomScalar(rand.Reader)
	sum := a.Add(b)
	back := sum.Sub(b)
	if !back.Equal(a) {
		t.Fatalf("(a+b)-b != a")
	}
}

func TestHashToPointDeterministic(t *testing.T) {
	p1 := HashToPoint("test", []byte("hello"))
	p2 := HashToPoint("test", []byte("hello"))
	if !p1.Equal(p2) {
		t.Fatalf("HashToPoint is not deterministic")
	}
	p3 := HashToPoint("test", []byte("world"))
	if p1.Equal(p3) {
		t.Fatalf("HashToPoint collided on different input")
	}
}

func TestMultiScalarMultMatchesLoop(t *testing.T) {
	a, _ := RandomScalar(rand.Reader)
	b, _ := RandomScalar(rand.Reader)
	pa := ScalarBaseMult(a)
	pb := HashToPoint("msm", []byte("x"))

	got := MultiScalarMult([]Scalar{a, b}, []Point{pa, pb})
	want := pa.ScalarMult(a).Add(pb.ScalarMult(b))
	if !got.Equal(want) {
		t.Fatalf("MultiScalarMult mismatch")
	}
}

func TestHKDFExpandDistinctInfo(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	a, err := HKDFExpand(secret, "kem-seed", 32)
	if err != nil {
		t.Fatalf("HKDFExpand: %v", err)
	}
	b, err := HKDFExpand(secret, "sig-seed", 32)
	if err != nil {
		t.Fatalf("HKDFExpand: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("distinct info strings produced identical output")
	}
}
