package commitment

import (
	"github.com/botho-project/botho/crypto/curve"
	"github.com/pkg/errors"
)

// rangeProofElementSize is the byte length of one bit's encoded form in
// RangeProof.Bytes: a bit commitment point, a starting challenge scalar,
// and two response scalars, each 32 bytes.
const rangeProofElementSize = 32 + 32 + 32 + 32

// ParseRangeProof reconstructs a RangeProof from the canonical encoding
// RangeProof.Bytes produces. Used by the ledger store to persist a
// transaction's range proofs across restarts without re-deriving them.
func ParseRangeProof(data []byte) (*RangeProof, error) {
	if len(data) != valueBits*rangeProofElementSize {
		return nil, errors.Errorf("range proof has %d bytes, want %d", len(data), valueBits*rangeProofElementSize)
	}

	proof := &RangeProof{}
	for i := 0; i < valueBits; i++ {
		off := i * rangeProofElementSize
		commitmentPoint, err := curve.PointFromCanonicalBytes(data[off : off+32])
		if err != nil {
			return nil, errors.Wrapf(err, "bit %d commitment", i)
		}
		c0, err := curve.ScalarFromCanonicalBytes(data[off+32 : off+64])
		if err != nil {
			return nil, errors.Wrapf(err, "bit %d challenge", i)
		}
		s0, err := curve.ScalarFromCanonicalBytes(data[off+64 : off+96])
		if err != nil {
			return nil, errors.Wrapf(err, "bit %d response 0", i)
		}
		s1, err := curve.ScalarFromCanonicalBytes(data[off+96 : off+128])
		if err != nil {
			return nil, errors.Wrapf(err, "bit %d response 1", i)
		}
		proof.BitCommitments[i] = commitmentPoint
		proof.Proofs[i] = &bitProof{C0: c0, S: [2]curve.Scalar{s0, s1}}
	}
	return proof, nil
}
