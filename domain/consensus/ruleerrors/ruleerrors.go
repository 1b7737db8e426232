// Package ruleerrors defines the stable error taxonomy returned by the
// transaction validator, the ledger, consensus, and mempool. None of these
// errors are fatal to the node process; they identify why a tx or block was
// rejected, so the offending peer's reputation can be adjusted and a stable
// RPC error code can be surfaced to clients, mirroring the teacher's
// blockdag.RuleError / blockdag.ErrorCode pair.
package ruleerrors

import "fmt"

// ErrorCode identifies a specific reason a transaction or block was
// rejected.
type ErrorCode int

// The error taxonomy from the node's error-handling design. Never add a
// code to the middle of this list; RPC clients depend on stable codes.
const (
	ErrStructuralError ErrorCode = iota
	ErrRingSizeMismatch
	ErrDuplicateRingElements
	ErrRingNotSorted
	ErrDuplicateKeyImage
	ErrSpentKeyImage
	ErrInvalidRangeProof
	ErrInvalidRingSignature
	ErrCommitmentMismatch
	ErrTombstoneExceeded
	ErrFeeTooLow
	ErrProgressiveFeeTooLow
	ErrClusterTagInflation
	ErrInvalidTagInheritanceProof
	ErrPqSignatureFailed
	ErrUnknownOutput
	ErrDuplicateOutputKey
	ErrBlockVersionTooOld
	ErrBlockVersionTooNew
	ErrFeatureNotAllowedAtBlockVersion
	ErrLedgerIO
	ErrSnapshotCorrupt
	ErrConsensusProtocolViolation
	ErrPeerRateLimited
	ErrInvalidProofOfWork
	ErrBadCoinbaseTransaction
	ErrMixedTokenNotAllowed
)

var errorCodeStrings = map[ErrorCode]string{
	ErrStructuralError:                 "ErrStructuralError",
	ErrRingSizeMismatch:                "ErrRingSizeMismatch",
	ErrDuplicateRingElements:           "ErrDuplicateRingElements",
	ErrRingNotSorted:                   "ErrRingNotSorted",
	ErrDuplicateKeyImage:               "ErrDuplicateKeyImage",
	ErrSpentKeyImage:                   "ErrSpentKeyImage",
	ErrInvalidRangeProof:               "ErrInvalidRangeProof",
	ErrInvalidRingSignature:            "ErrInvalidRingSignature",
	ErrCommitmentMismatch:              "ErrCommitmentMismatch",
	ErrTombstoneExceeded:               "ErrTombstoneExceeded",
	ErrFeeTooLow:                       "ErrFeeTooLow",
	ErrProgressiveFeeTooLow:            "ErrProgressiveFeeTooLow",
	ErrClusterTagInflation:             "ErrClusterTagInflation",
	ErrInvalidTagInheritanceProof:      "ErrInvalidTagInheritanceProof",
	ErrPqSignatureFailed:               "ErrPqSignatureFailed",
	ErrUnknownOutput:                   "ErrUnknownOutput",
	ErrDuplicateOutputKey:              "ErrDuplicateOutputKey",
	ErrBlockVersionTooOld:              "ErrBlockVersionTooOld",
	ErrBlockVersionTooNew:              "ErrBlockVersionTooNew",
	ErrFeatureNotAllowedAtBlockVersion: "ErrFeatureNotAllowedAtBlockVersion",
	ErrLedgerIO:                        "ErrLedgerIO",
	ErrSnapshotCorrupt:                 "ErrSnapshotCorrupt",
	ErrConsensusProtocolViolation:      "ErrConsensusProtocolViolation",
	ErrPeerRateLimited:                 "ErrPeerRateLimited",
	ErrInvalidProofOfWork:              "ErrInvalidProofOfWork",
	ErrBadCoinbaseTransaction:          "ErrBadCoinbaseTransaction",
	ErrMixedTokenNotAllowed:            "ErrMixedTokenNotAllowed",
}

// String returns the stringized name of the error code, or a placeholder
// for an unrecognized one.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation along with a human-readable
// description. It carries no key material and is safe to log at any level.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// New constructs a RuleError with a formatted description.
func New(code ErrorCode, format string, args ...interface{}) error {
	return RuleError{ErrorCode: code, Description: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a RuleError with the given code, so callers can
// branch on error kind without type-asserting by hand.
func Is(err error, code ErrorCode) bool {
	re, ok := err.(RuleError)
	if !ok {
		return false
	}
	return re.ErrorCode == code
}
