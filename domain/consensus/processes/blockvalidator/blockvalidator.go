// Package blockvalidator runs the header and minting-transaction checks
// a block must pass before consensusstatemanager.AppendBlock is allowed
// to touch the ledger (spec.md §4.9): proof of work, block-version
// range, difficulty-retarget match, and past-median-time, mirroring the
// teacher's ValidateHeaderInIsolation/ValidateHeaderInContext split —
// narrowed from GHOSTDAG's parent-set/merge-depth checks to the single
// PrevBlockHash link a linear chain needs.
package blockvalidator

import (
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/processes/coinbasemanager"
	"github.com/botho-project/botho/domain/consensus/processes/difficultymanager"
	"github.com/botho-project/botho/domain/consensus/processes/pastmediantimemanager"
	"github.com/botho-project/botho/domain/consensus/ruleerrors"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/domain/consensus/utils/mining"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// Validator checks a candidate block's header and minting transaction
// before it is handed to the consensus state manager.
type Validator struct {
	params            *chainparams.Params
	difficultyManager *difficultymanager.Manager
	medianTimeManager *pastmediantimemanager.Manager
	coinbaseManager   *coinbasemanager.Manager
}

// New instantiates a Validator.
func New(params *chainparams.Params, difficultyManager *difficultymanager.Manager,
	medianTimeManager *pastmediantimemanager.Manager, coinbaseManager *coinbasemanager.Manager) *Validator {
	return &Validator{
		params:            params,
		difficultyManager: difficultyManager,
		medianTimeManager: medianTimeManager,
		coinbaseManager:   coinbaseManager,
	}
}

// ValidateHeaderInIsolation checks fields of block's header that don't
// require any other chain state: block version range and proof of work.
// Mirrors the teacher's "cheap checks before the expensive ones" PoW
// gating (proof_of_work.go): spamming a node with garbage headers must
// never cost more than one hash check.
func (v *Validator) ValidateHeaderInIsolation(header *txtypes.BlockHeader) error {
	if header.Version < v.params.MinAcceptedBlockVersion {
		return ruleerrors.New(ruleerrors.ErrBlockVersionTooOld,
			"block version %d is older than the minimum accepted version %d", header.Version, v.params.MinAcceptedBlockVersion)
	}
	if header.Version > v.params.CurrentBlockVersion {
		return ruleerrors.New(ruleerrors.ErrBlockVersionTooNew,
			"block version %d is newer than this node's current version %d", header.Version, v.params.CurrentBlockVersion)
	}

	target := mining.TargetForDifficulty(header.Difficulty, v.params)
	if target.Cmp(v.params.PowMax) > 0 {
		return ruleerrors.New(ruleerrors.ErrInvalidProofOfWork, "block target exceeds PowMax")
	}
	hash := hashserialization.HeaderHash(header)
	if !mining.HashMeetsTarget(hash, target) {
		return ruleerrors.New(ruleerrors.ErrInvalidProofOfWork, "block hash does not meet its declared difficulty")
	}
	return nil
}

// ValidateHeaderInContext checks header against the chain it would
// extend: its difficulty must match the retarget schedule and its
// timestamp must clear the past median time, mirroring the teacher's
// validateDifficulty/validateMedianTime pair.
func (v *Validator) ValidateHeaderInContext(header *txtypes.BlockHeader, tipHeight uint64, tipDifficulty uint64) error {
	expectedDifficulty, err := v.difficultyManager.RequiredDifficulty(header.Height, tipDifficulty)
	if err != nil {
		return errors.Wrap(err, "computing expected difficulty")
	}
	if header.Height > 0 && header.Difficulty != expectedDifficulty {
		return ruleerrors.New(ruleerrors.ErrInvalidProofOfWork,
			"block difficulty %d does not match expected retarget value %d", header.Difficulty, expectedDifficulty)
	}

	if header.Height > 0 {
		medianTime, err := v.medianTimeManager.PastMedianTime(tipHeight)
		if err != nil {
			return errors.Wrap(err, "computing past median time")
		}
		if header.Timestamp <= medianTime {
			return ruleerrors.New(ruleerrors.ErrStructuralError,
				"block timestamp %d is not after past median time %d", header.Timestamp, medianTime)
		}
	}
	return nil
}

// ValidateMintingTransaction delegates to the coinbase manager, kept as
// a distinct step here so blockprocessor's pipeline reads the same way
// the teacher's validatePreProofOfWork/validatePostProofOfWork split
// does: one named check per pipeline stage.
func (v *Validator) ValidateMintingTransaction(tx *txtypes.Transaction, blockVersion uint32) error {
	return v.coinbaseManager.ValidateMintingTransaction(tx, blockVersion)
}
