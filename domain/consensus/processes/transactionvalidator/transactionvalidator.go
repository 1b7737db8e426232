// Package transactionvalidator runs the seven ordered checks of
// spec.md §4.6 against a transaction and the current ledger tip,
// mirroring the teacher's blockdag.checkTransactionInputs /
// checkBlockSanity layering: cheap structural checks first, the ledger
// lookups and expensive cryptography only once the cheap checks pass.
package transactionvalidator

import (
	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/pq"
	"github.com/botho-project/botho/crypto/ringsig"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/model"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/domain/consensus/ruleerrors"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/txtypes"
)

type transactionValidator struct {
	params   *chainparams.Params
	feeCurve clustertag.FeeCurve
}

// New instantiates a TransactionValidator for params, pricing the
// progressive fee floor against feeCurve.
func New(params *chainparams.Params, feeCurve clustertag.FeeCurve) model.TransactionValidator {
	return &transactionValidator{params: params, feeCurve: feeCurve}
}

func (v *transactionValidator) andDecayConfig() clustertag.AndDecayConfig {
	return clustertag.AndDecayConfig{
		MinBlocksBetweenDecay: v.params.MinBlocksBetweenDecay,
		DecayRatePerMille:     v.params.DecayRatePerMille,
	}
}

// ValidateTransaction runs the seven checks of spec.md §4.6 in order
// against tx. It never panics; every rejection is a ruleerrors.RuleError.
func (v *transactionValidator) ValidateTransaction(tx *txtypes.Transaction, tip model.LedgerTip, blockVersion uint32) error {
	if tx.IsCoinbase() {
		return ruleerrors.New(ruleerrors.ErrStructuralError,
			"minting transactions are validated by the block builder, not the transaction validator")
	}

	if err := v.validateStructural(tx); err != nil {
		return err
	}
	if err := v.validateTombstone(tx, tip); err != nil {
		return err
	}
	entries, err := v.validateLedger(tx, tip)
	if err != nil {
		return err
	}
	if err := v.validateCryptographic(tx, entries); err != nil {
		return err
	}
	if err := v.validateFee(tx, entries, tip); err != nil {
		return err
	}
	if err := v.validateTags(tx, blockVersion); err != nil {
		return err
	}
	if err := v.validateFeatureGating(tx, blockVersion); err != nil {
		return err
	}
	return nil
}

// 1. Structural.
func (v *transactionValidator) validateStructural(tx *txtypes.Transaction) error {
	if len(tx.Inputs) == 0 {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "transaction has no outputs")
	}
	for i, in := range tx.Inputs {
		if len(in.Ring) != v.params.RingSize {
			return ruleerrors.New(ruleerrors.ErrRingSizeMismatch,
				"input %d's ring has %d members, want %d", i, len(in.Ring), v.params.RingSize)
		}
		if !txtypes.RingIsSorted(in.Ring) {
			return ruleerrors.New(ruleerrors.ErrRingNotSorted, "input %d's ring is not sorted ascending by public key", i)
		}
	}
	if !tx.InputsAreSorted() {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "inputs are not sorted by first ring member")
	}
	if !tx.OutputsAreSorted() {
		return ruleerrors.New(ruleerrors.ErrDuplicateOutputKey, "outputs are not sorted by target key")
	}
	if !tx.KeyImagesAreSortedAndUnique() {
		return ruleerrors.New(ruleerrors.ErrDuplicateKeyImage, "key images within the transaction are not sorted and unique")
	}
	if len(tx.PseudoOutputs) != len(tx.Inputs) {
		return ruleerrors.New(ruleerrors.ErrStructuralError, "pseudo-output count must match input count")
	}
	if len(tx.RangeProofs) != len(tx.Outputs) {
		return ruleerrors.New(ruleerrors.ErrInvalidRangeProof, "range proof count must match output count")
	}
	if tx.BalanceProof == nil {
		return ruleerrors.New(ruleerrors.ErrCommitmentMismatch, "transaction is missing its balance proof")
	}
	return nil
}

// 2. Tombstone.
func (v *transactionValidator) validateTombstone(tx *txtypes.Transaction, tip model.LedgerTip) error {
	height := tip.Height()
	if tx.TombstoneBlock <= height {
		return ruleerrors.New(ruleerrors.ErrTombstoneExceeded,
			"tombstone block %d is not after current height %d", tx.TombstoneBlock, height)
	}
	if tx.TombstoneBlock > height+v.params.MaxTombstoneWindow {
		return ruleerrors.New(ruleerrors.ErrTombstoneExceeded,
			"tombstone block %d exceeds the maximum window of %d blocks from height %d",
			tx.TombstoneBlock, v.params.MaxTombstoneWindow, height)
	}
	return nil
}

// 3. Ledger. Resolves every ring member against the UTXO set, rejects
// spent key images, and rejects output-key collisions. Returns the
// resolved UTXOEntry for each ring member, parallel to tx.Inputs[i].Ring,
// for the cryptographic and fee checks to reuse.
func (v *transactionValidator) validateLedger(tx *txtypes.Transaction, tip model.LedgerTip) ([][]*externalapi.UTXOEntry, error) {
	entries := make([][]*externalapi.UTXOEntry, len(tx.Inputs))
	for i, in := range tx.Inputs {
		entries[i] = make([]*externalapi.UTXOEntry, len(in.Ring))
		for j, member := range in.Ring {
			entry, ok := tip.UTXOEntry(member.PublicKey, member.Commitment)
			if !ok {
				return nil, ruleerrors.New(ruleerrors.ErrUnknownOutput,
					"input %d ring member %d does not reference an unspent output", i, j)
			}
			entries[i][j] = entry
		}
		if tip.HasKeyImage(in.KeyImage) {
			return nil, ruleerrors.New(ruleerrors.ErrSpentKeyImage, "input %d's key image is already spent", i)
		}
	}
	for _, out := range tx.Outputs {
		if tip.HasOutputPublicKey(out.TargetKey) {
			return nil, ruleerrors.New(ruleerrors.ErrDuplicateOutputKey, "output target key already exists on-chain")
		}
	}
	return entries, nil
}

// 4. Cryptographic: each input's ring signature verifies, every output's
// range proof verifies, and the declared pseudo-outputs balance against
// the outputs plus the explicit fee.
func (v *transactionValidator) validateCryptographic(tx *txtypes.Transaction, entries [][]*externalapi.UTXOEntry) error {
	signingHash := hashserialization.TransactionSigningHash(tx)
	message := signingHash[:]

	for i, in := range tx.Inputs {
		if in.Signature == nil {
			return ruleerrors.New(ruleerrors.ErrInvalidRingSignature, "input %d is missing its ring signature", i)
		}
		commitmentDiffs := make([]curve.Point, len(in.Ring))
		for j, member := range in.Ring {
			commitmentDiffs[j] = member.Commitment.Sub(tx.PseudoOutputs[i])
		}
		if !ringsig.Verify(message, in.RingPublicKeys(), commitmentDiffs, in.Signature) {
			return ruleerrors.New(ruleerrors.ErrInvalidRingSignature, "input %d's ring signature does not verify", i)
		}
		if !in.Signature.SpendKeyImage().Equal(in.KeyImage) {
			return ruleerrors.New(ruleerrors.ErrInvalidRingSignature, "input %d's declared key image does not match its signature", i)
		}
		if err := v.validatePQInput(i, in, entries[i], message); err != nil {
			return err
		}
	}

	for i, out := range tx.Outputs {
		if !tx.RangeProofs[i].Verify(out.Commitment) {
			return ruleerrors.New(ruleerrors.ErrInvalidRangeProof, "output %d's range proof does not verify", i)
		}
	}

	if tx.FeeTokenID != txtypes.TokenID(v.params.NativeTokenID) {
		return ruleerrors.New(ruleerrors.ErrMixedTokenNotAllowed, "explicit fees must be denominated in the native token")
	}

	outputCommitments := make([]curve.Point, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputCommitments[i] = out.Commitment
	}
	excess := commitment.ExcessCommitment(tx.PseudoOutputs, outputCommitments, tx.FeeAmount)
	if !tx.BalanceProof.VerifyBalance(excess) {
		return ruleerrors.New(ruleerrors.ErrCommitmentMismatch, "pseudo-output commitments do not balance against outputs plus fee")
	}
	return nil
}

// Hybrid PQ inputs additionally require the Lion ring signature to
// verify over the ring members' pinned lattice public keys (spec.md
// §4.4's "hybrid preserves anonymity if either primitive's hardness
// holds"). Ring members without a PQ envelope cannot appear in a PQ
// input's ring.
func (v *transactionValidator) validatePQInput(index int, in txtypes.TxIn, ring []*externalapi.UTXOEntry, message []byte) error {
	if in.PQ == nil {
		return nil
	}
	if in.PQ.LionSignature == nil {
		return ruleerrors.New(ruleerrors.ErrPqSignatureFailed, "input %d is missing its PQ ring signature", index)
	}
	latticeRing := make([]pq.PolyVec, len(ring))
	for j, entry := range ring {
		if entry.Output.PQEnvelope == nil {
			return ruleerrors.New(ruleerrors.ErrPqSignatureFailed, "input %d ring member %d has no PQ envelope", index, j)
		}
		latticeRing[j] = entry.Output.PQEnvelope.LionPublicKey
	}
	if !pq.VerifyRing(message, latticeRing, in.PQ.LionSignature) {
		return ruleerrors.New(ruleerrors.ErrPqSignatureFailed, "input %d's PQ ring signature does not verify", index)
	}
	return nil
}

// 5. Fee: the declared fee must cover the protocol minimum scaled up by
// the progressive rate the sending ring's tag-weighted cluster wealth
// implies. Per-input transfer amounts are hidden behind Pedersen
// commitments, so unlike the plaintext-UTXO transfer mechanics of
// spec.md §4.5, the floor here scales the protocol's absolute minimum
// fee rather than a hidden transfer amount (see DESIGN.md). Because ring
// membership hides which member is real, the floor uses the highest
// effective rate among any ring member across all inputs, so no ring
// member's wealth can be shielded by association with lower-wealth
// decoys.
func (v *transactionValidator) validateFee(tx *txtypes.Transaction, entries [][]*externalapi.UTXOEntry, tip model.LedgerTip) error {
	if tx.FeeAmount < v.params.MinFeePicocredits {
		return ruleerrors.New(ruleerrors.ErrFeeTooLow, "fee %d is below the protocol minimum %d", tx.FeeAmount, v.params.MinFeePicocredits)
	}

	wealth := tip.ClusterWealth()
	andDecay := v.andDecayConfig()
	var worstRateBps uint64
	for _, ring := range entries {
		for _, entry := range ring {
			tags := txtypes.ToVector(entry.Output.ClusterTags)
			age := tip.Height() - entry.BlockHeight
			decayed, _ := clustertag.ApplyAndDecay(tags, age, andDecay)
			rate := v.feeCurve.EffectiveRateBps(decayed, wealth, v.params.TagWeightScale)
			if rate > worstRateBps {
				worstRateBps = rate
			}
		}
	}

	floor := v.params.MinFeePicocredits * (10_000 + worstRateBps) / 10_000
	if tx.FeeAmount < floor {
		return ruleerrors.New(ruleerrors.ErrProgressiveFeeTooLow,
			"fee %d is below the progressive minimum %d (rate %d bps)", tx.FeeAmount, floor, worstRateBps)
	}
	return nil
}

// 6. Tag: before FeatureCommittedTags activates, outputs carry plaintext
// tag vectors and the validator can only check their structural bounds —
// hidden per-input amounts make exact re-derivation of inherited weights
// impossible without the committed-tag conservation proof (see
// clustertag's CommittedTagVector/Validate and DESIGN.md's C6 entry). At
// or above FeatureCommittedTags, plaintext tags are forbidden and the
// committed-tag inheritance/conservation proof is mandatory.
func (v *transactionValidator) validateTags(tx *txtypes.Transaction, blockVersion uint32) error {
	if v.params.FeatureAllowedAtVersion(chainparams.FeatureCommittedTags, blockVersion) {
		if tx.TagProof == nil {
			return ruleerrors.New(ruleerrors.ErrInvalidTagInheritanceProof, "committed-tag transaction is missing its tag proof")
		}
		if err := clustertag.Validate(len(tx.Inputs), tx.CommittedTags, *tx.TagProof); err != nil {
			return ruleerrors.New(ruleerrors.ErrInvalidTagInheritanceProof, "%s", err.Error())
		}
		for _, out := range tx.Outputs {
			if len(out.ClusterTags) != 0 {
				return ruleerrors.New(ruleerrors.ErrClusterTagInflation, "plaintext cluster tags are not allowed once committed tags are active")
			}
		}
		return nil
	}

	for i, out := range tx.Outputs {
		if !txtypes.ClusterTagsWellFormed(out.ClusterTags, v.params.MaxTags, v.params.TagWeightScale) {
			return ruleerrors.New(ruleerrors.ErrClusterTagInflation, "output %d's cluster tag vector is malformed", i)
		}
	}
	return nil
}

// 7. Block-version gating: masked token IDs, cluster tags, PQ inputs,
// and input rules are only accepted once their gate activates.
func (v *transactionValidator) validateFeatureGating(tx *txtypes.Transaction, blockVersion uint32) error {
	if blockVersion < v.params.MinAcceptedBlockVersion {
		return ruleerrors.New(ruleerrors.ErrBlockVersionTooOld, "block version %d is below the minimum accepted %d", blockVersion, v.params.MinAcceptedBlockVersion)
	}
	if blockVersion > v.params.CurrentBlockVersion {
		return ruleerrors.New(ruleerrors.ErrBlockVersionTooNew, "block version %d is above the highest known %d", blockVersion, v.params.CurrentBlockVersion)
	}

	usesMaskedToken := tx.FeeTokenID != txtypes.TokenID(v.params.NativeTokenID)
	if usesMaskedToken && !v.params.FeatureAllowedAtVersion(chainparams.FeatureMaskedTokenID, blockVersion) {
		return ruleerrors.New(ruleerrors.ErrFeatureNotAllowedAtBlockVersion, "masked token IDs are not allowed at block version %d", blockVersion)
	}

	usesClusterTags := false
	for _, out := range tx.Outputs {
		if len(out.ClusterTags) != 0 {
			usesClusterTags = true
			break
		}
	}
	if usesClusterTags && !v.params.FeatureAllowedAtVersion(chainparams.FeatureClusterTags, blockVersion) {
		return ruleerrors.New(ruleerrors.ErrFeatureNotAllowedAtBlockVersion, "cluster tags are not allowed at block version %d", blockVersion)
	}

	usesPQ := false
	for _, in := range tx.Inputs {
		if in.PQ != nil {
			usesPQ = true
			break
		}
	}
	if usesPQ && !v.params.FeatureAllowedAtVersion(chainparams.FeaturePQInputs, blockVersion) {
		return ruleerrors.New(ruleerrors.ErrFeatureNotAllowedAtBlockVersion, "PQ inputs are not allowed at block version %d", blockVersion)
	}

	usesInputRules := false
	for _, in := range tx.Inputs {
		if in.InputRules != nil {
			usesInputRules = true
			break
		}
	}
	if usesInputRules && !v.params.FeatureAllowedAtVersion(chainparams.FeatureInputRules, blockVersion) {
		return ruleerrors.New(ruleerrors.ErrFeatureNotAllowedAtBlockVersion, "input rules are not allowed at block version %d", blockVersion)
	}
	return nil
}
