package transactionvalidator

import (
	"crypto/rand"
	"math/big"
	"sort"
	"testing"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/ringsig"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/model"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/domain/consensus/ruleerrors"
	"github.com/botho-project/botho/domain/consensus/utils/hashserialization"
	"github.com/botho-project/botho/txtypes"
)

// fakeTip is a minimal in-memory model.LedgerTip for exercising the
// validator without the real ledger store (C8).
type fakeTip struct {
	entries    map[string]*externalapi.UTXOEntry
	keyImages  map[string]bool
	outputKeys map[string]bool
	wealth     *clustertag.Wealth
	height     uint64
}

func newFakeTip(height uint64) *fakeTip {
	return &fakeTip{
		entries:    make(map[string]*externalapi.UTXOEntry),
		keyImages:  make(map[string]bool),
		outputKeys: make(map[string]bool),
		wealth:     clustertag.NewWealth(),
		height:     height,
	}
}

func ringKey(pk, c curve.Point) string {
	return string(pk.Bytes()) + "|" + string(c.Bytes())
}

func (t *fakeTip) addEntry(entry *externalapi.UTXOEntry) {
	t.entries[ringKey(entry.Output.PublicKey, entry.Output.Commitment)] = entry
}

func (t *fakeTip) UTXOEntry(publicKey, commitment curve.Point) (*externalapi.UTXOEntry, bool) {
	e, ok := t.entries[ringKey(publicKey, commitment)]
	return e, ok
}

func (t *fakeTip) HasKeyImage(keyImage curve.Point) bool {
	return t.keyImages[string(keyImage.Bytes())]
}

func (t *fakeTip) HasOutputPublicKey(publicKey curve.Point) bool {
	return t.outputKeys[string(publicKey.Bytes())]
}

func (t *fakeTip) ClusterWealth() *clustertag.Wealth { return t.wealth }
func (t *fakeTip) Height() uint64                    { return t.height }

var _ model.LedgerTip = (*fakeTip)(nil)

func testParams(ringSize int) *chainparams.Params {
	return &chainparams.Params{
		Name:                   "test",
		RingSize:               ringSize,
		PQRingSize:             ringSize,
		MaxTags:                16,
		TagWeightScale:         1_000_000,
		MinBlocksBetweenDecay:  10,
		DecayRatePerMille:      500,
		MaxTombstoneWindow:     1_000,
		MinFeePicocredits:      1_000,
		NativeTokenID:          0,
		GovernedTokenID:        1,
		PowMax:                 big.NewInt(1),
		MaxBlockBytes:          2_000_000,
		BlockReward:            0,
		FeatureActivationHeight: map[chainparams.FeatureGate]uint32{
			chainparams.FeatureMaskedTokenID: 10,
			chainparams.FeatureClusterTags:   10,
			chainparams.FeatureInputRules:    10,
			chainparams.FeaturePQInputs:      10,
			chainparams.FeatureCommittedTags: 10,
		},
		CurrentBlockVersion:     10,
		MinAcceptedBlockVersion: 1,
	}
}

// fixture builds a single-input, single-output confidential transaction
// that balances and verifies, along with a fakeTip containing every ring
// member's UTXOEntry. Callers tamper with the returned transaction or tip
// to exercise a specific rejection path. Since the output's cluster tags
// are folded into the signing hash, a test that needs a tampered tag
// vector must pass it in here rather than mutating it after signing.
func fixture(t *testing.T, params *chainparams.Params, blockHeight, tipHeight, fee uint64, outputTags []txtypes.ClusterTagEntry) (*txtypes.Transaction, *fakeTip) {
	t.Helper()

	const inAmount = uint64(500_000)
	outAmount := inAmount - fee

	n := params.RingSize
	type member struct {
		spendPriv curve.Scalar
		pubKey    curve.Point
		blinding  curve.Scalar
		commit    curve.Point
	}
	members := make([]member, n)
	for i := 0; i < n; i++ {
		sp, err := curve.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("RandomScalar: %v", err)
		}
		bl, err := curve.RandomBlinding()
		if err != nil {
			t.Fatalf("RandomBlinding: %v", err)
		}
		members[i] = member{
			spendPriv: sp,
			pubKey:    curve.ScalarBaseMult(sp),
			blinding:  bl,
			commit:    commitment.Commit(inAmount, bl),
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return string(members[i].pubKey.Bytes()) < string(members[j].pubKey.Bytes())
	})
	const real = 0

	tip := newFakeTip(tipHeight)
	ring := make([]txtypes.RingMember, n)
	for i, m := range members {
		ring[i] = txtypes.RingMember{PublicKey: m.pubKey, Commitment: m.commit}
		tip.addEntry(externalapi.NewUTXOEntry(txtypes.TxOut{
			Commitment: m.commit,
			TargetKey:  m.pubKey,
			PublicKey:  m.pubKey,
		}, txtypes.TokenID(params.NativeTokenID), blockHeight, false))
	}

	outBlinding, err := curve.RandomBlinding()
	if err != nil {
		t.Fatalf("RandomBlinding: %v", err)
	}
	outSpend, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	outTargetKey := curve.ScalarBaseMult(outSpend)
	outCommitment := commitment.Commit(outAmount, outBlinding)

	rangeProof, err := commitment.Prove(outAmount, outBlinding)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	pseudoOutputs, pseudoBlindings, err := commitment.PseudoOutputs([]uint64{inAmount}, outBlinding)
	if err != nil {
		t.Fatalf("PseudoOutputs: %v", err)
	}

	excess := commitment.ExcessCommitment(pseudoOutputs, []curve.Point{outCommitment}, fee)
	z := pseudoBlindings[0].Sub(outBlinding)
	balanceProof, err := commitment.ProveBalance(excess, z)
	if err != nil {
		t.Fatalf("ProveBalance: %v", err)
	}

	tx := &txtypes.Transaction{
		Version: 1,
		Inputs: []txtypes.TxIn{{
			Ring: ring,
		}},
		Outputs: []txtypes.TxOut{{
			Commitment:  outCommitment,
			TargetKey:   outTargetKey,
			PublicKey:   outTargetKey,
			ClusterTags: outputTags,
		}},
		FeeAmount:      fee,
		FeeTokenID:     txtypes.TokenID(params.NativeTokenID),
		TombstoneBlock: tipHeight + 1,
		PseudoOutputs:  pseudoOutputs,
		RangeProofs:    []*commitment.RangeProof{rangeProof},
		BalanceProof:   balanceProof,
	}

	spendKeys := tx.Inputs[0].RingPublicKeys()
	commitmentDiffs := make([]curve.Point, n)
	for i, m := range members {
		commitmentDiffs[i] = m.commit.Sub(pseudoOutputs[0])
	}
	commitPriv := members[real].blinding.Sub(pseudoBlindings[0])

	signingHash := hashserialization.TransactionSigningHash(tx)
	sig, err := ringsig.Sign(signingHash[:], spendKeys, commitmentDiffs, real, members[real].spendPriv, commitPriv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Inputs[0].Signature = sig
	tx.Inputs[0].KeyImage = sig.SpendKeyImage()

	return tx, tip
}

func TestValidateTransactionAccepts(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)

	v := New(params, clustertag.DefaultFeeCurve)
	if err := v.ValidateTransaction(tx, tip, 1); err != nil {
		t.Fatalf("ValidateTransaction: %v", err)
	}
}

func TestValidateTransactionRejectsWrongRingSize(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)

	wrongSize := testParams(4)
	v := New(wrongSize, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrRingSizeMismatch) {
		t.Fatalf("ValidateTransaction err = %v, want ErrRingSizeMismatch", err)
	}
}

func TestValidateTransactionRejectsStaleTombstone(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)
	tx.TombstoneBlock = tip.Height()

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrTombstoneExceeded) {
		t.Fatalf("ValidateTransaction err = %v, want ErrTombstoneExceeded", err)
	}
}

func TestValidateTransactionRejectsUnknownRingMember(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)

	forged, _ := curve.RandomBlinding()
	tx.Inputs[0].Ring[1].Commitment = curve.ScalarBaseMult(forged)

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrUnknownOutput) {
		t.Fatalf("ValidateTransaction err = %v, want ErrUnknownOutput", err)
	}
}

func TestValidateTransactionRejectsSpentKeyImage(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)
	tip.keyImages[string(tx.Inputs[0].KeyImage.Bytes())] = true

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrSpentKeyImage) {
		t.Fatalf("ValidateTransaction err = %v, want ErrSpentKeyImage", err)
	}
}

func TestValidateTransactionRejectsTamperedSignature(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)
	tx.FeeAmount += 1 // invalidates the signed hash without touching the signature itself

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrInvalidRingSignature) {
		t.Fatalf("ValidateTransaction err = %v, want ErrInvalidRingSignature", err)
	}
}

func TestValidateTransactionRejectsBrokenRangeProof(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)

	other, err := commitment.Prove(1, mustBlinding(t))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	tx.RangeProofs[0] = other

	v := New(params, clustertag.DefaultFeeCurve)
	err = v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrInvalidRangeProof) {
		t.Fatalf("ValidateTransaction err = %v, want ErrInvalidRangeProof", err)
	}
}

func TestValidateTransactionRejectsFeeBelowMinimum(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, params.MinFeePicocredits-1, nil)

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrFeeTooLow) {
		t.Fatalf("ValidateTransaction err = %v, want ErrFeeTooLow", err)
	}
}

func TestValidateTransactionRejectsMalformedTags(t *testing.T) {
	params := testParams(5)
	tags := []txtypes.ClusterTagEntry{
		{Cluster: 2, Weight: 1},
		{Cluster: 1, Weight: 1},
	}
	tx, tip := fixture(t, params, 0, 100, 2_000, tags)

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 1)
	if !ruleerrors.Is(err, ruleerrors.ErrClusterTagInflation) {
		t.Fatalf("ValidateTransaction err = %v, want ErrClusterTagInflation", err)
	}
}

func TestValidateTransactionRejectsBlockVersionTooOld(t *testing.T) {
	params := testParams(5)
	tx, tip := fixture(t, params, 0, 100, 2_000, nil)

	v := New(params, clustertag.DefaultFeeCurve)
	err := v.ValidateTransaction(tx, tip, 0)
	if !ruleerrors.Is(err, ruleerrors.ErrBlockVersionTooOld) {
		t.Fatalf("ValidateTransaction err = %v, want ErrBlockVersionTooOld", err)
	}
}

func mustBlinding(t *testing.T) curve.Scalar {
	t.Helper()
	b, err := curve.RandomBlinding()
	if err != nil {
		t.Fatalf("RandomBlinding: %v", err)
	}
	return b
}
