// Package coinbasemanager builds and validates a block's minting
// transaction, Botho's single-minter-per-block PoW reward (spec.md
// §4.9) adapted from the teacher's coinbaseManager, which instead built
// a reward-distribution coinbase over GHOSTDAG's merge set. There is no
// merge set here: one block has exactly one minter, so the minting
// transaction always carries exactly one reward output plus whatever
// lottery outputs the fee-redistribution sub-protocol assigned.
package coinbasemanager

import (
	"crypto/rand"

	"github.com/botho-project/botho/crypto/commitment"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/stealth"
	"github.com/botho-project/botho/domain/chainparams"
	"github.com/botho-project/botho/domain/consensus/ruleerrors"
	"github.com/botho-project/botho/txtypes"
	"github.com/pkg/errors"
)

// maxLotteryOutputs bounds the lottery sub-protocol's output count so a
// malicious template can't inflate a block's minting transaction
// without limit.
const maxLotteryOutputs = 64

// Manager builds and validates minting transactions.
type Manager struct {
	params *chainparams.Params
}

// New instantiates a Manager for params.
func New(params *chainparams.Params) *Manager {
	return &Manager{params: params}
}

// BuildMintingTransaction constructs the minting transaction for the
// next block, paying the fixed block reward to a fresh
// one-time output under minter.
func (m *Manager) BuildMintingTransaction(minter stealth.PublicAddress, lottery []txtypes.LotteryOutput) (txtypes.Transaction, error) {
	out, err := m.rewardOutput(minter, m.params.BlockReward)
	if err != nil {
		return txtypes.Transaction{}, err
	}

	outputs := []txtypes.TxOut{out}
	for _, lo := range lottery {
		outputs = append(outputs, lo.Out)
	}

	return txtypes.Transaction{
		Version: 1,
		Outputs: outputs,
	}, nil
}

func (m *Manager) rewardOutput(minter stealth.PublicAddress, amount uint64) (txtypes.TxOut, error) {
	r, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return txtypes.TxOut{}, errors.Wrap(err, "sampling ephemeral key")
	}
	sent := stealth.SendTo(minter, r)

	blinding, err := commitment.RandomBlinding()
	if err != nil {
		return txtypes.TxOut{}, errors.Wrap(err, "sampling reward blinding")
	}

	return txtypes.TxOut{
		Commitment: commitment.Commit(amount, blinding),
		TargetKey:  sent.TargetKey,
		PublicKey:  sent.PublicKey,
	}, nil
}

// ValidateMintingTransaction checks tx's shape in the context of the
// block it belongs to (spec.md §4.9): no ring inputs, at least the
// fixed reward output, and no more lottery outputs than the protocol
// allows. The reward amount itself is hidden behind a Pedersen
// commitment the minter alone can open; only the output count and
// feature gating are checked here, matching the confidential-amount
// design noted in DESIGN.md.
func (m *Manager) ValidateMintingTransaction(tx *txtypes.Transaction, blockVersion uint32) error {
	if !tx.IsCoinbase() {
		return ruleerrors.New(ruleerrors.ErrBadCoinbaseTransaction, "minting transaction must have no ring inputs")
	}
	if len(tx.Outputs) == 0 {
		return ruleerrors.New(ruleerrors.ErrBadCoinbaseTransaction, "minting transaction has no outputs")
	}
	if len(tx.Outputs) > 1+maxLotteryOutputs {
		return ruleerrors.New(ruleerrors.ErrBadCoinbaseTransaction,
			"minting transaction has %d outputs, more than the %d allowed", len(tx.Outputs), 1+maxLotteryOutputs)
	}
	for i, out := range tx.Outputs {
		if out.PQEnvelope != nil && !m.params.FeatureAllowedAtVersion(chainparams.FeaturePQInputs, blockVersion) {
			return ruleerrors.New(ruleerrors.ErrFeatureNotAllowedAtBlockVersion,
				"minting output %d carries a PQ envelope before block version %d activates it", i,
				m.params.FeatureActivationHeight[chainparams.FeaturePQInputs])
		}
	}
	return nil
}
