package clustertag

// AndDecayConfig parameterizes the AND-based decay model: tag weights on
// a UTXO only decay once both conditions hold — the output is being
// spent (a transfer occurs) AND at least MinBlocksBetweenDecay blocks
// have elapsed since its tags were last computed. Gating decay on
// elapsed time as well as on spending closes the wash-trading loophole
// of a pure hop-count model, where an attacker launders provenance by
// self-transferring many times within a single block
// (original_source/cluster-tax/src/transfer.rs module doc: legacy
// hop-based execute_transfer vs. execute_transfer_and/BlockAwareAccount).
type AndDecayConfig struct {
	MinBlocksBetweenDecay uint64
	DecayRatePerMille     uint64
}

// ApplyAndDecay decays tags in place if ageInBlocks — the number of
// blocks since the UTXO being spent was created, i.e. since its tags
// were last computed — meets cfg.MinBlocksBetweenDecay. It returns
// whether decay was applied; the validator and block builder use this
// to decide whether the spending transaction must also supply a fresh
// ClusterWealth delta for the decayed share.
func ApplyAndDecay(tags *Vector, ageInBlocks uint64, cfg AndDecayConfig) (decayed *Vector, applied bool) {
	out := tags.Clone()
	if ageInBlocks < cfg.MinBlocksBetweenDecay {
		return out, false
	}
	out.ApplyDecay(cfg.DecayRatePerMille)
	return out, true
}

// Result is the outcome of computing one transfer's fee, net amount,
// and outgoing tag vector.
type Result struct {
	Fee             uint64
	NetAmount       uint64
	FeeRateBps      uint64
	TransferredTags *Vector
}

// Compute derives the fee, net amount, and outgoing tag vector for
// amount leaving an output tagged senderTags (already decay-gated via
// ApplyAndDecay by the caller), following
// original_source/cluster-tax/src/transfer.rs: execute_transfer's fee
// and tag-transport steps. The sender's balance bookkeeping and UTXO
// consumption belong to the transaction validator (C7), not here.
func Compute(senderTags *Vector, amount uint64, wealth *Wealth, curve FeeCurve, scale uint64) Result {
	rate := curve.EffectiveRateBps(senderTags, wealth, scale)
	fee := mulDiv(amount, rate, 10_000)
	netAmount := amount - fee

	return Result{
		Fee:             fee,
		NetAmount:       netAmount,
		FeeRateBps:      rate,
		TransferredTags: senderTags.Clone(),
	}
}

// ApplyWealthDeltas updates the node-wide cluster wealth map for one
// transfer: mass leaves every cluster senderTags (pre-decay) attributed
// at `amount` scale, and mass arrives at every cluster transferredTags
// (post-decay) attributed at `netAmount` scale — the asymmetry is what
// lets the fee and the decayed share net out of the system rather than
// being double-counted (original_source/cluster-tax/src/transfer.rs:
// execute_transfer's ClusterWealth bookkeeping, steps 3-4).
func ApplyWealthDeltas(wealth *Wealth, senderTagsPreDecay *Vector, amount uint64, transferredTags *Vector, netAmount uint64, scale uint64) {
	senderTagsPreDecay.Each(func(cluster ClusterID, weight uint64) {
		leaving := mulDiv(weight, amount, scale)
		wealth.ApplyDelta(cluster, -int64(leaving))
	})
	transferredTags.Each(func(cluster ClusterID, weight uint64) {
		arriving := mulDiv(weight, netAmount, scale)
		wealth.ApplyDelta(cluster, int64(arriving))
	})
}

// MixIntoReceiver blends transferredTags (carrying netAmount of value)
// into the receiving output's prior tag vector (carrying balanceBefore
// of value — 0 for a brand-new output), pruned back to MaxTags entries.
func MixIntoReceiver(balanceBefore uint64, receiverTags *Vector, transferredTags *Vector, netAmount uint64, scale uint64, maxTags int, minStoredWeight uint64) *Vector {
	return Mix(balanceBefore, receiverTags, transferredTags, netAmount, scale, maxTags, minStoredWeight)
}
