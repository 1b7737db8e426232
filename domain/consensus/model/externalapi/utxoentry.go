package externalapi

import "github.com/botho-project/botho/txtypes"

// UTXOEntry houses everything the ledger needs to know about an unspent
// output beyond its ring-membership identity: the output itself (target
// key, commitment, masked amount, cluster tags, optional PQ envelope),
// which token it denominates, the height of the block that created it,
// and whether that block was the minting transaction.
//
// Amounts are never stored in the clear here; only the Pedersen
// commitment and masked value travel with the entry, matching spec.md
// §3's UTXO set ("mapping UtxoId -> TxOut-with-metadata").
type UTXOEntry struct {
	Output      txtypes.TxOut
	TokenID     txtypes.TokenID
	BlockHeight uint64
	IsCoinbase  bool
}

// Clone returns a deep copy of the entry.
func (entry *UTXOEntry) Clone() *UTXOEntry {
	if entry == nil {
		return nil
	}

	clusterTagsClone := make([]txtypes.ClusterTagEntry, len(entry.Output.ClusterTags))
	copy(clusterTagsClone, entry.Output.ClusterTags)
	output := entry.Output
	output.ClusterTags = clusterTagsClone
	if entry.Output.EncryptedMemo != nil {
		memo := *entry.Output.EncryptedMemo
		output.EncryptedMemo = &memo
	}

	return &UTXOEntry{
		Output:      output,
		TokenID:     entry.TokenID,
		BlockHeight: entry.BlockHeight,
		IsCoinbase:  entry.IsCoinbase,
	}
}

// NewUTXOEntry creates a UTXOEntry for an output accepted at blockHeight.
func NewUTXOEntry(output txtypes.TxOut, tokenID txtypes.TokenID, blockHeight uint64, isCoinbase bool) *UTXOEntry {
	return (&UTXOEntry{
		Output:      output,
		TokenID:     tokenID,
		BlockHeight: blockHeight,
		IsCoinbase:  isCoinbase,
	}).Clone()
}

// Equal reports whether entry and other represent the same unspent output.
func (entry *UTXOEntry) Equal(other *UTXOEntry) bool {
	if entry == nil || other == nil {
		return entry == other
	}

	if entry.TokenID != other.TokenID ||
		entry.BlockHeight != other.BlockHeight ||
		entry.IsCoinbase != other.IsCoinbase {
		return false
	}

	return entry.Output.Commitment.Equal(other.Output.Commitment) &&
		entry.Output.TargetKey.Equal(other.Output.TargetKey) &&
		entry.Output.PublicKey.Equal(other.Output.PublicKey)
}
