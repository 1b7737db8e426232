package model

import (
	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/domain/consensus/model/externalapi"
	"github.com/botho-project/botho/txtypes"
)

// LedgerTip is the read-only ledger view the transaction validator
// consults for the ledger and fee checks of spec.md §4.6. Implemented by
// the ledger store (C8); a mempool or block-builder caller passes either
// the chain tip itself or a tip overlaid with its own pending view.
type LedgerTip interface {
	// UTXOEntry resolves a ring member by its on-chain identity (target
	// public key and commitment). ok is false if no such unspent output
	// exists at the tip.
	UTXOEntry(publicKey, commitment curve.Point) (entry *externalapi.UTXOEntry, ok bool)
	// HasKeyImage reports whether keyImage already appears in the
	// key-image set.
	HasKeyImage(keyImage curve.Point) bool
	// HasOutputPublicKey reports whether publicKey already identifies an
	// existing output (spent or unspent) on the canonical chain.
	HasOutputPublicKey(publicKey curve.Point) bool
	// ClusterWealth returns the node-wide cluster wealth map as of the
	// tip, feeding the progressive fee floor (spec.md §4.5).
	ClusterWealth() *clustertag.Wealth
	// Height is the tip's block height.
	Height() uint64
}

// TransactionValidator checks a transaction against the current ledger
// tip, running the seven checks of spec.md §4.6 in order: structural,
// tombstone, ledger, cryptographic, fee, tag, block-version gating.
type TransactionValidator interface {
	ValidateTransaction(tx *txtypes.Transaction, tip LedgerTip, blockVersion uint32) error
}
