package common

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
)

// Batch is the set of transactions applied in one reconciliation cycle
// together with the resulting state commitment.  It is ephemeral: created
// once per cycle and consumed by the anchor submission.
type Batch struct {
	BatchNum BatchNum
	// Txs are the transactions applied in this batch, in arrival order
	Txs []SignedTx
	// NewRoot is the state commitment over the ledger after applying Txs
	NewRoot ethCommon.Hash
	// EthTxHash is the hash of the anchor transaction that submitted the
	// batch, set once the submission call succeeds
	EthTxHash ethCommon.Hash
}

// BatchNum is the sequential number of a batch forged by this sequencer
// since startup
type BatchNum uint32
