// Package txselector selects, from the transactions drained out of the
// pool, the ones that can be applied against the ledger just read from the
// anchor.  Selection folds the drained sequence in arrival order over a
// scratch copy of the ledger, so an earlier transaction that spends a
// balance makes a later one spending the same balance fail: the FIFO
// tie-break is a property of the fold, not a separate rule.
package txselector

import (
	"rollup-sequencer/common"
	"rollup-sequencer/database/statedb"
	"rollup-sequencer/log"
)

// DroppedTx is a drained transaction excluded from the batch, with the
// validation error that excluded it.  Dropped transactions are not retried:
// they were rejected against fresh anchor state.
type DroppedTx struct {
	Tx     common.SignedTx
	Reason error
}

// TxSelector implements the batch-time transaction selection
type TxSelector struct {
	// maxTx bounds the number of transactions selected per batch;
	// 0 means unbounded
	maxTx uint32
}

// NewTxSelector creates a TxSelector that selects at most maxTx
// transactions per batch
func NewTxSelector(maxTx uint32) *TxSelector {
	return &TxSelector{maxTx: maxTx}
}

// GetSelection returns the transactions of txs, in arrival order, that
// validate and apply against ledger, together with the ones dropped and the
// surplus beyond the per-batch maximum.  The ledger passed in is not
// mutated; the fold runs on an internal scratch copy.
func (txsel *TxSelector) GetSelection(ledger *statedb.Ledger,
	txs []common.SignedTx) (selected []common.SignedTx, dropped []DroppedTx,
	surplus []common.SignedTx) {
	scratch := ledger.Clone()
	for i, stx := range txs {
		if txsel.maxTx > 0 && uint32(len(selected)) >= txsel.maxTx {
			surplus = txs[i:]
			break
		}
		if err := scratch.Apply(&stx); err != nil {
			txid, _ := stx.Tx.Digest()
			log.Debugw("tx dropped from selection",
				"txid", txid.String(),
				"from", stx.Tx.From.Hex(),
				"value", stx.Tx.Value.String(),
				"reason", common.Unwrap(err).Error(),
			)
			dropped = append(dropped, DroppedTx{Tx: stx, Reason: common.Unwrap(err)})
			continue
		}
		selected = append(selected, stx)
	}
	return selected, dropped, surplus
}
