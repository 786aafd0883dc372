/*
Package txprocessor takes the transactions selected for a batch and
processes them, updating the balances of the accounts in the ledger and
computing the resulting state commitment.

The ProcessTxs input is expected to come from the txselector, so under
normal operation every transaction applies cleanly.  The ledger Apply still
re-checks each transfer: a transaction that fails to apply here is reported
in the output and excluded from the batch rather than treated as fatal,
since the selection and the application could one day run over different
ledger views.
*/
package txprocessor

import (
	"rollup-sequencer/common"
	"rollup-sequencer/database/statedb"
	"rollup-sequencer/log"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// TxProcessor represents the TxProcessor object
type TxProcessor struct {
	config Config
}

// Config contains the TxProcessor configuration parameters
type Config struct {
	// MaxTx is the maximum number of transactions per batch
	MaxTx uint32
}

// ProcessTxOutput contains the output of one ProcessTxs run
type ProcessTxOutput struct {
	// AppliedTxs are the transactions that made it into the batch, in
	// arrival order
	AppliedTxs []common.SignedTx
	// FailedTxs are the transactions that unexpectedly failed to apply
	FailedTxs []common.SignedTx
	// NewRoot is the state commitment over the ledger after AppliedTxs
	NewRoot ethCommon.Hash
}

// NewTxProcessor returns a new TxProcessor with the given config
func NewTxProcessor(config Config) *TxProcessor {
	return &TxProcessor{config: config}
}

// ProcessTxs applies txs to ledger in order and computes the commitment
// over the resulting state.  The ledger is mutated; callers pass the
// scratch view built for the current cycle.
func (tp *TxProcessor) ProcessTxs(ledger *statedb.Ledger,
	txs []common.SignedTx) (*ProcessTxOutput, error) {
	if tp.config.MaxTx > 0 && uint32(len(txs)) > tp.config.MaxTx {
		txs = txs[:tp.config.MaxTx]
	}
	out := &ProcessTxOutput{
		AppliedTxs: make([]common.SignedTx, 0, len(txs)),
	}
	for _, stx := range txs {
		if err := ledger.Apply(&stx); err != nil {
			txid, _ := stx.Tx.Digest()
			log.Warnw("selected tx failed to apply",
				"txid", txid.String(), "err", common.Unwrap(err))
			out.FailedTxs = append(out.FailedTxs, stx)
			continue
		}
		out.AppliedTxs = append(out.AppliedTxs, stx)
	}
	root, err := ledger.Root()
	if err != nil {
		return nil, common.Wrap(err)
	}
	out.NewRoot = root
	return out, nil
}
