package coordinator

import (
	"context"
	"fmt"
	"time"

	"rollup-sequencer/common"
	"rollup-sequencer/eth"
	"rollup-sequencer/log"
)

// TxManager handles the submission of forged batches to the anchor
// contract, retrying a bounded number of times before reporting the batch
// as failed
type TxManager struct {
	cfg          *Config
	anchorClient eth.AnchorInterface

	// lastSuccessBatch is the last batch that was successfully accepted
	// by the anchor contract
	lastSuccessBatch common.BatchNum
}

// NewTxManager creates a new TxManager
func NewTxManager(cfg *Config, anchorClient eth.AnchorInterface) *TxManager {
	return &TxManager{
		cfg:          cfg,
		anchorClient: anchorClient,
	}
}

// LastSuccessBatch returns the number of the last successfully submitted
// batch
func (t *TxManager) LastSuccessBatch() common.BatchNum {
	return t.lastSuccessBatch
}

// SubmitBatch sends the batch to the anchor contract.  On success the
// ethereum transaction hash is recorded in the batch.  The contract
// re-validates every signature and balance transition on its side, so a
// rejection here is final for this batch: the caller requeues the
// transactions and the next cycle rebuilds them over a fresh ledger.
func (t *TxManager) SubmitBatch(ctx context.Context, batch *common.Batch) error {
	var lastErr error
	for attempt := 0; attempt < t.cfg.SubmitAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, t.cfg.CallTimeout)
		ethTx, err := t.anchorClient.AnchorSubmitBatch(callCtx, batch.Txs, batch.NewRoot)
		cancel()
		if err == nil {
			batch.EthTxHash = ethTx.Hash()
			t.lastSuccessBatch = batch.BatchNum
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return common.Wrap(common.ErrDone)
		}
		log.Warnw("TxManager: batch submission failed, retrying",
			"batchNum", batch.BatchNum,
			"attempt", attempt+1,
			"attempts", t.cfg.SubmitAttempts,
			"err", err,
		)
		select {
		case <-ctx.Done():
			return common.Wrap(common.ErrDone)
		case <-time.After(t.cfg.SubmitRetryInterval):
		}
	}
	return common.Wrap(fmt.Errorf("%w: %s", common.ErrAnchorSubmit, lastErr))
}
