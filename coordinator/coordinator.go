/*
Package coordinator handles all the logic related to forging batches out of
the pending transaction pool and submitting them to the anchor contract.

The Coordinator runs one long-lived goroutine that wakes up on a fixed
interval and runs a reconciliation cycle: read the current commitment and
balances from the anchor, atomically drain the pool, select and apply the
drained transactions in arrival order over the fresh ledger, compute the new
commitment, and hand the batch to the TxManager for submission.  Because one
goroutine runs the whole cycle, cycles never overlap: a cycle that outlives
the interval delays the next tick instead of racing a concurrent anchor
submission.

The ledger built during a cycle is a scratch view.  On any failure it is
simply discarded; the next cycle re-reads the anchor, which stays the single
source of truth.  Transactions of a batch whose submission ultimately fails
are requeued at the front of the pool so they are retried in the next cycle
ahead of newly admitted transactions.
*/
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"

	"rollup-sequencer/common"
	"rollup-sequencer/database/statedb"
	"rollup-sequencer/database/txpool"
	"rollup-sequencer/eth"
	"rollup-sequencer/log"
	"rollup-sequencer/metric"
	"rollup-sequencer/txprocessor"
	"rollup-sequencer/txselector"
)

// Config contains the Coordinator configuration
type Config struct {
	// ForgeDelay is the interval between batch cycles
	ForgeDelay time.Duration
	// SubmitAttempts is the number of attempts to submit a batch to the
	// anchor contract before giving up and requeueing its transactions
	SubmitAttempts int
	// SubmitRetryInterval is the waiting interval between batch
	// submission attempts
	SubmitRetryInterval time.Duration
	// AnchorReadAttempts is the number of attempts to read the anchor
	// root and state before skipping the cycle
	AnchorReadAttempts int
	// AnchorReadRetryInterval is the waiting interval between anchor
	// read attempts
	AnchorReadRetryInterval time.Duration
	// CallTimeout is the timeout applied to each individual anchor RPC
	// call
	CallTimeout time.Duration
	// TxProcessorConfig is the configuration of the TxProcessor
	TxProcessorConfig txprocessor.Config
}

// Coordinator implements the batch engine
type Coordinator struct {
	cfg Config

	pool        txpool.Store
	txSelector  *txselector.TxSelector
	txProcessor *txprocessor.TxProcessor
	txManager   *TxManager

	// batchNum is the sequential number of the last forged batch
	batchNum common.BatchNum
	started  bool

	ctx    context.Context
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(cfg Config, pool txpool.Store, txSelector *txselector.TxSelector,
	txProcessor *txprocessor.TxProcessor, anchorClient eth.AnchorInterface) (*Coordinator, error) {
	if cfg.ForgeDelay <= 0 {
		return nil, common.Wrap(fmt.Errorf("%w: ForgeDelay", common.ErrConfigMissing))
	}
	if cfg.SubmitAttempts <= 0 {
		return nil, common.Wrap(fmt.Errorf("%w: SubmitAttempts", common.ErrConfigMissing))
	}
	if cfg.AnchorReadAttempts <= 0 {
		return nil, common.Wrap(fmt.Errorf("%w: AnchorReadAttempts", common.ErrConfigMissing))
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := Coordinator{
		cfg:         cfg,
		pool:        pool,
		txSelector:  txSelector,
		txProcessor: txProcessor,
		ctx:         ctx,
		cancel:      cancel,
	}
	c.txManager = NewTxManager(&cfg, anchorClient)
	return &c, nil
}

// Start the coordinator
func (c *Coordinator) Start() {
	if c.started {
		log.Fatal("Coordinator already started")
	}
	c.started = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.ForgeDelay)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				log.Info("Coordinator done")
				return
			case <-ticker.C:
				if err := c.forgeCycle(c.ctx); common.IsErrDone(err) {
					continue
				} else if err != nil {
					log.Errorw("Coordinator.forgeCycle", "err", err)
				}
			}
		}
	}()
}

// Stop the coordinator.  Blocks until the in-flight cycle, if any, has
// finished, so a batch is never dropped mid-submission.
func (c *Coordinator) Stop() {
	if !c.started {
		log.Fatal("Coordinator already stopped")
	}
	c.started = false
	log.Infow("Stopping Coordinator...")
	c.cancel()
	c.wg.Wait()
}

// forgeCycle runs one reconciliation cycle
func (c *Coordinator) forgeCycle(ctx context.Context) error {
	// 1. read the anchor commitment and balances
	ledger, root, err := c.readAnchor(ctx)
	if err != nil {
		return common.Wrap(err)
	}

	// 2. atomically take the pending transactions
	txs := c.pool.DrainAll()
	metric.PoolSize.Set(float64(c.pool.Len()))
	if len(txs) == 0 {
		log.Debugw("no pending txs, skipping batch",
			"anchorRoot", root.Hex())
		return nil
	}

	// 3. select and apply in arrival order over the fresh ledger
	selected, dropped, surplus := c.txSelector.GetSelection(ledger, txs)
	if len(surplus) > 0 {
		// surplus beyond the per-batch maximum goes back ahead of
		// newly admitted txs, still in arrival order
		c.pool.Requeue(surplus)
		log.Infow("batch full, requeueing surplus txs", "n", len(surplus))
	}
	for _, d := range dropped {
		metric.TxsDropped.WithLabelValues(txselector.DropReasonType(d.Reason)).Inc()
	}
	if len(selected) == 0 {
		log.Infow("no applicable txs in this cycle",
			"drained", len(txs), "dropped", len(dropped))
		return nil
	}

	// 4. compute the new commitment
	out, err := c.txProcessor.ProcessTxs(ledger, selected)
	if err != nil {
		return common.Wrap(err)
	}

	// 5. submit the batch
	c.batchNum++
	batch := &common.Batch{
		BatchNum: c.batchNum,
		Txs:      out.AppliedTxs,
		NewRoot:  out.NewRoot,
	}
	if err := c.txManager.SubmitBatch(ctx, batch); err != nil {
		// the scratch ledger is discarded; the applied txs go back
		// to the front of the pool for the next cycle
		c.batchNum--
		c.pool.Requeue(out.AppliedTxs)
		metric.BatchSubmitFailures.Inc()
		return common.Wrap(err)
	}
	metric.BatchesSubmitted.Inc()
	metric.LastBatchNum.Set(float64(batch.BatchNum))
	log.Infow("batch submitted",
		"batchNum", batch.BatchNum,
		"txs", len(batch.Txs),
		"dropped", len(dropped),
		"newRoot", batch.NewRoot.Hex(),
		"ethTxHash", batch.EthTxHash.Hex(),
	)
	return nil
}

// readAnchor fetches the current commitment and balances from the anchor
// contract, with bounded retries, and builds the cycle ledger from them
func (c *Coordinator) readAnchor(ctx context.Context) (*statedb.Ledger, ethCommon.Hash, error) {
	anchorClient := c.txManager.anchorClient
	var root ethCommon.Hash
	var ledger *statedb.Ledger
	err := c.withRetry(ctx, c.cfg.AnchorReadAttempts, c.cfg.AnchorReadRetryInterval,
		func(callCtx context.Context) error {
			r, err := anchorClient.AnchorRoot(callCtx)
			if err != nil {
				return common.Wrap(err)
			}
			addrs, balances, err := anchorClient.AnchorState(callCtx)
			if err != nil {
				return common.Wrap(err)
			}
			l, err := statedb.NewLedger(addrs, balances)
			if err != nil {
				return common.Wrap(err)
			}
			root = r
			ledger = l
			return nil
		})
	if err != nil {
		if common.IsErrDone(err) {
			return nil, root, common.Wrap(common.ErrDone)
		}
		return nil, root, common.Wrap(fmt.Errorf("%w: %s", common.ErrAnchorRead, err))
	}
	log.Debugw("anchor state read",
		"root", root.Hex(), "accounts", ledger.NumAccounts())
	return ledger, root, nil
}

// withRetry runs fn up to attempts times, waiting delay between attempts
// and giving each attempt its own call timeout.  Returns ErrDone when the
// context is cancelled while waiting.
func (c *Coordinator) withRetry(ctx context.Context, attempts int, delay time.Duration,
	fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return common.Wrap(common.ErrDone)
		}
		log.Debugw("anchor call failed, retrying",
			"attempt", attempt+1, "attempts", attempts, "err", err)
		select {
		case <-ctx.Done():
			return common.Wrap(common.ErrDone)
		case <-time.After(delay):
		}
	}
	return common.Wrap(err)
}
