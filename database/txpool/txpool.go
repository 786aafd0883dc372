// Package txpool implements the pending-transaction pool shared between the
// admission API and the batch engine.  The pool is volatile: its contents do
// not survive a restart.  The Store interface is the plug point for a
// durable backend.
package txpool

import (
	"sync"

	"rollup-sequencer/common"
)

// Store is the buffer of admitted transactions pending inclusion in a batch
type Store interface {
	// Push appends stx to the tail of the pool.  Safe for concurrent use.
	Push(stx common.SignedTx) error
	// DrainAll atomically removes and returns the entire pool contents
	// in arrival order.  A concurrent Push lands entirely before or
	// entirely after the drain, never split.
	DrainAll() []common.SignedTx
	// Requeue puts txs back at the front of the pool, ahead of
	// transactions admitted since they were drained
	Requeue(txs []common.SignedTx)
	// Len returns the number of pending transactions
	Len() int
}

// Pool is the in-memory Store: a FIFO slice guarded by a mutex, with an
// optional capacity bound
type Pool struct {
	mu       sync.Mutex
	txs      []common.SignedTx
	capacity int
}

// NewPool creates an empty Pool.  capacity 0 means unbounded.
func NewPool(capacity int) *Pool {
	return &Pool{
		txs:      make([]common.SignedTx, 0),
		capacity: capacity,
	}
}

// Push appends stx to the tail of the pool, rejecting it with ErrPoolFull
// once the capacity is reached
func (p *Pool) Push(stx common.SignedTx) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity > 0 && len(p.txs) >= p.capacity {
		return common.Wrap(common.ErrPoolFull)
	}
	p.txs = append(p.txs, stx)
	return nil
}

// DrainAll atomically takes the entire pool contents, leaving it empty
func (p *Pool) DrainAll() []common.SignedTx {
	p.mu.Lock()
	defer p.mu.Unlock()
	txs := p.txs
	p.txs = make([]common.SignedTx, 0)
	return txs
}

// Requeue prepends txs in order, ahead of transactions admitted since the
// drain.  Capacity is not enforced here: requeued transactions were already
// admitted once and must not be silently dropped.
func (p *Pool) Requeue(txs []common.SignedTx) {
	if len(txs) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(append(make([]common.SignedTx, 0, len(txs)+len(p.txs)), txs...), p.txs...)
}

// Len returns the number of pending transactions
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}
