// Package test provides a deterministic in-memory anchor client used by the
// coordinator and node tests in place of a real contract.
package test

import (
	"context"
	"math/big"
	"reflect"
	"sync"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mitchellh/copystructure"

	"rollup-sequencer/common"
	"rollup-sequencer/database/statedb"
	"rollup-sequencer/log"
)

func init() {
	log.Init("debug", []string{"stdout"})
	copystructure.Copiers[reflect.TypeOf(big.Int{})] =
		func(raw interface{}) (interface{}, error) {
			in := raw.(big.Int)
			out := new(big.Int).Set(&in)
			return *out, nil
		}
}

// SubmittedBatch records one accepted submitBatch call
type SubmittedBatch struct {
	Txs     []common.SignedTx
	NewRoot ethCommon.Hash
	EthTx   *types.Transaction
}

// AnchorClient implements the eth.AnchorInterface, allowing to manipulate
// the values for testing, working with deterministic results.  Submitted
// batches are applied to the internal ledger the way the contract would, so
// a subsequent state read observes the post-batch balances.
type AnchorClient struct {
	rw     *sync.RWMutex
	ledger *statedb.Ledger

	// SubmitErr, when set, makes AnchorSubmitBatch fail with this error
	SubmitErr error
	// ReadErr, when set, makes AnchorRoot and AnchorState fail with this
	// error
	ReadErr error

	submitted []SubmittedBatch
	ethNonce  uint64
}

// NewAnchorClient returns a mock anchor holding the given genesis balances
func NewAnchorClient(addrs []ethCommon.Address, balances []*big.Int) (*AnchorClient, error) {
	ledger, err := statedb.NewLedger(addrs, balances)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &AnchorClient{
		rw:     &sync.RWMutex{},
		ledger: ledger,
	}, nil
}

// AnchorRoot returns the commitment over the current balances
func (c *AnchorClient) AnchorRoot(ctx context.Context) (ethCommon.Hash, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()
	if c.ReadErr != nil {
		return ethCommon.Hash{}, c.ReadErr
	}
	return c.ledger.Root()
}

// AnchorState returns the account addresses and balances in canonical order
func (c *AnchorClient) AnchorState(ctx context.Context) ([]ethCommon.Address,
	[]*big.Int, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()
	if c.ReadErr != nil {
		return nil, nil, c.ReadErr
	}
	addrs := c.ledger.Accounts()
	balances := make([]*big.Int, len(addrs))
	for i, addr := range addrs {
		balance, _ := c.ledger.Balance(addr)
		balances[i] = balance
	}
	return addrs, balances, nil
}

// AnchorSubmitBatch re-validates and applies the batch like the contract
// would, rejecting it whole if any transaction is invalid or the resulting
// commitment doesn't match newRoot
func (c *AnchorClient) AnchorSubmitBatch(ctx context.Context, txs []common.SignedTx,
	newRoot ethCommon.Hash) (*types.Transaction, error) {
	c.rw.Lock()
	defer c.rw.Unlock()
	if c.SubmitErr != nil {
		return nil, c.SubmitErr
	}
	scratch := c.ledger.Clone()
	for _, stx := range txs {
		if err := stx.VerifySignature(); err != nil {
			return nil, common.Wrap(err)
		}
		if err := scratch.Apply(&stx); err != nil {
			return nil, common.Wrap(err)
		}
	}
	root, err := scratch.Root()
	if err != nil {
		return nil, common.Wrap(err)
	}
	if root != newRoot {
		return nil, common.Wrap(common.ErrAnchorSubmit)
	}
	c.ledger = scratch

	ethTx := types.NewTx(&types.LegacyTx{
		Nonce: c.ethNonce,
		Data:  newRoot.Bytes(),
	})
	c.ethNonce++
	c.submitted = append(c.submitted, SubmittedBatch{
		Txs:     txs,
		NewRoot: newRoot,
		EthTx:   ethTx,
	})
	return ethTx, nil
}

// Submitted returns a deep copy of the batches accepted so far
func (c *AnchorClient) Submitted() []SubmittedBatch {
	c.rw.RLock()
	defer c.rw.RUnlock()
	out := make([]SubmittedBatch, len(c.submitted))
	copy(out, c.submitted)
	for i := range out {
		txsRaw, err := copystructure.Copy(out[i].Txs)
		if err != nil {
			panic(err)
		}
		out[i].Txs = txsRaw.([]common.SignedTx)
	}
	return out
}
