// Package statedb holds the in-memory account ledger the batch engine folds
// transactions over.  The ledger is not owned long-term: it is reconstructed
// at the start of every cycle from the state read from the anchor contract,
// which stays the single source of truth for balances.
package statedb

import (
	"bytes"
	"math/big"
	"sort"

	"rollup-sequencer/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
)

// Ledger maps account addresses to their non-negative balances.  The account
// enumeration used for the state commitment is canonical: ascending address
// byte order over the full account set, however each account got there.
type Ledger struct {
	balances map[ethCommon.Address]*big.Int
}

// NewLedger creates a Ledger from parallel address/balance slices, as read
// from the anchor contract
func NewLedger(addrs []ethCommon.Address, balances []*big.Int) (*Ledger, error) {
	if len(addrs) != len(balances) {
		return nil, common.Wrap(common.ErrMalformedParams)
	}
	l := &Ledger{balances: make(map[ethCommon.Address]*big.Int, len(addrs))}
	for i, addr := range addrs {
		if balances[i] == nil || balances[i].Sign() < 0 {
			return nil, common.Wrap(common.ErrNumOverflow)
		}
		l.balances[addr] = new(big.Int).Set(balances[i])
	}
	return l, nil
}

// Accounts returns the full account set in canonical (ascending address
// byte) order
func (l *Ledger) Accounts() []ethCommon.Address {
	addrs := make([]ethCommon.Address, 0, len(l.balances))
	for addr := range l.balances {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

// Balance returns a copy of the balance of addr, and whether the account
// exists in the ledger
func (l *Ledger) Balance(addr ethCommon.Address) (*big.Int, bool) {
	balance, ok := l.balances[addr]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(balance), true
}

// NumAccounts returns the number of accounts in the ledger
func (l *Ledger) NumAccounts() int {
	return len(l.balances)
}

// Validate succeeds iff the sender of stx exists in the ledger and holds at
// least the transferred value.  A sender absent from the ledger is reported
// as ErrUnknownSender; it can never pass validation.
func (l *Ledger) Validate(stx *common.SignedTx) error {
	balance, ok := l.balances[stx.Tx.From]
	if !ok {
		return common.Wrap(common.ErrUnknownSender)
	}
	if balance.Cmp(stx.Tx.Value) < 0 {
		return common.Wrap(common.ErrInsufficientBalance)
	}
	return nil
}

// Apply debits stx.Tx.Value from the sender and credits it to the receiver,
// creating the receiver account at balance 0 first if absent.  Apply
// re-checks the balance instead of assuming a prior Validate, so applying an
// invalid transaction is a recoverable error, never a panic.  Conservation
// holds: the sum of all balances is unchanged.
func (l *Ledger) Apply(stx *common.SignedTx) error {
	if err := l.Validate(stx); err != nil {
		return common.Wrap(err)
	}
	l.balances[stx.Tx.From].Sub(l.balances[stx.Tx.From], stx.Tx.Value)
	if _, ok := l.balances[stx.Tx.To]; !ok {
		l.balances[stx.Tx.To] = big.NewInt(0)
	}
	l.balances[stx.Tx.To].Add(l.balances[stx.Tx.To], stx.Tx.Value)
	return nil
}

// Root returns the state commitment: keccak256 over the concatenation of
// the 32 byte big-endian balance of every account, in canonical order.  A
// pure function of the ledger contents.
func (l *Ledger) Root() (ethCommon.Hash, error) {
	msg := make([]byte, 0, 32*len(l.balances))
	for _, addr := range l.Accounts() {
		balanceBytes, err := common.BigIntToBytes32(l.balances[addr])
		if err != nil {
			return ethCommon.Hash{}, common.Wrap(err)
		}
		msg = append(msg, balanceBytes...)
	}
	return ethCrypto.Keccak256Hash(msg), nil
}

// Clone returns a deep copy of the ledger, so a scratch view can be mutated
// and discarded without touching the original
func (l *Ledger) Clone() *Ledger {
	balances := make(map[ethCommon.Address]*big.Int, len(l.balances))
	for addr, balance := range l.balances {
		balances[addr] = new(big.Int).Set(balance)
	}
	return &Ledger{balances: balances}
}
