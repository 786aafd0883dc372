package common

import (
	"errors"

	"github.com/hermeznetwork/tracerr"
)

// ErrInvalidSignature is used when a SignedTx signature does not recover to
// the claimed sender address, or is malformed
var ErrInvalidSignature = errors.New("invalid transaction signature")

// ErrInsufficientBalance is used when a transaction spends more than the
// sender balance at batch time
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrUnknownSender is used when the transaction sender has no account in the
// ledger read from the anchor
var ErrUnknownSender = errors.New("unknown sender")

// ErrMalformedParams is used when an ingest payload cannot be deserialized
var ErrMalformedParams = errors.New("malformed params")

// ErrPoolFull is used when the tx pool capacity is reached and a new
// transaction cannot be admitted
var ErrPoolFull = errors.New("tx pool is full")

// ErrNumOverflow is used when a given value overflows the maximum capacity of the parameter
var ErrNumOverflow = errors.New("value overflows the type")

// ErrConfigMissing is used when a required configuration parameter is absent at startup
var ErrConfigMissing = errors.New("missing configuration parameter")

// ErrAnchorRead is used when reading the anchor contract state fails after
// all retry attempts
var ErrAnchorRead = errors.New("anchor state read failed")

// ErrAnchorSubmit is used when submitting a batch to the anchor contract
// fails after all retry attempts
var ErrAnchorSubmit = errors.New("anchor batch submission failed")

// ErrDone is used when a function returns earlier due to a cancelled context
var ErrDone = errors.New("done")

// Wrap attaches the stack trace to the error
func Wrap(err error) error {
	return tracerr.Wrap(err)
}

// Unwrap returns the underlying error without the stack trace
func Unwrap(err error) error {
	return tracerr.Unwrap(err)
}

// IsErrDone returns true if the error or wrapped error is ErrDone
func IsErrDone(err error) bool {
	return Unwrap(err) == ErrDone
}
