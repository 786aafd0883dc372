package txselector

import (
	"rollup-sequencer/common"
)

const (
	// ErrInsufficientBalanceMsg error message returned when a transaction is dropped
	// because the sender balance, after the transactions ahead of it in the batch,
	// doesn't cover the transferred value
	ErrInsufficientBalanceMsg = "Tx not selected due to insufficient sender balance at batch time"
	// ErrInsufficientBalanceCode error code
	ErrInsufficientBalanceCode int = 1
	// ErrInsufficientBalanceType error type
	ErrInsufficientBalanceType string = "ErrInsufficientBalance"

	// ErrUnknownSenderMsg error message returned when a transaction is dropped
	// because its sender has no account in the state read from the anchor
	ErrUnknownSenderMsg = "Tx not selected because the sender has no account on the anchor ledger"
	// ErrUnknownSenderCode error code
	ErrUnknownSenderCode int = 2
	// ErrUnknownSenderType error type
	ErrUnknownSenderType string = "ErrUnknownSender"

	// ErrUnknownDropType error type used for drop reasons outside the taxonomy
	ErrUnknownDropType string = "ErrUnknown"
)

// DropReasonType returns the error type string of a DroppedTx reason, used
// to label the drop metrics and logs
func DropReasonType(err error) string {
	switch common.Unwrap(err) {
	case common.ErrInsufficientBalance:
		return ErrInsufficientBalanceType
	case common.ErrUnknownSender:
		return ErrUnknownSenderType
	}
	return ErrUnknownDropType
}
