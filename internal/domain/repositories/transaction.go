package repositories

import "context"

// TxFn runs inside a transaction. The ctx it receives carries the
// transaction handle and must be passed to every repository call made
// within, or those calls will run outside the transaction.
type TxFn func(ctx context.Context) error

// TransactionManager runs a function atomically. A non-nil return from
// the function rolls the transaction back; nil commits.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
