package transactions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrDuplicateTransaction maps the unique-violation on
	// external_transaction_id. It is the definitive idempotency guard:
	// callers react by re-reading the winning entry.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
	// ErrAlreadyRolledBack is reported by MarkRolledBack when the original
	// debit already carries the reversal marker.
	ErrAlreadyRolledBack = errors.New("transaction already rolled back")
)

type Kind string

const (
	KindDebit    Kind = "debit"
	KindCredit   Kind = "credit"
	KindRollback Kind = "rollback"
)

// Entry is one append-only ledger record. ResponseCache holds the exact
// response body returned on the first successful write; duplicates replay
// it verbatim.
type Entry struct {
	ID                int64
	ExternalID        string
	Kind              Kind
	Amount            int64
	WalletID          int64
	SessionID         int64
	RoundID           string
	RelatedExternalID *string
	BalanceAfter      int64
	ResponseCache     []byte
	IsRollback        bool
	Reason            *string
	CreatedAt         time.Time
}

type Transactions interface {
	// Insert appends an entry inside tx; a colliding external id reports
	// ErrDuplicateTransaction.
	Insert(tx *sql.Tx, e *Entry) error
	GetByExternalID(ctx context.Context, externalID string) (*Entry, error)
	// MarkRolledBack flips is_rollback on the original debit. Reports
	// ErrAlreadyRolledBack when the flag was already set, which closes the
	// race between two concurrent reversals of the same original.
	MarkRolledBack(tx *sql.Tx, externalID string) error
	// HasCreditFor reports whether any credit entry pays out the given
	// original debit.
	HasCreditFor(tx *sql.Tx, originalExternalID string) (bool, error)
	// HasRollbackFor reports whether any rollback entry references the
	// given original.
	HasRollbackFor(ctx context.Context, originalExternalID string) (bool, error)
}
