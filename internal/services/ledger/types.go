package ledger

import "errors"

var (
	ErrInvalidSession       = errors.New("invalid session")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCannotRollbackPayout = errors.New("cannot rollback a payout")
)

type DebitRequest struct {
	SessionToken  string
	TransactionID string
	RoundID       string
	Amount        int64
}

type CreditRequest struct {
	SessionToken         string
	TransactionID        string
	RoundID              string
	Amount               int64
	RelatedTransactionID *string
}

type RollbackRequest struct {
	SessionToken          string
	TransactionID         string
	OriginalTransactionID string
	Reason                *string
}

// Result carries the exact response body for a money-moving call.
// Duplicate submits replay the body persisted on first success, so two
// calls with the same transaction id return byte-identical payloads.
type Result struct {
	Body      []byte
	Duplicate bool
}

type BalanceResponse struct {
	Success  bool   `json:"success"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

type TxResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Balance       int64  `json:"balance"`
	Currency      string `json:"currency"`
}

type RollbackResponse struct {
	Success           bool   `json:"success"`
	TransactionID     string `json:"transactionId"`
	RolledBack        bool   `json:"rolledBack"`
	Balance           int64  `json:"balance"`
	Currency          string `json:"currency"`
	Message           string `json:"message"`
	Tombstone         bool   `json:"tombstone,omitempty"`
	AlreadyRolledBack bool   `json:"alreadyRolledBack,omitempty"`
}
