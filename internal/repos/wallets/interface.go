package wallets

import (
	"context"
	"database/sql"
	"errors"
)

var ErrWalletNotFound = errors.New("wallet not found")

type Wallet struct {
	ID                int64
	UserID            int64
	Currency          string
	PlayableBalance   int64 // minor units
	RedeemableBalance int64 // minor units, never moved by the ledger
}

// Wallets is the only component allowed to write playable_balance.
// LockAndGet and UpdatePlayableBalance must run inside an open *sql.Tx;
// the row lock is held until that transaction commits or aborts.
type Wallets interface {
	GetOrCreate(ctx context.Context, userID int64, currency string) (*Wallet, error)
	Get(ctx context.Context, walletID int64) (*Wallet, error)
	LockAndGet(tx *sql.Tx, walletID int64) (*Wallet, error)
	UpdatePlayableBalance(tx *sql.Tx, walletID int64, newBalance int64) error
}
