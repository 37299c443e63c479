package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nimdiido/casino-integration/internal/repos/wallets"
)

var _ wallets.Wallets = (*walletsRepo)(nil)

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

// GetOrCreate inserts a zero-balance wallet for (user, currency) if none
// exists yet, then reads it back. The unique index on (user_id, currency)
// makes concurrent first launches converge on one row.
func (r *walletsRepo) GetOrCreate(ctx context.Context, userID int64, currency string) (*wallets.Wallet, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO casino_wallets (user_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (user_id, currency) DO NOTHING
	`, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	var w wallets.Wallet

	err = r.db.QueryRowContext(ctx, `
		SELECT id, user_id, currency, playable_balance, redeemable_balance
		FROM casino_wallets
		WHERE user_id = $1 AND currency = $2
	`, userID, currency).Scan(&w.ID, &w.UserID, &w.Currency, &w.PlayableBalance, &w.RedeemableBalance)
	if err != nil {
		return nil, fmt.Errorf("read wallet after create: %w", err)
	}

	return &w, nil
}

func (r *walletsRepo) Get(ctx context.Context, walletID int64) (*wallets.Wallet, error) {
	var w wallets.Wallet

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, currency, playable_balance, redeemable_balance
		FROM casino_wallets
		WHERE id = $1
	`, walletID).Scan(&w.ID, &w.UserID, &w.Currency, &w.PlayableBalance, &w.RedeemableBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallets.ErrWalletNotFound
		}

		return nil, fmt.Errorf("get wallet: %w", err)
	}

	return &w, nil
}

func (r *walletsRepo) LockAndGet(tx *sql.Tx, walletID int64) (*wallets.Wallet, error) {
	var w wallets.Wallet

	err := tx.QueryRow(`
		SELECT id, user_id, currency, playable_balance, redeemable_balance
		FROM casino_wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID).Scan(&w.ID, &w.UserID, &w.Currency, &w.PlayableBalance, &w.RedeemableBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallets.ErrWalletNotFound
		}

		return nil, fmt.Errorf("lock/get wallet: %w", err)
	}

	return &w, nil
}

func (r *walletsRepo) UpdatePlayableBalance(tx *sql.Tx, walletID int64, newBalance int64) error {
	res, err := tx.Exec(`
		UPDATE casino_wallets
		SET playable_balance = $2
		WHERE id = $1
	`, walletID, newBalance)
	if err != nil {
		return fmt.Errorf("update playable balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return wallets.ErrWalletNotFound
	}

	return nil
}
