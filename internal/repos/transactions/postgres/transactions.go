package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimdiido/casino-integration/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

func (r *transactionsRepo) Insert(tx *sql.Tx, e *transactions.Entry) error {
	err := tx.QueryRow(`
		INSERT INTO casino_transactions (
			external_transaction_id, kind, amount, wallet_id, session_id,
			round_id, related_external_transaction_id, balance_after,
			response_cache, is_rollback, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`,
		e.ExternalID, string(e.Kind), e.Amount, e.WalletID, e.SessionID,
		e.RoundID, e.RelatedExternalID, e.BalanceAfter,
		e.ResponseCache, e.IsRollback, e.Reason,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return transactions.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

func (r *transactionsRepo) GetByExternalID(ctx context.Context, externalID string) (*transactions.Entry, error) {
	var (
		e       transactions.Entry
		kind    string
		related sql.NullString
		reason  sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, external_transaction_id, kind, amount, wallet_id, session_id,
		       round_id, related_external_transaction_id, balance_after,
		       response_cache, is_rollback, reason, created_at
		FROM casino_transactions
		WHERE external_transaction_id = $1
	`, externalID).Scan(
		&e.ID, &e.ExternalID, &kind, &e.Amount, &e.WalletID, &e.SessionID,
		&e.RoundID, &related, &e.BalanceAfter,
		&e.ResponseCache, &e.IsRollback, &reason, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transactions.ErrTransactionNotFound
		}

		return nil, fmt.Errorf("get transaction: %w", err)
	}

	e.Kind = transactions.Kind(kind)
	if related.Valid {
		e.RelatedExternalID = &related.String
	}
	if reason.Valid {
		e.Reason = &reason.String
	}

	return &e, nil
}

func (r *transactionsRepo) MarkRolledBack(tx *sql.Tx, externalID string) error {
	res, err := tx.Exec(`
		UPDATE casino_transactions
		SET is_rollback = TRUE
		WHERE external_transaction_id = $1
		  AND is_rollback = FALSE
	`, externalID)
	if err != nil {
		return fmt.Errorf("mark rolled back: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return transactions.ErrAlreadyRolledBack
	}

	return nil
}

func (r *transactionsRepo) HasCreditFor(tx *sql.Tx, originalExternalID string) (bool, error) {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM casino_transactions
			WHERE kind = 'credit'
			  AND related_external_transaction_id = $1
		)
	`, originalExternalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check credit for original: %w", err)
	}

	return exists, nil
}

func (r *transactionsRepo) HasRollbackFor(ctx context.Context, originalExternalID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM casino_transactions
			WHERE kind = 'rollback'
			  AND related_external_transaction_id = $1
		)
	`, originalExternalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check rollback for original: %w", err)
	}

	return exists, nil
}
