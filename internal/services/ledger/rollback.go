package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nimdiido/casino-integration/internal/infra/pgutils"
	"github.com/nimdiido/casino-integration/internal/repos/transactions"
)

// Rollback reverses a bet. The policy, evaluated in order:
//
//  1. A known rollback transaction id replays its cached response.
//  2. Unknown original: record a zero-amount tombstone, leave the
//     balance alone.
//  3. Original is itself a rollback: answer rolledBack=false, record
//     nothing.
//  4. Original already reversed: record a zero-amount marker, answer
//     alreadyRolledBack.
//  5. Original is a credit, or a debit some credit already pays out:
//     refuse (payouts are final).
//  6. Otherwise reverse the debit: restore the balance, flag the
//     original and append the rollback entry in one DB transaction.
func (s *Service) Rollback(ctx context.Context, req RollbackRequest) (Result, error) {
	if cached, ok, err := s.replay(ctx, req.TransactionID); err != nil || ok {
		return cached, err
	}

	sess, err := s.resolveSession(ctx, req.SessionToken)
	if err != nil {
		return Result{}, err
	}

	orig, err := s.txns.GetByExternalID(ctx, req.OriginalTransactionID)
	if err != nil {
		if errors.Is(err, transactions.ErrTransactionNotFound) {
			return s.recordTombstone(ctx, sess.WalletID, sess.ID, req)
		}

		return Result{}, fmt.Errorf("locate original: %w", err)
	}

	if orig.Kind == transactions.KindRollback {
		body, err := s.marshalRollback(ctx, orig.WalletID, req.TransactionID, RollbackResponse{
			RolledBack: false,
			Message:    "cannot rollback a rollback",
		})
		if err != nil {
			return Result{}, err
		}

		return Result{Body: body}, nil
	}

	reversed, err := s.txns.HasRollbackFor(ctx, orig.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if reversed {
		return s.recordAlreadyRolledBack(ctx, orig.WalletID, sess.ID, req)
	}

	if orig.Kind == transactions.KindCredit {
		return Result{}, ErrCannotRollbackPayout
	}

	res, err := s.reverseDebit(ctx, sess.ID, orig, req)
	if errors.Is(err, transactions.ErrAlreadyRolledBack) {
		// Lost the race against a concurrent reversal of the same
		// original; downgrade to the marker path.
		return s.recordAlreadyRolledBack(ctx, orig.WalletID, sess.ID, req)
	}

	return res, err
}

// reverseDebit is the nominal path: wallet update, original's is_rollback
// flag, and the new entry share one transaction and the wallet row lock.
func (s *Service) reverseDebit(ctx context.Context, sessionID int64, orig *transactions.Entry, req RollbackRequest) (Result, error) {
	var body []byte

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		w, err := s.wallets.LockAndGet(tx, orig.WalletID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		paid, err := s.txns.HasCreditFor(tx, orig.ExternalID)
		if err != nil {
			return err
		}
		if paid {
			return ErrCannotRollbackPayout
		}

		err = s.txns.MarkRolledBack(tx, orig.ExternalID)
		if err != nil {
			return err
		}

		newBalance := w.PlayableBalance + orig.Amount

		err = s.wallets.UpdatePlayableBalance(tx, w.ID, newBalance)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		body, err = json.Marshal(RollbackResponse{
			Success:       true,
			TransactionID: req.TransactionID,
			RolledBack:    true,
			Balance:       newBalance,
			Currency:      w.Currency,
			Message:       "rolled back",
		})
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}

		return s.txns.Insert(tx, &transactions.Entry{
			ExternalID:        req.TransactionID,
			Kind:              transactions.KindRollback,
			Amount:            orig.Amount,
			WalletID:          w.ID,
			SessionID:         sessionID,
			RoundID:           orig.RoundID,
			RelatedExternalID: &orig.ExternalID,
			BalanceAfter:      newBalance,
			ResponseCache:     body,
			IsRollback:        true,
			Reason:            req.Reason,
		})
	})
	if err != nil {
		if errors.Is(err, transactions.ErrAlreadyRolledBack) {
			return Result{}, transactions.ErrAlreadyRolledBack
		}

		return s.resolveWriteErr(ctx, req.TransactionID, err)
	}

	s.metrics.LedgerEntryAppended(string(transactions.KindRollback))

	return Result{Body: body}, nil
}

// recordTombstone audits a rollback for a bet this ledger has no record
// of. The balance is neither locked nor changed. The entry is stored under
// the rollback's own id and does not reference the unknown original, so a
// debit that later arrives under the original's id is not matched to it.
func (s *Service) recordTombstone(ctx context.Context, walletID, sessionID int64, req RollbackRequest) (Result, error) {
	w, err := s.wallets.Get(ctx, walletID)
	if err != nil {
		return Result{}, fmt.Errorf("get wallet: %w", err)
	}

	body, err := json.Marshal(RollbackResponse{
		Success:       true,
		TransactionID: req.TransactionID,
		RolledBack:    true,
		Balance:       w.PlayableBalance,
		Currency:      w.Currency,
		Message:       "tombstone",
		Tombstone:     true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal response: %w", err)
	}

	return s.appendZeroEntry(ctx, req, w.ID, sessionID, w.PlayableBalance, body)
}

// recordAlreadyRolledBack appends the idempotency marker for a repeated
// reversal under a fresh transaction id.
func (s *Service) recordAlreadyRolledBack(ctx context.Context, walletID, sessionID int64, req RollbackRequest) (Result, error) {
	w, err := s.wallets.Get(ctx, walletID)
	if err != nil {
		return Result{}, fmt.Errorf("get wallet: %w", err)
	}

	body, err := json.Marshal(RollbackResponse{
		Success:           true,
		TransactionID:     req.TransactionID,
		RolledBack:        true,
		Balance:           w.PlayableBalance,
		Currency:          w.Currency,
		Message:           "already rolled back",
		AlreadyRolledBack: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal response: %w", err)
	}

	return s.appendZeroEntry(ctx, req, w.ID, sessionID, w.PlayableBalance, body)
}

// appendZeroEntry inserts an amount-0 rollback entry (tombstone or
// already-rolled-back marker). RelatedExternalID stays null so the real
// reversal, if any, remains the original's only referencing entry.
func (s *Service) appendZeroEntry(ctx context.Context, req RollbackRequest, walletID, sessionID, balance int64, body []byte) (Result, error) {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.txns.Insert(tx, &transactions.Entry{
			ExternalID:    req.TransactionID,
			Kind:          transactions.KindRollback,
			Amount:        0,
			WalletID:      walletID,
			SessionID:     sessionID,
			BalanceAfter:  balance,
			ResponseCache: body,
			IsRollback:    true,
			Reason:        req.Reason,
		})
	})
	if err != nil {
		return s.resolveWriteErr(ctx, req.TransactionID, err)
	}

	s.metrics.LedgerEntryAppended(string(transactions.KindRollback))

	return Result{Body: body}, nil
}

// marshalRollback shapes a non-recorded rollback response (rollback of a
// rollback) with the wallet's current state.
func (s *Service) marshalRollback(ctx context.Context, walletID int64, transactionID string, resp RollbackResponse) ([]byte, error) {
	w, err := s.wallets.Get(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	resp.Success = true
	resp.TransactionID = transactionID
	resp.Balance = w.PlayableBalance
	resp.Currency = w.Currency

	return json.Marshal(resp)
}
