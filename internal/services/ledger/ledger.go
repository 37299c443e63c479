// Package ledger implements the casino-side transactional engine: the
// idempotent debit/credit ledger and the rollback policy over it.
//
// Every money-moving call follows the same contract: a duplicate
// external transaction id replays the response persisted on first
// success, and the unique index on that id is the correctness anchor for
// the pre-check race. Balance mutations run inside one database
// transaction holding the wallet's row lock.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nimdiido/casino-integration/internal/infra/metrics"
	"github.com/nimdiido/casino-integration/internal/infra/pgutils"
	"github.com/nimdiido/casino-integration/internal/repos/sessions"
	pgsessions "github.com/nimdiido/casino-integration/internal/repos/sessions/postgres"
	"github.com/nimdiido/casino-integration/internal/repos/transactions"
	pgtransactions "github.com/nimdiido/casino-integration/internal/repos/transactions/postgres"
	"github.com/nimdiido/casino-integration/internal/repos/wallets"
	pgwallets "github.com/nimdiido/casino-integration/internal/repos/wallets/postgres"
)

type Service struct {
	db       *sql.DB
	sessions sessions.Sessions
	wallets  wallets.Wallets
	txns     transactions.Transactions
	metrics  *metrics.Metrics
}

func New(db *sql.DB, m *metrics.Metrics) *Service {
	return &Service{
		db:       db,
		sessions: pgsessions.New(db),
		wallets:  pgwallets.New(db),
		txns:     pgtransactions.New(db),
		metrics:  m,
	}
}

// Balance resolves the session and reads its wallet without locking.
// It never mutates state and is not an idempotency target.
func (s *Service) Balance(ctx context.Context, sessionToken string) (*BalanceResponse, error) {
	sess, err := s.resolveSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	w, err := s.wallets.Get(ctx, sess.WalletID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	return &BalanceResponse{Success: true, Balance: w.PlayableBalance, Currency: w.Currency}, nil
}

// Debit withdraws a bet from the session's wallet:
//
// 1) Replay the cached response if the transaction id is already known.
// 2) Resolve the session, validate the amount.
// 3) Inside one DB transaction: lock the wallet row, verify funds,
//    decrement the balance, append the ledger entry.
//
// A concurrent duplicate that slips past the pre-check loses the insert
// race on the unique index and is answered from the winner's cache.
func (s *Service) Debit(ctx context.Context, req DebitRequest) (Result, error) {
	if cached, ok, err := s.replay(ctx, req.TransactionID); err != nil || ok {
		return cached, err
	}

	sess, err := s.resolveSession(ctx, req.SessionToken)
	if err != nil {
		return Result{}, err
	}

	if req.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}

	var body []byte

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		w, err := s.wallets.LockAndGet(tx, sess.WalletID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		if w.PlayableBalance < req.Amount {
			return ErrInsufficientFunds
		}

		newBalance := w.PlayableBalance - req.Amount

		err = s.wallets.UpdatePlayableBalance(tx, w.ID, newBalance)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		body, err = json.Marshal(TxResponse{
			Success:       true,
			TransactionID: req.TransactionID,
			Balance:       newBalance,
			Currency:      w.Currency,
		})
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}

		return s.txns.Insert(tx, &transactions.Entry{
			ExternalID:    req.TransactionID,
			Kind:          transactions.KindDebit,
			Amount:        req.Amount,
			WalletID:      w.ID,
			SessionID:     sess.ID,
			RoundID:       req.RoundID,
			BalanceAfter:  newBalance,
			ResponseCache: body,
		})
	})
	if err != nil {
		return s.resolveWriteErr(ctx, req.TransactionID, err)
	}

	s.metrics.LedgerEntryAppended(string(transactions.KindDebit))

	return Result{Body: body}, nil
}

// Credit deposits a payout into the session's wallet. Zero amounts are
// legal (a lost round's nominal payout) and still produce a ledger entry.
func (s *Service) Credit(ctx context.Context, req CreditRequest) (Result, error) {
	if cached, ok, err := s.replay(ctx, req.TransactionID); err != nil || ok {
		return cached, err
	}

	sess, err := s.resolveSession(ctx, req.SessionToken)
	if err != nil {
		return Result{}, err
	}

	if req.Amount < 0 {
		return Result{}, ErrInvalidAmount
	}

	var body []byte

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		w, err := s.wallets.LockAndGet(tx, sess.WalletID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		newBalance := w.PlayableBalance + req.Amount

		err = s.wallets.UpdatePlayableBalance(tx, w.ID, newBalance)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		body, err = json.Marshal(TxResponse{
			Success:       true,
			TransactionID: req.TransactionID,
			Balance:       newBalance,
			Currency:      w.Currency,
		})
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}

		return s.txns.Insert(tx, &transactions.Entry{
			ExternalID:        req.TransactionID,
			Kind:              transactions.KindCredit,
			Amount:            req.Amount,
			WalletID:          w.ID,
			SessionID:         sess.ID,
			RoundID:           req.RoundID,
			RelatedExternalID: req.RelatedTransactionID,
			BalanceAfter:      newBalance,
			ResponseCache:     body,
		})
	})
	if err != nil {
		return s.resolveWriteErr(ctx, req.TransactionID, err)
	}

	s.metrics.LedgerEntryAppended(string(transactions.KindCredit))

	return Result{Body: body}, nil
}

// --- shared plumbing ---

func (s *Service) resolveSession(ctx context.Context, token string) (*sessions.Session, error) {
	sess, err := s.sessions.GetActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}

		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return sess, nil
}

// replay returns the cached response if an entry with this external id
// exists, regardless of its kind.
func (s *Service) replay(ctx context.Context, externalID string) (Result, bool, error) {
	e, err := s.txns.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, transactions.ErrTransactionNotFound) {
			return Result{}, false, nil
		}

		return Result{}, false, fmt.Errorf("duplicate pre-check: %w", err)
	}

	s.metrics.DuplicateReplayed()

	return Result{Body: e.ResponseCache, Duplicate: true}, true, nil
}

// resolveWriteErr turns a lost insert race (unique violation inside the
// transaction) into a normal duplicate replay; everything else passes
// through.
func (s *Service) resolveWriteErr(ctx context.Context, externalID string, err error) (Result, error) {
	if !errors.Is(err, transactions.ErrDuplicateTransaction) {
		return Result{}, err
	}

	winner, rerr := s.txns.GetByExternalID(ctx, externalID)
	if rerr != nil {
		return Result{}, fmt.Errorf("re-read after duplicate insert: %w", rerr)
	}

	s.metrics.DuplicateReplayed()

	return Result{Body: winner.ResponseCache, Duplicate: true}, nil
}
