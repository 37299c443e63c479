package transactions

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/nimdiido/casino-integration/internal/infra/pgtestutil"
	"github.com/nimdiido/casino-integration/internal/repos/transactions"
)

// seedWalletAndSession inserts the user/provider/game/wallet/session rows
// every ledger entry references. Returns (walletID, sessionID).
func seedWalletAndSession(t *testing.T, db *sql.DB, balance int64) (int64, int64) {
	t.Helper()

	var userID int64
	err := db.QueryRow(`
		INSERT INTO casino_users (username, email) VALUES ('tester', 'tester@example.com') RETURNING id
	`).Scan(&userID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var providerID int64
	err = db.QueryRow(`
		INSERT INTO casino_game_providers (name, api_url) VALUES ('prov', 'http://localhost:9090') RETURNING id
	`).Scan(&providerID)
	if err != nil {
		t.Fatalf("seed provider: %v", err)
	}

	var gameID int64
	err = db.QueryRow(`
		INSERT INTO casino_games (provider_id, external_game_id, name) VALUES ($1, 'g1', 'Game One') RETURNING id
	`, providerID).Scan(&gameID)
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}

	var walletID int64
	err = db.QueryRow(`
		INSERT INTO casino_wallets (user_id, currency, playable_balance) VALUES ($1, 'USD', $2) RETURNING id
	`, userID, balance).Scan(&walletID)
	if err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	var sessionID int64
	err = db.QueryRow(`
		INSERT INTO casino_game_sessions (token, user_id, wallet_id, game_id)
		VALUES ('tok_' || $1::text, $1, $2, $3) RETURNING id
	`, userID, walletID, gameID).Scan(&sessionID)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	return walletID, sessionID
}

func insertEntry(t *testing.T, db *sql.DB, repo *transactionsRepo, e *transactions.Entry) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}

	err = repo.Insert(tx, e)
	if err != nil {
		_ = tx.Rollback()
		t.Fatalf("insert entry %s: %v", e.ExternalID, err)
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestTransactions_Insert(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	walletID, sessionID := seedWalletAndSession(t, db, 10000)

	e := &transactions.Entry{
		ExternalID:    "t1",
		Kind:          transactions.KindDebit,
		Amount:        1000,
		WalletID:      walletID,
		SessionID:     sessionID,
		RoundID:       "r1",
		BalanceAfter:  9000,
		ResponseCache: []byte(`{"success":true,"transactionId":"t1","balance":9000,"currency":"USD"}`),
	}
	insertEntry(t, db, repo, e)

	if e.ID == 0 {
		t.Fatalf("insert did not fill ID")
	}
	if e.CreatedAt.IsZero() {
		t.Fatalf("insert did not fill CreatedAt")
	}

	got, err := repo.GetByExternalID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("get by external id: %v", err)
	}
	if got.Kind != transactions.KindDebit || got.Amount != 1000 || got.BalanceAfter != 9000 {
		t.Fatalf("entry mismatch: %+v", got)
	}
	if string(got.ResponseCache) != string(e.ResponseCache) {
		t.Fatalf("response cache mismatch: %s", got.ResponseCache)
	}
}

func TestTransactions_Insert_Duplicate(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	walletID, sessionID := seedWalletAndSession(t, db, 10000)

	e := &transactions.Entry{
		ExternalID:    "tx_dup",
		Kind:          transactions.KindDebit,
		Amount:        500,
		WalletID:      walletID,
		SessionID:     sessionID,
		BalanceAfter:  9500,
		ResponseCache: []byte(`{}`),
	}
	insertEntry(t, db, repo, e)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	dup := *e
	dup.ID = 0

	err = repo.Insert(tx, &dup)
	if !errors.Is(err, transactions.ErrDuplicateTransaction) {
		t.Fatalf("want ErrDuplicateTransaction, got %v", err)
	}
}

func TestTransactions_GetByExternalID_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	_, err := repo.GetByExternalID(context.Background(), "ghost")
	if !errors.Is(err, transactions.ErrTransactionNotFound) {
		t.Fatalf("want ErrTransactionNotFound, got %v", err)
	}
}

func TestTransactions_MarkRolledBack(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	walletID, sessionID := seedWalletAndSession(t, db, 10000)

	insertEntry(t, db, repo, &transactions.Entry{
		ExternalID:    "bet1",
		Kind:          transactions.KindDebit,
		Amount:        1000,
		WalletID:      walletID,
		SessionID:     sessionID,
		BalanceAfter:  9000,
		ResponseCache: []byte(`{}`),
	})

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}

	err = repo.MarkRolledBack(tx, "bet1")
	if err != nil {
		t.Fatalf("mark rolled back: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.GetByExternalID(context.Background(), "bet1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsRollback {
		t.Fatalf("is_rollback not set")
	}

	// Second mark must report the race loser.
	tx2, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx2: %v", err)
	}
	defer tx2.Rollback()

	err = repo.MarkRolledBack(tx2, "bet1")
	if !errors.Is(err, transactions.ErrAlreadyRolledBack) {
		t.Fatalf("want ErrAlreadyRolledBack, got %v", err)
	}
}

func TestTransactions_HasCreditFor_And_HasRollbackFor(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	walletID, sessionID := seedWalletAndSession(t, db, 10000)

	insertEntry(t, db, repo, &transactions.Entry{
		ExternalID: "bet1", Kind: transactions.KindDebit, Amount: 1000,
		WalletID: walletID, SessionID: sessionID, BalanceAfter: 9000, ResponseCache: []byte(`{}`),
	})

	related := "bet1"
	insertEntry(t, db, repo, &transactions.Entry{
		ExternalID: "pay1", Kind: transactions.KindCredit, Amount: 2500,
		WalletID: walletID, SessionID: sessionID, RelatedExternalID: &related,
		BalanceAfter: 11500, ResponseCache: []byte(`{}`),
	})

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	paid, err := repo.HasCreditFor(tx, "bet1")
	if err != nil {
		t.Fatalf("has credit for: %v", err)
	}
	if !paid {
		t.Fatalf("credit for bet1 not found")
	}

	paid, err = repo.HasCreditFor(tx, "bet2")
	if err != nil {
		t.Fatalf("has credit for: %v", err)
	}
	if paid {
		t.Fatalf("unexpected credit for bet2")
	}

	reversed, err := repo.HasRollbackFor(context.Background(), "bet1")
	if err != nil {
		t.Fatalf("has rollback for: %v", err)
	}
	if reversed {
		t.Fatalf("unexpected rollback for bet1")
	}

	insertEntry(t, db, repo, &transactions.Entry{
		ExternalID: "rb1", Kind: transactions.KindRollback, Amount: 1000,
		WalletID: walletID, SessionID: sessionID, RelatedExternalID: &related,
		BalanceAfter: 10000, ResponseCache: []byte(`{}`), IsRollback: true,
	})

	reversed, err = repo.HasRollbackFor(context.Background(), "bet1")
	if err != nil {
		t.Fatalf("has rollback for: %v", err)
	}
	if !reversed {
		t.Fatalf("rollback for bet1 not found")
	}
}
