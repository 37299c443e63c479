package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nimdiido/casino-integration/internal/repos/games"
	"github.com/nimdiido/casino-integration/internal/repos/sessions"
	"github.com/nimdiido/casino-integration/internal/repos/users"
	"github.com/nimdiido/casino-integration/internal/services/ledger"
	"github.com/nimdiido/casino-integration/internal/services/launch"
)

// Ledger is the money-moving engine behind the provider callbacks.
type Ledger interface {
	Balance(ctx context.Context, sessionToken string) (*ledger.BalanceResponse, error)
	Debit(ctx context.Context, req ledger.DebitRequest) (ledger.Result, error)
	Credit(ctx context.Context, req ledger.CreditRequest) (ledger.Result, error)
	Rollback(ctx context.Context, req ledger.RollbackRequest) (ledger.Result, error)
}

// Launcher is the casino-initiated session registry.
type Launcher interface {
	Launch(ctx context.Context, userID, gameID int64, currency string) (*launch.Result, error)
	End(ctx context.Context, sessionToken string) error
}

// HandlerProvider wraps the ledger and launch services and exposes HTTP
// handlers.
type HandlerProvider struct {
	ledger Ledger
	launch Launcher
}

func NewHandler(ledgerSvc Ledger, launchSvc Launcher) *HandlerProvider {
	return &HandlerProvider{ledger: ledgerSvc, launch: launchSvc}
}

// decodeBody parses a JSON request body, rejecting unknown fields. The
// body is capped here as well, since the launch endpoint does not pass
// through the signature middleware.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "empty body")
			return false
		}

		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON")

		return false
	}

	return true
}

func (h *HandlerProvider) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, codeInvalidSession, "session missing or inactive")
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, "invalid amount")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, codeInsufficientFunds, "insufficient funds")
	case errors.Is(err, ledger.ErrCannotRollbackPayout):
		writeError(w, http.StatusBadRequest, codeCannotRollbackPayout, "cannot rollback a payout")
	default:
		writeInternalError(w, r, err)
	}
}

// --- Provider -> Casino callbacks ---

type balanceRequest struct {
	SessionToken string `json:"sessionToken"`
}

// GetBalanceHandler handles POST /casino/getBalance.
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "sessionToken required")
		return
	}

	resp, err := h.ledger.Balance(r.Context(), req.SessionToken)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type debitRequest struct {
	SessionToken  string `json:"sessionToken"`
	TransactionID string `json:"transactionId"`
	RoundID       string `json:"roundId"`
	Amount        *int64 `json:"amount"`
}

// DebitHandler handles POST /casino/debit.
func (h *HandlerProvider) DebitHandler(w http.ResponseWriter, r *http.Request) {
	var req debitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !requireCallbackFields(w, req.SessionToken, req.TransactionID, req.Amount) {
		return
	}

	result, err := h.ledger.Debit(r.Context(), ledger.DebitRequest{
		SessionToken:  req.SessionToken,
		TransactionID: req.TransactionID,
		RoundID:       req.RoundID,
		Amount:        *req.Amount,
	})
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	writeRaw(w, http.StatusOK, result.Body)
}

type creditRequest struct {
	SessionToken         string  `json:"sessionToken"`
	TransactionID        string  `json:"transactionId"`
	RoundID              string  `json:"roundId"`
	Amount               *int64  `json:"amount"`
	RelatedTransactionID *string `json:"relatedTransactionId"`
}

// CreditHandler handles POST /casino/credit.
func (h *HandlerProvider) CreditHandler(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !requireCallbackFields(w, req.SessionToken, req.TransactionID, req.Amount) {
		return
	}

	result, err := h.ledger.Credit(r.Context(), ledger.CreditRequest{
		SessionToken:         req.SessionToken,
		TransactionID:        req.TransactionID,
		RoundID:              req.RoundID,
		Amount:               *req.Amount,
		RelatedTransactionID: req.RelatedTransactionID,
	})
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	writeRaw(w, http.StatusOK, result.Body)
}

type rollbackRequest struct {
	SessionToken          string  `json:"sessionToken"`
	TransactionID         string  `json:"transactionId"`
	OriginalTransactionID string  `json:"originalTransactionId"`
	Reason                *string `json:"reason"`
}

// RollbackHandler handles POST /casino/rollback.
func (h *HandlerProvider) RollbackHandler(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.SessionToken == "" || req.TransactionID == "" || req.OriginalTransactionID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest,
			"sessionToken, transactionId and originalTransactionId required")
		return
	}

	result, err := h.ledger.Rollback(r.Context(), ledger.RollbackRequest{
		SessionToken:          req.SessionToken,
		TransactionID:         req.TransactionID,
		OriginalTransactionID: req.OriginalTransactionID,
		Reason:                req.Reason,
	})
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	writeRaw(w, http.StatusOK, result.Body)
}

type endSessionRequest struct {
	SessionToken string `json:"sessionToken"`
}

// EndSessionHandler handles POST /casino/endSession.
func (h *HandlerProvider) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "sessionToken required")
		return
	}

	err := h.launch.End(r.Context(), req.SessionToken)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			writeError(w, http.StatusUnauthorized, codeInvalidSession, "session missing or inactive")
			return
		}

		writeInternalError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func requireCallbackFields(w http.ResponseWriter, sessionToken, transactionID string, amount *int64) bool {
	if sessionToken == "" || transactionID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "sessionToken and transactionId required")
		return false
	}

	if amount == nil {
		writeError(w, http.StatusBadRequest, codeInvalidAmount, "amount required")
		return false
	}

	return true
}

// --- Casino-initiated ---

type launchGameRequest struct {
	UserID   int64  `json:"userId"`
	GameID   int64  `json:"gameId"`
	Currency string `json:"currency"`
}

type launchGameResponse struct {
	Success      bool   `json:"success"`
	SessionID    int64  `json:"sessionId"`
	SessionToken string `json:"sessionToken"`
	Balance      int64  `json:"balance"`
	Currency     string `json:"currency"`
}

// LaunchGameHandler handles POST /casino/launchGame.
func (h *HandlerProvider) LaunchGameHandler(w http.ResponseWriter, r *http.Request) {
	var req launchGameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.UserID <= 0 || req.GameID <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "userId and gameId required")
		return
	}

	result, err := h.launch.Launch(r.Context(), req.UserID, req.GameID, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			writeError(w, http.StatusNotFound, codeUserNotFound, "user not found")
		case errors.Is(err, games.ErrGameNotFound):
			writeError(w, http.StatusNotFound, codeGameNotFound, "game not found")
		case errors.Is(err, games.ErrProviderNotFound):
			writeError(w, http.StatusNotFound, codeProviderNotFound, "game provider not found")
		default:
			writeInternalError(w, r, err)
		}

		return
	}

	writeJSON(w, http.StatusOK, launchGameResponse{
		Success:      true,
		SessionID:    result.SessionID,
		SessionToken: result.SessionToken,
		Balance:      result.Balance,
		Currency:     result.Currency,
	})
}
