package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes surfaced to callers. Policy errors are returned verbatim so
// the provider can make retry decisions.
const (
	codeSignatureInvalid     = "SIGNATURE_INVALID"
	codeInvalidSession       = "INVALID_SESSION"
	codeInvalidAmount        = "INVALID_AMOUNT"
	codeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	codeCannotRollbackPayout = "CANNOT_ROLLBACK_PAYOUT"
	codeUserNotFound         = "USER_NOT_FOUND"
	codeGameNotFound         = "GAME_NOT_FOUND"
	codeProviderNotFound     = "PROVIDER_NOT_FOUND"
	codeInvalidRequest       = "INVALID_REQUEST"
	codeUnauthorized         = "UNAUTHORIZED"
	codeInternalError        = "INTERNAL_ERROR"
)

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeRaw replays pre-serialized body bytes, keeping duplicate responses
// byte-identical to the first success.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err := w.Write(body)
	if err != nil {
		slog.Error("failed to write response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := RequestID(r.Context())
	slog.Error("unhandled error", "request_id", reqID, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:     "internal error",
		Code:      codeInternalError,
		RequestID: reqID,
	})
}
