package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/nimdiido/casino-integration/internal/sign"
)

// ProviderSignatureHeader carries the HMAC of the exact inbound body
// bytes, computed by the provider under the shared provider secret.
const ProviderSignatureHeader = "x-provider-signature"

const maxBodyBytes = 1 << 20 // 1MB cap

// providerSignature gates every provider callback. Verification runs
// over the exact bytes received; the body is then restored for the
// handler. An unset secret is a deployment fault, not a client error.
func providerSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusInternalServerError, codeInternalError, "signature secret not configured")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, "unreadable request body")
				return
			}

			if !sign.Verify(secret, body, r.Header.Get(ProviderSignatureHeader)) {
				writeError(w, http.StatusUnauthorized, codeSignatureInvalid, "invalid request signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			next.ServeHTTP(w, r)
		})
	}
}
