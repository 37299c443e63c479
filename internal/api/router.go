package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimdiido/casino-integration/internal/auth"
	"github.com/nimdiido/casino-integration/internal/infra/metrics"
)

// Config carries the request-time secrets for the callback surface.
type Config struct {
	// ProviderSecret verifies x-provider-signature on every callback.
	ProviderSecret string
	// LaunchJWTSecret, when set, gates /casino/launchGame with HS256
	// bearer tokens. Empty means the front-end handles auth upstream.
	LaunchJWTSecret string
}

// NewRouter registers the callback surface, the launch endpoint and the
// operational endpoints.
func NewRouter(cfg Config, ledgerSvc Ledger, launchSvc Launcher, m *metrics.Metrics) http.Handler {
	h := NewHandler(ledgerSvc, launchSvc)
	verifier := auth.NewVerifier(cfg.LaunchJWTSecret)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(observeMiddleware(m))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider -> Casino, all signature-gated.
	r.Group(func(r chi.Router) {
		r.Use(providerSignature(cfg.ProviderSecret))

		r.Post("/casino/getBalance", h.GetBalanceHandler)
		r.Post("/casino/debit", h.DebitHandler)
		r.Post("/casino/credit", h.CreditHandler)
		r.Post("/casino/rollback", h.RollbackHandler)
		r.Post("/casino/endSession", h.EndSessionHandler)
	})

	// Casino-initiated, front-end facing.
	r.Group(func(r chi.Router) {
		r.Use(launchAuth(verifier))

		r.Post("/casino/launchGame", h.LaunchGameHandler)
	})

	return r
}

// launchAuth enforces the optional JWT gate on the launch endpoint.
func launchAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
				return
			}

			_, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
