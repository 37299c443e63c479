package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nimdiido/casino-integration/internal/infra/metrics"
)

// NewServer creates and returns a configured *http.Server for the casino
// callback surface.
func NewServer(port uint16, cfg Config, ledgerSvc Ledger, launchSvc Launcher, m *metrics.Metrics) *http.Server {
	mux := NewRouter(cfg, ledgerSvc, launchSvc, m)

	addr := fmt.Sprintf(":%d", port)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
