package main

import (
	"log/slog"
	"time"

	"github.com/nimdiido/casino-integration/internal/config"
)

type casinoConfig struct {
	Port     uint16 `env:"APP_PORT"`
	Postgres config.PostgresConfig

	// Shared secrets for the two signature directions.
	CasinoSecret   string `env:"CASINO_SECRET"`
	ProviderSecret string `env:"PROVIDER_SECRET"`

	// Optional HS256 secret for the front-end launch endpoint; empty
	// leaves the endpoint open (auth handled upstream).
	LaunchJWTSecret string `env:"LAUNCH_JWT_SECRET,optional"`

	ProviderLaunchTimeout time.Duration `env:"PROVIDER_LAUNCH_TIMEOUT,optional"`

	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT"`
}
