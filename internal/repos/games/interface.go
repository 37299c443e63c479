package games

import (
	"context"
	"errors"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrProviderNotFound = errors.New("game provider not found")
)

type Game struct {
	ID             int64
	ProviderID     int64
	ExternalGameID string
	Name           string
	Active         bool
}

type Provider struct {
	ID      int64
	Name    string
	APIURL  string
	Enabled bool
}

type Games interface {
	// GetGame returns the game; inactive games report ErrGameNotFound.
	GetGame(ctx context.Context, gameID int64) (*Game, error)
	// GetProvider returns the provider; disabled providers report ErrProviderNotFound.
	GetProvider(ctx context.Context, providerID int64) (*Provider, error)
}
