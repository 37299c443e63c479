package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nimdiido/casino-integration/internal/repos/games"
)

var _ games.Games = (*gamesRepo)(nil)

type gamesRepo struct{ db *sql.DB }

func New(db *sql.DB) *gamesRepo {
	return &gamesRepo{db: db}
}

func (r *gamesRepo) GetGame(ctx context.Context, gameID int64) (*games.Game, error) {
	var g games.Game

	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider_id, external_game_id, name, active
		FROM casino_games
		WHERE id = $1
	`, gameID).Scan(&g.ID, &g.ProviderID, &g.ExternalGameID, &g.Name, &g.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get game: %w", err)
	}

	if !g.Active {
		return nil, games.ErrGameNotFound
	}

	return &g, nil
}

func (r *gamesRepo) GetProvider(ctx context.Context, providerID int64) (*games.Provider, error) {
	var p games.Provider

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, api_url, enabled
		FROM casino_game_providers
		WHERE id = $1
	`, providerID).Scan(&p.ID, &p.Name, &p.APIURL, &p.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrProviderNotFound
		}

		return nil, fmt.Errorf("get provider: %w", err)
	}

	if !p.Enabled {
		return nil, games.ErrProviderNotFound
	}

	return &p, nil
}
