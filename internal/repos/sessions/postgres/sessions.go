package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nimdiido/casino-integration/internal/repos/sessions"
)

var _ sessions.Sessions = (*sessionsRepo)(nil)

type sessionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *sessionsRepo {
	return &sessionsRepo{db: db}
}

func (r *sessionsRepo) Insert(ctx context.Context, s *sessions.Session) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO casino_game_sessions (token, user_id, wallet_id, game_id, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at
	`, s.Token, s.UserID, s.WalletID, s.GameID).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	s.Active = true

	return nil
}

func (r *sessionsRepo) GetActiveByToken(ctx context.Context, token string) (*sessions.Session, error) {
	var (
		s    sessions.Session
		psid sql.NullString
		end  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, token, user_id, wallet_id, game_id, provider_session_id, active, created_at, ended_at
		FROM casino_game_sessions
		WHERE token = $1 AND active = TRUE
	`, token).Scan(&s.ID, &s.Token, &s.UserID, &s.WalletID, &s.GameID, &psid, &s.Active, &s.CreatedAt, &end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessions.ErrSessionNotFound
		}

		return nil, fmt.Errorf("get session by token: %w", err)
	}

	if psid.Valid {
		s.ProviderSessionID = &psid.String
	}
	if end.Valid {
		s.EndedAt = &end.Time
	}

	return &s, nil
}

func (r *sessionsRepo) AttachProviderSession(ctx context.Context, sessionID int64, providerSessionID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE casino_game_sessions
		SET provider_session_id = $2
		WHERE id = $1
	`, sessionID, providerSessionID)
	if err != nil {
		return fmt.Errorf("attach provider session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return sessions.ErrSessionNotFound
	}

	return nil
}

func (r *sessionsRepo) End(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE casino_game_sessions
		SET active = FALSE, ended_at = NOW()
		WHERE token = $1 AND active = TRUE
	`, token)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return sessions.ErrSessionNotFound
	}

	return nil
}
