package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nimdiido/casino-integration/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{ db *sql.DB }

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

func (r *usersRepo) GetByID(ctx context.Context, userID int64) (*users.User, error) {
	var u users.User

	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, created_at
		FROM casino_users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}
