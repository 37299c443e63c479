package users

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
}

type Users interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
}
