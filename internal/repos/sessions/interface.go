package sessions

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session binds a player to one wallet and one game for the duration of a
// launch. Token is 256 bits of CSPRNG entropy, hex-encoded, and opaque to
// the provider.
type Session struct {
	ID                int64
	Token             string
	UserID            int64
	WalletID          int64
	GameID            int64
	ProviderSessionID *string
	Active            bool
	CreatedAt         time.Time
	EndedAt           *time.Time
}

type Sessions interface {
	// Insert persists a new active session and fills ID and CreatedAt.
	Insert(ctx context.Context, s *Session) error
	// GetActiveByToken resolves a token; inactive or unknown sessions
	// report ErrSessionNotFound.
	GetActiveByToken(ctx context.Context, token string) (*Session, error)
	AttachProviderSession(ctx context.Context, sessionID int64, providerSessionID string) error
	End(ctx context.Context, token string) error
}
