// Package launch implements the session registry: the casino-initiated
// flow that mints session tokens consumed by the provider callbacks.
package launch

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/nimdiido/casino-integration/internal/providerclient"
	"github.com/nimdiido/casino-integration/internal/repos/games"
	pggames "github.com/nimdiido/casino-integration/internal/repos/games/postgres"
	"github.com/nimdiido/casino-integration/internal/repos/sessions"
	pgsessions "github.com/nimdiido/casino-integration/internal/repos/sessions/postgres"
	"github.com/nimdiido/casino-integration/internal/repos/users"
	pgusers "github.com/nimdiido/casino-integration/internal/repos/users/postgres"
	"github.com/nimdiido/casino-integration/internal/repos/wallets"
	pgwallets "github.com/nimdiido/casino-integration/internal/repos/wallets/postgres"
)

const defaultCurrency = "USD"

// ProviderNotifier is the outbound launch call; failures are non-fatal
// for the session being launched.
type ProviderNotifier interface {
	LaunchSession(ctx context.Context, apiURL string, req providerclient.LaunchSessionRequest) (string, error)
}

type Service struct {
	users    users.Users
	games    games.Games
	wallets  wallets.Wallets
	sessions sessions.Sessions
	provider ProviderNotifier
}

func New(db *sql.DB, provider ProviderNotifier) *Service {
	return &Service{
		users:    pgusers.New(db),
		games:    pggames.New(db),
		wallets:  pgwallets.New(db),
		sessions: pgsessions.New(db),
		provider: provider,
	}
}

type Result struct {
	SessionID    int64
	SessionToken string
	Balance      int64
	Currency     string
}

// Launch resolves the user, game and provider, get-or-creates the wallet
// for (user, currency), mints a fresh session and notifies the provider.
// The session stays valid when the provider call fails; the provider
// session id is simply never attached.
func (s *Service) Launch(ctx context.Context, userID, gameID int64, currency string) (*Result, error) {
	if currency == "" {
		currency = defaultCurrency
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("resolve game: %w", err)
	}

	prov, err := s.games.GetProvider(ctx, game.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	wallet, err := s.wallets.GetOrCreate(ctx, user.ID, currency)
	if err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	sess := &sessions.Session{
		Token:    token,
		UserID:   user.ID,
		WalletID: wallet.ID,
		GameID:   game.ID,
	}

	err = s.sessions.Insert(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.notifyProvider(ctx, prov, game, sess, wallet.Currency)

	return &Result{
		SessionID:    sess.ID,
		SessionToken: sess.Token,
		Balance:      wallet.PlayableBalance,
		Currency:     wallet.Currency,
	}, nil
}

func (s *Service) notifyProvider(ctx context.Context, prov *games.Provider, game *games.Game, sess *sessions.Session, currency string) {
	providerSessionID, err := s.provider.LaunchSession(ctx, prov.APIURL, providerclient.LaunchSessionRequest{
		CasinoSessionID: sess.ID,
		SessionToken:    sess.Token,
		UserID:          sess.UserID,
		GameID:          game.ExternalGameID,
		Currency:        currency,
	})
	if err != nil {
		slog.Warn("provider launch call failed, session stays valid",
			"session_id", sess.ID, "provider", prov.Name, "error", err)

		return
	}

	err = s.sessions.AttachProviderSession(ctx, sess.ID, providerSessionID)
	if err != nil {
		slog.Warn("attach provider session failed",
			"session_id", sess.ID, "error", err)
	}
}

// End closes a session so no further callbacks can use its token.
func (s *Service) End(ctx context.Context, token string) error {
	err := s.sessions.End(ctx, token)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	return nil
}

// newToken returns 256 bits of CSPRNG entropy, hex-encoded (64 chars).
func newToken() (string, error) {
	var b [32]byte

	_, err := rand.Read(b[:])
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b[:]), nil
}
