package launch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimdiido/casino-integration/internal/infra/pgtestutil"
	"github.com/nimdiido/casino-integration/internal/providerclient"
	"github.com/nimdiido/casino-integration/internal/repos/games"
	"github.com/nimdiido/casino-integration/internal/repos/sessions"
	"github.com/nimdiido/casino-integration/internal/repos/users"
	"github.com/nimdiido/casino-integration/internal/sign"
)

const casinoSecret = "test-casino-secret"

// seedCatalog inserts one user, one provider whose api_url is apiURL, and
// one game of that provider.
func seedCatalog(t *testing.T, db *sql.DB, apiURL string) (userID, gameID int64) {
	t.Helper()

	err := db.QueryRow(`
		INSERT INTO casino_users (username, email) VALUES ('player', 'player@example.com') RETURNING id
	`).Scan(&userID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var providerID int64
	err = db.QueryRow(`
		INSERT INTO casino_game_providers (name, api_url) VALUES ('prov', $1) RETURNING id
	`, apiURL).Scan(&providerID)
	if err != nil {
		t.Fatalf("seed provider: %v", err)
	}

	err = db.QueryRow(`
		INSERT INTO casino_games (provider_id, external_game_id, name) VALUES ($1, 'g1', 'Game One') RETURNING id
	`, providerID).Scan(&gameID)
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}

	return userID, gameID
}

// fakeProvider answers launchSession after verifying the casino
// signature over the exact received bytes.
func fakeProvider(t *testing.T, gotBody *[]byte) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/provider/launchSession" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)

			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}

		if gotBody != nil {
			*gotBody = body
		}

		if !sign.Verify(casinoSecret, body, r.Header.Get(providerclient.SignatureHeader)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"providerSessionId":"prov-sess-1"}`))
	}))
}

func TestLaunch(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	var gotBody []byte

	provider := fakeProvider(t, &gotBody)
	defer provider.Close()

	userID, gameID := seedCatalog(t, db, provider.URL)
	svc := New(db, providerclient.New(casinoSecret, 0))

	result, err := svc.Launch(context.Background(), userID, gameID, "USD")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	if len(result.SessionToken) != 64 {
		t.Fatalf("token length: want 64 hex chars, got %d", len(result.SessionToken))
	}
	if result.Balance != 0 || result.Currency != "USD" {
		t.Fatalf("fresh wallet state wrong: %+v", result)
	}

	// The outbound notification carried the session token and the
	// provider's external game id.
	var notified providerclient.LaunchSessionRequest
	if err := json.Unmarshal(gotBody, &notified); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if notified.SessionToken != result.SessionToken || notified.GameID != "g1" {
		t.Fatalf("notification mismatch: %+v", notified)
	}

	// The provider session id was attached.
	var psid sql.NullString
	err = db.QueryRow(`
		SELECT provider_session_id FROM casino_game_sessions WHERE token = $1
	`, result.SessionToken).Scan(&psid)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if !psid.Valid || psid.String != "prov-sess-1" {
		t.Fatalf("provider session id not attached: %v", psid)
	}
}

func TestLaunch_SecondLaunchReusesWallet(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	provider := fakeProvider(t, nil)
	defer provider.Close()

	userID, gameID := seedCatalog(t, db, provider.URL)
	svc := New(db, providerclient.New(casinoSecret, 0))
	ctx := context.Background()

	first, err := svc.Launch(ctx, userID, gameID, "USD")
	if err != nil {
		t.Fatalf("first launch: %v", err)
	}

	second, err := svc.Launch(ctx, userID, gameID, "USD")
	if err != nil {
		t.Fatalf("second launch: %v", err)
	}

	if first.SessionToken == second.SessionToken {
		t.Fatalf("two launches shared a token")
	}

	var walletCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM casino_wallets WHERE user_id = $1`, userID).Scan(&walletCount)
	if err != nil {
		t.Fatalf("count wallets: %v", err)
	}
	if walletCount != 1 {
		t.Fatalf("wallets: want 1, got %d", walletCount)
	}
}

func TestLaunch_ProviderDownSessionStaysValid(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	// Point the provider at a closed port.
	userID, gameID := seedCatalog(t, db, "http://127.0.0.1:1")
	svc := New(db, providerclient.New(casinoSecret, 0))

	result, err := svc.Launch(context.Background(), userID, gameID, "")
	if err != nil {
		t.Fatalf("launch with provider down: %v", err)
	}

	if result.Currency != "USD" {
		t.Fatalf("default currency not applied: %q", result.Currency)
	}

	var (
		active bool
		psid   sql.NullString
	)
	err = db.QueryRow(`
		SELECT active, provider_session_id FROM casino_game_sessions WHERE token = $1
	`, result.SessionToken).Scan(&active, &psid)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if !active {
		t.Fatalf("session not active after provider failure")
	}
	if psid.Valid {
		t.Fatalf("provider session id attached despite failure")
	}
}

func TestLaunch_LookupFailures(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	provider := fakeProvider(t, nil)
	defer provider.Close()

	userID, gameID := seedCatalog(t, db, provider.URL)

	_, err := db.Exec(`INSERT INTO casino_games (provider_id, external_game_id, name, active)
		SELECT provider_id, 'g-off', 'Retired Game', FALSE FROM casino_games WHERE id = $1`, gameID)
	if err != nil {
		t.Fatalf("seed inactive game: %v", err)
	}

	var inactiveGameID int64
	err = db.QueryRow(`SELECT id FROM casino_games WHERE external_game_id = 'g-off'`).Scan(&inactiveGameID)
	if err != nil {
		t.Fatalf("read inactive game: %v", err)
	}

	svc := New(db, providerclient.New(casinoSecret, 0))
	ctx := context.Background()

	_, err = svc.Launch(ctx, 9999, gameID, "USD")
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("unknown user: want ErrUserNotFound, got %v", err)
	}

	_, err = svc.Launch(ctx, userID, 9999, "USD")
	if !errors.Is(err, games.ErrGameNotFound) {
		t.Fatalf("unknown game: want ErrGameNotFound, got %v", err)
	}

	_, err = svc.Launch(ctx, userID, inactiveGameID, "USD")
	if !errors.Is(err, games.ErrGameNotFound) {
		t.Fatalf("inactive game: want ErrGameNotFound, got %v", err)
	}
}

func TestEnd(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	provider := fakeProvider(t, nil)
	defer provider.Close()

	userID, gameID := seedCatalog(t, db, provider.URL)
	svc := New(db, providerclient.New(casinoSecret, 0))
	ctx := context.Background()

	result, err := svc.Launch(ctx, userID, gameID, "USD")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	err = svc.End(ctx, result.SessionToken)
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	err = svc.End(ctx, result.SessionToken)
	if !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("double end: want ErrSessionNotFound, got %v", err)
	}
}
