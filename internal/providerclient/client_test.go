package providerclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nimdiido/casino-integration/internal/sign"
)

func TestLaunchSession(t *testing.T) {
	t.Parallel()

	const secret = "casino-secret"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/provider/launchSession" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		body, _ := io.ReadAll(r.Body)
		if !sign.Verify(secret, body, r.Header.Get(SignatureHeader)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"providerSessionId":"ps-1"}`))
	}))
	defer srv.Close()

	c := New(secret, 2*time.Second)

	psid, err := c.LaunchSession(context.Background(), srv.URL, LaunchSessionRequest{
		CasinoSessionID: 1,
		SessionToken:    "tok",
		UserID:          1,
		GameID:          "g1",
		Currency:        "USD",
	})
	if err != nil {
		t.Fatalf("launch session: %v", err)
	}
	if psid != "ps-1" {
		t.Fatalf("provider session id: want ps-1, got %q", psid)
	}
}

func TestLaunchSession_Rejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error":"unknown game"}`))
	}))
	defer srv.Close()

	c := New("secret", time.Second)

	_, err := c.LaunchSession(context.Background(), srv.URL, LaunchSessionRequest{})
	if err == nil {
		t.Fatalf("rejection did not error")
	}
}

func TestLaunchSession_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("secret", time.Second)

	_, err := c.LaunchSession(context.Background(), srv.URL, LaunchSessionRequest{})
	if err == nil {
		t.Fatalf("bad gateway did not error")
	}
}

func TestLaunchSession_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	c := New("secret", 50*time.Millisecond)

	_, err := c.LaunchSession(context.Background(), srv.URL, LaunchSessionRequest{})
	if err == nil {
		t.Fatalf("timeout did not error")
	}
}
