// Package providerclient is the outbound half of the integration: calls
// from the casino to the game provider, signed with the casino secret.
package providerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nimdiido/casino-integration/internal/sign"
)

// SignatureHeader carries the HMAC of the exact outbound body bytes.
const SignatureHeader = "x-casino-signature"

type Client struct {
	httpClient *http.Client
	secret     string
}

func New(casinoSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		secret:     casinoSecret,
	}
}

type LaunchSessionRequest struct {
	CasinoSessionID int64  `json:"casinoSessionId"`
	SessionToken    string `json:"sessionToken"`
	UserID          int64  `json:"userId"`
	GameID          string `json:"gameId"`
	Currency        string `json:"currency"`
}

type launchSessionResponse struct {
	Success           bool   `json:"success"`
	ProviderSessionID string `json:"providerSessionId"`
	Error             string `json:"error"`
}

// LaunchSession notifies the provider that a casino session was created
// and returns the provider's own session id.
func (c *Client) LaunchSession(ctx context.Context, apiURL string, req LaunchSessionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal launch request: %w", err)
	}

	url := strings.TrimRight(apiURL, "/") + "/provider/launchSession"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build launch request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(SignatureHeader, sign.Sign(c.secret, body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider launch: unexpected status %d", resp.StatusCode)
	}

	var parsed launchSessionResponse

	err = json.NewDecoder(resp.Body).Decode(&parsed)
	if err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}

	if !parsed.Success {
		return "", fmt.Errorf("provider launch rejected: %s", parsed.Error)
	}

	return parsed.ProviderSessionID, nil
}
