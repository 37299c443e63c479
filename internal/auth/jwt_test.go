package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()

	tok := jwt.NewWithClaims(method, claims)

	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return signed
}

func TestVerifier(t *testing.T) {
	t.Parallel()

	const secret = "jwt-secret"

	v := NewVerifier(secret)
	if !v.Enabled() {
		t.Fatalf("verifier with secret not enabled")
	}

	valid := jwt.MapClaims{"sub": "frontend", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name    string
		token   string
		wantSub string
		wantErr bool
	}{
		{"valid", signToken(t, secret, valid, jwt.SigningMethodHS256), "frontend", false},
		{"wrong secret", signToken(t, "other", valid, jwt.SigningMethodHS256), "", true},
		{"expired", signToken(t, secret, jwt.MapClaims{
			"sub": "frontend", "exp": time.Now().Add(-time.Hour).Unix(),
		}, jwt.SigningMethodHS256), "", true},
		{"missing sub", signToken(t, secret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}, jwt.SigningMethodHS256), "", true},
		{"wrong method", signToken(t, secret, valid, jwt.SigningMethodHS512), "", true},
		{"garbage", "not.a.token", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := v.Verify(tt.token)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("want ErrInvalidToken, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sub != tt.wantSub {
				t.Fatalf("sub: want %q, got %q", tt.wantSub, sub)
			}
		})
	}
}

func TestVerifier_DisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	if NewVerifier("").Enabled() {
		t.Fatalf("verifier without secret reports enabled")
	}
}
