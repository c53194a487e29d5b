package auth_test

import (
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken(42, "bob@example.com", "admin")

	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.VerifyAccessToken(token)

	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID != 42 {
		t.Fatalf("got uid %d, want 42", claims.UserID)
	}

	if claims.Email != "bob@example.com" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if claims.JTI == "" {
		t.Fatal("expected a JTI")
	}

	ident := claims.Identity()

	if ident.ID != 42 || ident.Role != "admin" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken(1, "a@example.com", "user")

	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = m.VerifyAccessToken(token)

	if err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	m := auth.NewManager("secret-one", time.Hour)
	other := auth.NewManager("secret-two", time.Hour)

	token, err := m.GenerateAccessToken(1, "a@example.com", "user")

	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = other.VerifyAccessToken(token)

	if err == nil {
		t.Fatal("expected verification with the wrong secret to fail")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	_, err := m.VerifyAccessToken("not-a-jwt")

	if err == nil {
		t.Fatal("expected garbage token to fail verification")
	}
}
