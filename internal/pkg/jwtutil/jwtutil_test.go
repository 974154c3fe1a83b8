package jwtutil

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, 42, "alice", false)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.IsAdmin {
		t.Fatal("regular user token carries admin flag")
	}
}

func TestTokenAdminFlag(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, 1, "root", true)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if !claims.IsAdmin {
		t.Fatal("admin flag lost in round trip")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, 1, "alice", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, 1, "alice", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := ParseToken("secret", "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}
