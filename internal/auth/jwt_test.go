package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if claims.Issuer != "chatrelay" {
		t.Errorf("Issuer = %q, want chatrelay", claims.Issuer)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatal("ParseToken() accepted a token signed with a different secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "alice", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("ParseToken() accepted an expired token")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseToken("not.a.jwt", testSecret); err == nil {
		t.Fatal("ParseToken() accepted garbage")
	}
}

func TestJWTVerifier(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken(userID, "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	v := NewJWTVerifier(testSecret)

	identity, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.UserID != userID || identity.Username != "alice" {
		t.Errorf("Verify() = %+v, want %s/alice", identity, userID)
	}

	if _, err := v.Verify("bogus"); err == nil {
		t.Fatal("Verify() accepted a bogus token")
	}
}
