package token

import (
	"testing"
	"time"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)
	tok, err := m.GenerateToken("u-1", "a@b.com", "USER")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.VerifyToken(tok)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "a@b.com" || claims.Role != "USER" || claims.Refresh {
		t.Errorf("unexpected claims %+v", claims)
	}

	refresh, err := m.GenerateRefreshToken("u-1", "a@b.com", "USER")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	rc, err := m.VerifyToken(refresh)
	if err != nil || !rc.Refresh {
		t.Fatalf("refresh claims = %+v, err = %v", rc, err)
	}
	if !rc.ExpiresAt.Time.After(time.Now().Add(24 * time.Hour)) {
		t.Errorf("refresh token should outlive the access token, expires %v", rc.ExpiresAt)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	tok, _ := NewJWTManager("one", 1, 1).GenerateToken("u", "e", "USER")
	if _, err := NewJWTManager("two", 1, 1).VerifyToken(tok); err == nil {
		t.Fatal("token signed with another secret should be rejected")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewJWTManager("s", 0, 0)
	tok, _ := m.GenerateToken("u", "e", "USER")
	if _, err := m.VerifyToken(tok); err == nil {
		t.Fatal("zero-lifetime token should be expired")
	}
}
