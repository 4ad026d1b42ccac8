package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.GenerateAccessToken(OperatorClaims{Subject: "operator-1", Role: "admin"})
	if err != nil {
		t.Fatalf("GenerateAccessToken returned error: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken returned error: %v", err)
	}
	if claims.Subject != "operator-1" || claims.Role != "admin" {
		t.Errorf("claims = %+v, want Subject=operator-1 Role=admin", claims)
	}
}

func TestValidateAccessTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour)
	token, _ := issuer.GenerateAccessToken(OperatorClaims{Subject: "op", Role: "operator"})

	verifier := NewJWTManager("secret-b", time.Hour)
	if _, err := verifier.ValidateAccessToken(token); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAccessTokenRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, err := m.GenerateAccessToken(OperatorClaims{Subject: "op", Role: "operator"})
	if err != nil {
		t.Fatalf("GenerateAccessToken returned error: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken for expired token", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	if _, err := m.ValidateAccessToken("not-a-jwt"); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestAccessTokenDurationSeconds(t *testing.T) {
	m := NewJWTManager("test-secret", 2*time.Hour)
	if got := m.AccessTokenDurationSeconds(); got != 7200 {
		t.Errorf("AccessTokenDurationSeconds() = %d, want 7200", got)
	}
}
