package services

import (
	"errors"
	"testing"

	"github.com/duonguwu/notification-bot/config"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(newTestDB(t), &config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenExpiry:   1,
		RefreshExpiry: 24,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuth(t)

	user, err := svc.Register("admin", "admin@x.com", "s3cret", "Admin")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Password == "s3cret" {
		t.Error("password must be stored hashed")
	}

	got, err := svc.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestAuth(t)

	if _, err := svc.Register("admin", "admin@x.com", "s3cret", "Admin"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register("admin", "other@x.com", "s3cret", "Admin"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestAuth(t)

	if _, err := svc.Register("admin", "admin@x.com", "s3cret", "Admin"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login("nobody", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestAuth(t)

	user, err := svc.Register("admin", "admin@x.com", "s3cret", "Admin")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	tokens, err := svc.GenerateTokens(user)
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}
	if tokens.TokenType != "Bearer" {
		t.Errorf("expected Bearer token type, got %s", tokens.TokenType)
	}

	claims, err := svc.ValidateToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("expected user id %d in claims, got %d", user.ID, claims.UserID)
	}

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
