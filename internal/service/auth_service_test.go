package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/skygear-market/messaging/internal/apperr"
	"github.com/skygear-market/messaging/internal/database"
	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/repository"
)

func newAuthService(t *testing.T, ttl time.Duration) AuthService {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open test database: %v", err)
	}
	return NewAuthService(repository.NewSQLiteUserRepository(db), "test-secret", ttl, nlog.Discard())
}

func TestRegisterLoginVerify(t *testing.T) {
	auth := newAuthService(t, time.Hour)

	u, err := auth.Register("Rigger@Example.com", "hunter2", "Riley", "Rigger", "seller")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.Email != "rigger@example.com" {
		t.Errorf("email should be normalized. GOT[%s], EXPECTED[rigger@example.com]", u.Email)
	}
	if u.Secret.Hash == "hunter2" {
		t.Errorf("the password must never be stored in the clear")
	}

	token, logged, err := auth.Login("rigger@example.com", "hunter2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if logged.UUID != u.UUID {
		t.Errorf("login user. GOT[%s], EXPECTED[%s]", logged.UUID, u.UUID)
	}

	verified, err := auth.Verify(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if verified.UUID != u.UUID {
		t.Errorf("verified user. GOT[%s], EXPECTED[%s]", verified.UUID, u.UUID)
	}
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuthService(t, time.Hour)

	if _, err := auth.Register("", "pw", "", "", ""); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("empty email. GOT[%v], EXPECTED[invalid operation]", err)
	}
	if _, err := auth.Register("a@b.com", "", "", "", ""); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("empty password. GOT[%v], EXPECTED[invalid operation]", err)
	}

	if _, err := auth.Register("a@b.com", "pw", "", "", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := auth.Register("A@B.com", "pw", "", "", ""); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("duplicate email. GOT[%v], EXPECTED[invalid operation]", err)
	}
}

func TestLoginFailures(t *testing.T) {
	auth := newAuthService(t, time.Hour)

	if _, err := auth.Register("a@b.com", "pw", "", "", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, _, err := auth.Login("nobody@b.com", "pw"); !errors.Is(err, apperr.ErrAuthenticationFailed) {
		t.Errorf("unknown email. GOT[%v], EXPECTED[authentication failed]", err)
	}
	if _, _, err := auth.Login("a@b.com", "wrong"); !errors.Is(err, apperr.ErrAuthenticationFailed) {
		t.Errorf("wrong password. GOT[%v], EXPECTED[authentication failed]", err)
	}
}

func TestVerifyRejectsGarbageAndExpiredTokens(t *testing.T) {
	auth := newAuthService(t, -time.Minute)

	if _, err := auth.Verify("not-a-token"); !errors.Is(err, apperr.ErrAuthenticationFailed) {
		t.Errorf("garbage token. GOT[%v], EXPECTED[authentication failed]", err)
	}

	if _, err := auth.Register("a@b.com", "pw", "", "", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	token, _, err := auth.Login("a@b.com", "pw")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := auth.Verify(token); !errors.Is(err, apperr.ErrAuthenticationFailed) {
		t.Errorf("expired token. GOT[%v], EXPECTED[authentication failed]", err)
	}
}
