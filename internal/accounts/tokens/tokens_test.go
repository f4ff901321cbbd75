package tokens

import (
	"testing"
	"time"

	"github.com/example/marketplace/internal/platform/auth"
)

func newService() Service {
	return Service{
		Secret:         []byte("test-jwt-secret-32-bytes-padded!"),
		AccessTokenTTL: time.Hour,
	}
}

func TestNewAccessToken_HappyPath(t *testing.T) {
	svc := newService()
	now := time.Now().UTC()

	tok, exp, err := svc.NewAccessToken("user-1", []string{"user", "admin"}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok == "" {
		t.Fatal("expected non-empty token")
	}
	if !exp.After(now) {
		t.Fatalf("expected expiry after now, got %v", exp)
	}

	// Roundtrip through the verifier the middleware uses.
	claims, err := auth.JWTVerifier{Secret: svc.Secret}.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject 'user-1', got %q", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != "admin" {
		t.Fatalf("expected roles [user admin], got %v", claims.Roles)
	}
}

func TestNewAccessToken_MissingSecret(t *testing.T) {
	svc := Service{Secret: nil, AccessTokenTTL: time.Hour}
	if _, _, err := svc.NewAccessToken("user-1", []string{"user"}, time.Now()); err == nil {
		t.Fatal("expected error when secret is empty")
	}
}

func TestNewAccessToken_ZeroTime_UsesNow(t *testing.T) {
	svc := newService()
	before := time.Now().Add(-time.Second)
	tok, exp, err := svc.NewAccessToken("user-1", []string{"user"}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exp.After(before) {
		t.Fatalf("expected expiry after 'before', got %v", exp)
	}
	if _, err := (auth.JWTVerifier{Secret: svc.Secret}).Parse(tok); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestNewAccessToken_ExpiredRejected(t *testing.T) {
	svc := Service{
		Secret:         []byte("test-jwt-secret-32-bytes-padded!"),
		AccessTokenTTL: -time.Hour,
	}
	tok, _, err := svc.NewAccessToken("user-1", []string{"user"}, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := (auth.JWTVerifier{Secret: svc.Secret}).Parse(tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}
