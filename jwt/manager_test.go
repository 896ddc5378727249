package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

func newHS256Manager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		AccessTTL:     ttl,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "rotauth-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestCreateAndParseAccessHS256(t *testing.T) {
	m := newHS256Manager(t, 5*time.Minute)

	tok, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-1" {
		t.Fatalf("expected uid user-1, got %s", claims.UID)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti on the access token")
	}
}

func TestAccessJTIUniquePerToken(t *testing.T) {
	m := newHS256Manager(t, 5*time.Minute)

	a, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	b, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	ca, err := m.ParseAccess(a)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	cb, err := m.ParseAccess(b)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if ca.ID == cb.ID {
		t.Fatal("two access tokens must not share a jti")
	}
}

func TestParseAccessRejectsTampering(t *testing.T) {
	m := newHS256Manager(t, 5*time.Minute)

	tok, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", tok)
	}
	forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := m.ParseAccess(forged); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := m.CreateAccess("user-ed")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	claims, err := m.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-ed" {
		t.Fatalf("expected uid user-ed, got %s", claims.UID)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing hs256 key to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected missing ed25519 public key to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: "rsa"}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
}
