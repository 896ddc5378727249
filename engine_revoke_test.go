package rotauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rotauth/rotauth/ledger"
)

func TestRevokeIsIdempotent(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := engine.Revoke(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("Revoke call %d failed: %v", i+1, err)
		}
	}

	// A revoked token presented for rotation is a replay, not a comeback.
	if _, err := engine.Rotate(ctx, pair.RefreshToken); !errors.Is(err, ErrFamilyInvalidated) {
		t.Fatalf("expected ErrFamilyInvalidated after revoke, got %v", err)
	}
}

func TestRevokeAcceptsDeadInput(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)
	codec := testCodec(t, cfg)
	ctx := context.Background()

	// Logout must not error on garbage or long-expired tokens.
	if err := engine.Revoke(ctx, "not-a-token"); err != nil {
		t.Fatalf("Revoke of garbage must be a no-op, got %v", err)
	}

	stale := refreshClaims(t, "bob", "fam-dead", "jti-dead", time.Now().Add(-30*24*time.Hour), cfg.Token.RefreshTTL)
	if err := engine.Revoke(ctx, sealClaims(t, codec, stale)); err != nil {
		t.Fatalf("Revoke of expired token must be a no-op, got %v", err)
	}
}

func TestRevokeLeavesFamilyAlive(t *testing.T) {
	cfg := testConfig()
	engine, mr := newTestEngine(t, cfg)
	codec := testCodec(t, cfg)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "carol")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	family := decodeRefresh(t, codec, pair.RefreshToken).Family

	if err := engine.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	store := ledger.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg.Ledger.RedisPrefix)
	dead, err := store.IsFamilyInvalidated(ctx, family)
	if err != nil {
		t.Fatalf("IsFamilyInvalidated failed: %v", err)
	}
	if dead {
		t.Fatal("single-token revoke must not punish the family")
	}
}

func TestRevokeFailsClosedWhenLedgerDown(t *testing.T) {
	cfg := testConfig()
	engine, mr := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "dave")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.SetError("connection refused")
	if err := engine.Revoke(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRevokeFamilySignsOutEverywhere(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	t0, err := engine.Issue(ctx, "erin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	t1, err := engine.Rotate(ctx, t0.RefreshToken)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}

	if err := engine.RevokeFamily(ctx, t1.RefreshToken); err != nil {
		t.Fatalf("RevokeFamily failed: %v", err)
	}

	for i, opaque := range []string{t0.RefreshToken, t1.RefreshToken} {
		if _, err := engine.Rotate(ctx, opaque); !errors.Is(err, ErrFamilyInvalidated) {
			t.Fatalf("token %d: expected ErrFamilyInvalidated, got %v", i, err)
		}
	}
}
