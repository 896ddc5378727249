package rotauth

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rotauth/rotauth/token"
)

func testEncryptionKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(0xA0 ^ i)
	}
	return key
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.EncryptionKey = testEncryptionKey()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("test-secret")
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

// testCodec opens sealed refresh tokens so tests can inspect claims the
// engine never exposes.
func testCodec(t *testing.T, cfg Config) *token.Codec {
	t.Helper()

	codec, err := token.NewCodec(cfg.Token.EncryptionKey, cfg.Token.ClockSkewLeeway)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func decodeRefresh(t *testing.T, codec *token.Codec, opaque string) *token.Claims {
	t.Helper()

	claims, err := codec.Decode(opaque)
	if err != nil {
		t.Fatalf("decode refresh token: %v", err)
	}
	return claims
}

func sealClaims(t *testing.T, codec *token.Codec, claims *token.Claims) string {
	t.Helper()

	opaque, err := codec.Encode(claims)
	if err != nil {
		t.Fatalf("encode claims: %v", err)
	}
	return opaque
}

func refreshClaims(t *testing.T, userID, family, jti string, issued time.Time, ttl time.Duration) *token.Claims {
	t.Helper()

	return &token.Claims{
		UserID:    userID,
		Family:    family,
		JTI:       jti,
		TokenType: token.TypeRefresh,
		IssuedAt:  issued.Unix(),
		ExpiresAt: issued.Add(ttl).Unix(),
	}
}
