package rotauth

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfigIsSaneOnceKeyed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.EncryptionKey = testEncryptionKey()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("keyed default config must validate: %v", err)
	}
	if cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected default refresh TTL: %v", cfg.Token.RefreshTTL)
	}
	if cfg.Token.ClockSkewLeeway != 30*time.Second {
		t.Fatalf("unexpected default leeway: %v", cfg.Token.ClockSkewLeeway)
	}
	if cfg.Ledger.RedisPrefix != "rt" {
		t.Fatalf("unexpected default prefix: %q", cfg.Ledger.RedisPrefix)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing key", func(c *Config) { c.Token.EncryptionKey = nil }},
		{"short key", func(c *Config) { c.Token.EncryptionKey = make([]byte, 8) }},
		{"zero refresh ttl", func(c *Config) { c.Token.RefreshTTL = 0 }},
		{"negative leeway", func(c *Config) { c.Token.ClockSkewLeeway = -time.Second }},
		{"huge leeway", func(c *Config) { c.Token.ClockSkewLeeway = time.Hour }},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"access outlives refresh", func(c *Config) { c.JWT.AccessTTL = 30 * 24 * time.Hour }},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected Build without redis to fail")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)

	b := New().WithConfig(testConfig()).WithRedis(rdb)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestConfigCloneIsolation(t *testing.T) {
	cfg := testConfig()

	_, rdb := newTestRedis(t)
	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	// Mutating the caller's key material after Build must not reach the
	// engine's sealed copy.
	for i := range cfg.Token.EncryptionKey {
		cfg.Token.EncryptionKey[i] = 0
	}

	if _, err := engine.Issue(context.Background(), "alice"); err != nil {
		t.Fatalf("Issue after caller key mutation failed: %v", err)
	}
}
