package rotauth

import (
	"errors"
	"time"
)

// Config carries every recognized engine option. Instances are intended to be
// configured during initialization and then treated as immutable.
type Config struct {
	Token   TokenConfig
	JWT     JWTConfig
	Ledger  LedgerConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig governs the sealed refresh-token format and lifetime.
type TokenConfig struct {
	// RefreshTTL is the refresh-token lifetime. Ledger markers guarding a
	// token always live at least as long as the token they guard.
	RefreshTTL time.Duration
	// EncryptionKey is the shared symmetric key sealing refresh-token claims.
	// Length selects AES-128/192/256. Supplied and rotated externally.
	EncryptionKey []byte
	// ClockSkewLeeway tolerates clock drift between distributed hosts when
	// checking expiry. It never shortens or extends the effective lifetime.
	ClockSkewLeeway time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig governs the access tokens minted alongside each refresh token.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig governs the shared Redis consumption ledger.
type LedgerConfig struct {
	RedisPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig governs the async security-event pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig governs in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration the engine starts from before
// Builder overrides.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			RefreshTTL:      7 * 24 * time.Hour,
			ClockSkewLeeway: 30 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
		},
		Ledger: LedgerConfig{
			RedisPrefix: "rt",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token.RefreshTTL must be positive")
	}
	switch len(c.Token.EncryptionKey) {
	case 16, 24, 32:
	default:
		return errors.New("Token.EncryptionKey must be 16, 24, or 32 bytes")
	}
	if c.Token.ClockSkewLeeway < 0 || c.Token.ClockSkewLeeway > 2*time.Minute {
		return errors.New("Token.ClockSkewLeeway must be between 0 and 2 minutes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("JWT.AccessTTL must be shorter than Token.RefreshTTL")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.EncryptionKey = append([]byte(nil), cfg.Token.EncryptionKey...)
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}
