package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm for access tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Curve25519 (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 using a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// Config carries the signing material and validation policy for access
// tokens.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Manager issues and parses access tokens. Keys and parser options are
// resolved once at construction; Manager is immutable and safe for
// concurrent use.
type Manager struct {
	ttl      time.Duration
	issuer   string
	audience string

	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	parser    *jwt.Parser
}

// AccessClaims is the payload of a signed access token.
type AccessClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	m := &Manager{
		ttl:      cfg.AccessTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := edPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := edPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.method = jwt.SigningMethodEdDSA
		m.signKey = priv
		m.verifyKey = pub
	default:
		return nil, errors.New("unsupported signing method")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// CreateAccess mints a signed short-lived access token for the subject.
func (m *Manager) CreateAccess(userID string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
}

// ParseAccess verifies signature, expiry, issuer, and audience.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	parsed, err := m.parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// edPrivateKey accepts a raw 64-byte seed+key or a PEM-encoded PKCS#8 key.
func edPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return priv, nil
}

// edPublicKey accepts a raw 32-byte key or a PEM-encoded PKIX key.
func edPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return pub, nil
}
