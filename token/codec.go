package token

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const claimsFormatVersionCurrent = 1

var (
	// ErrMalformed is returned for input that is not a structurally valid
	// sealed token: bad base64, truncated payload, unknown claims version.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid is returned when authentication of the ciphertext
	// fails: wrong key, flipped bits, forged input.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is returned when the claims decode cleanly but the token is
	// past its expiry beyond the configured clock-skew leeway.
	ErrExpired = errors.New("token expired")
)

// Codec seals and opens refresh-token claims with AES-GCM. It is stateless
// and safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
	// leeway tolerates clock skew between issuing and validating hosts when
	// checking expiry. It never extends the lifetime used for ledger TTLs.
	leeway time.Duration
}

// NewCodec builds a codec around the shared symmetric key. The key length
// selects AES-128/192/256; anything else is rejected.
func NewCodec(key []byte, leeway time.Duration) (*Codec, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("encryption key must be 16, 24, or 32 bytes")
	}
	if leeway < 0 {
		return nil, errors.New("clock skew leeway must not be negative")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Codec{aead: aead, leeway: leeway}, nil
}

// Encode seals the claims into the opaque wire string handed to clients.
func (c *Codec) Encode(claims *Claims) (string, error) {
	plain, err := encodeClaims(claims)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens an opaque token and validates expiry. Failures are classified
// as [ErrMalformed], [ErrSignatureInvalid], or [ErrExpired]; callers facing
// clients must not leak which one occurred.
func (c *Codec) Decode(opaque string) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return nil, ErrMalformed
	}
	if len(raw) <= c.aead.NonceSize() {
		return nil, ErrMalformed
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSignatureInvalid
	}

	claims, err := decodeClaims(plain)
	if err != nil {
		return nil, ErrMalformed
	}

	if time.Now().After(time.Unix(claims.ExpiresAt, 0).Add(c.leeway)) {
		return nil, ErrExpired
	}

	return claims, nil
}

func encodeClaims(c *Claims) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(claimsFormatVersionCurrent)

	if len(c.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(c.UserID)))
	buf.WriteString(c.UserID)

	if len(c.Family) > 255 {
		return nil, errors.New("family too long")
	}
	buf.WriteByte(byte(len(c.Family)))
	buf.WriteString(c.Family)

	if len(c.JTI) > 255 {
		return nil, errors.New("jti too long")
	}
	buf.WriteByte(byte(len(c.JTI)))
	buf.WriteString(c.JTI)

	buf.WriteByte(byte(c.TokenType))

	if err := binary.Write(&buf, binary.BigEndian, c.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeClaims(data []byte) (*Claims, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != claimsFormatVersionCurrent {
		return nil, errors.New("invalid claims version")
	}

	c := &Claims{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	c.UserID = string(userID)

	familyLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	family := make([]byte, familyLen)
	if _, err := io.ReadFull(reader, family); err != nil {
		return nil, err
	}
	c.Family = string(family)

	jtiLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	jti := make([]byte, jtiLen)
	if _, err := io.ReadFull(reader, jti); err != nil {
		return nil, err
	}
	c.JTI = string(jti)

	tokenType, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	c.TokenType = Type(tokenType)

	if err := binary.Read(reader, binary.BigEndian, &c.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &c.ExpiresAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after claims")
	}

	return c, nil
}
