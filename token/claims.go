package token

import "time"

// Type tags the purpose of a token so a refresh credential can never be
// presented where an access credential is expected, or the reverse.
type Type byte

const (
	// TypeRefresh marks the long-lived rotating credential.
	TypeRefresh Type = 1
	// TypeAccess marks the short-lived bearer credential minted alongside it.
	TypeAccess Type = 2
)

// Claims is the decrypted content of an opaque refresh token. It is never
// persisted; the encoded token itself is the only carrier.
type Claims struct {
	UserID string
	// Family identifies the lineage descended from one login event. It is
	// immutable across rotations.
	Family string
	// JTI identifies this token instance and changes on every rotation.
	JTI       string
	TokenType Type
	IssuedAt  int64
	ExpiresAt int64
}

// Remaining reports how long the token stays presentable from now. Ledger
// markers guarding the token must live at least this long.
func (c *Claims) Remaining(now time.Time) time.Duration {
	return time.Unix(c.ExpiresAt, 0).Sub(now)
}
