package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// JTI is the raw identifier of a single token instance. 128 bits from
// crypto/rand keeps birthday collisions out of reach at any realistic
// issuance volume.
type JTI [16]byte

func NewJTI() (JTI, error) {
	var id JTI
	_, err := rand.Read(id[:])
	return id, err
}

func (j JTI) Bytes() []byte {
	return j[:]
}

func (j JTI) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(j[:])
}

func ParseJTI(jti string) (JTI, error) {
	var id JTI

	raw, err := base64.RawURLEncoding.DecodeString(jti)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid jti size")
	}

	copy(id[:], raw)
	return id, nil
}

// NewFamilyID mints the lineage identifier created once per login event.
// Every rotation descendant carries it unchanged.
func NewFamilyID() string {
	return uuid.NewString()
}
