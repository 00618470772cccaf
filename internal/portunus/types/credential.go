package types

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
)

// MaxCredentialIDLen is the widest UID the credential table can hold
// (a double-size ISO 14443A UID).
const MaxCredentialIDLen = 7

// DefaultCredentialLengths are the UID sizes a proximity reader reports:
// single-size (4 bytes) and double-size (7 bytes).
var DefaultCredentialLengths = []int{4, 7}

var (
	ErrInvalidCredentialHex = errors.New("credential id must be hex encoded")
	ErrEmptyCredentialID    = errors.New("credential id is required")
)

// CredentialID is the raw UID read from a proximity card.  Identifiers are
// compared byte for byte; the hex form is only for humans and logs.
type CredentialID []byte

func (id CredentialID) String() string {
	return strings.ToUpper(hex.EncodeToString(id))
}

func (id CredentialID) Equal(other CredentialID) bool {
	return bytes.Equal(id, other)
}

// Clone returns a copy that does not alias the reader's buffer.
func (id CredentialID) Clone() CredentialID {
	if id == nil {
		return nil
	}
	out := make(CredentialID, len(id))
	copy(out, id)
	return out
}

// ParseCredentialID accepts "A581AA04", "a5:81:aa:04" or "A5 81 AA 04".
func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	if s == "" {
		return nil, ErrEmptyCredentialID
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCredentialHex
	}
	return CredentialID(b), nil
}
