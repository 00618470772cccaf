package credential

import (
	"encoding/binary"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

// Magic marks an initialized table.  It is stored little-endian at offset 0.
const Magic uint32 = 0x4B494F53

const (
	headerSize = 4
	// RecordSize is active(1) + id length(1) + id(7, zero padded) + code(4).
	RecordSize = 2 + types.MaxCredentialIDLen + types.CodeLength

	offActive = 0
	offIDLen  = 1
	offID     = 2
	offCode   = offID + types.MaxCredentialIDLen
)

// ImageSize is the number of medium bytes a table of capacity slots needs.
func ImageSize(capacity int) int {
	return headerSize + capacity*RecordSize
}

func slotOffset(slot int) int {
	return headerSize + slot*RecordSize
}

func encodeMagic() []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b, Magic)
	return b
}

func hasMagic(b []byte) bool {
	return len(b) >= headerSize && binary.LittleEndian.Uint32(b) == Magic
}

func encodeRecord(r types.Record) []byte {
	b := make([]byte, RecordSize)
	if !r.Active {
		return b
	}
	b[offActive] = 1
	b[offIDLen] = byte(len(r.CredentialID))
	copy(b[offID:offCode], r.CredentialID)
	copy(b[offCode:], r.Code)
	return b
}

// decodeRecord returns the slot's record.  ok is false when the slot is
// flagged active but its bytes cannot be a valid record (bad length or a
// non-digit code); callers treat such a slot as free.
func decodeRecord(slot int, b []byte, validLen func(int) bool) (rec types.Record, ok bool) {
	rec = types.Record{Slot: slot}
	if b[offActive] == 0 {
		return rec, true
	}

	n := int(b[offIDLen])
	code := string(b[offCode : offCode+types.CodeLength])
	if n > types.MaxCredentialIDLen || !validLen(n) || !types.IsValidCode(code) {
		return rec, false
	}

	rec.Active = true
	rec.CredentialID = types.CredentialID(b[offID : offID+n]).Clone()
	rec.Code = code
	return rec, true
}
