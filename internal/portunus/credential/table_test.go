package credential_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/credential"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/memory"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

var cardA = types.CredentialID{0xA5, 0x81, 0xAA, 0x04}

// newTable returns an initialized table over a fresh memory medium.
func newTable(t *testing.T, capacity int) (*credential.Table, *memory.Medium) {
	t.Helper()

	m := memory.New(credential.ImageSize(capacity))
	tbl, err := credential.NewTable(m, credential.Options{Capacity: capacity})
	require.NoError(t, err)

	wiped, err := tbl.InitializeIfNeeded(context.Background())
	require.NoError(t, err)
	require.True(t, wiped, "blank medium must be initialized")
	return tbl, m
}

func cardN(i int) types.CredentialID {
	return types.CredentialID{0x10, 0x20, byte(i >> 8), byte(i)}
}

// ── Initialization ───────────────────────────────────────────────────────────

func TestInitialize_FreshTableIsEmpty(t *testing.T) {
	tbl, m := newTable(t, 50)

	assert.Equal(t, 0, tbl.ActiveCount())
	assert.Equal(t, 50, tbl.Capacity())
	assert.Equal(t, 4+50*13, m.Size())
	assert.Equal(t, credential.Magic, binary.LittleEndian.Uint32(m.Bytes()[:4]))

	slot, ok := tbl.FindEmptySlot()
	require.True(t, ok)
	assert.Equal(t, 0, slot)
}

func TestInitialize_Idempotent(t *testing.T) {
	tbl, m := newTable(t, 4)
	ctx := context.Background()

	_, err := tbl.Upsert(ctx, cardA, "1234")
	require.NoError(t, err)

	wiped, err := tbl.InitializeIfNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, wiped)
	assert.Equal(t, 1, tbl.ActiveCount())

	// A second table over the same medium sees the same record (reboot).
	reboot, err := credential.NewTable(m, credential.Options{Capacity: 4})
	require.NoError(t, err)
	wiped, err = reboot.InitializeIfNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, wiped)

	slot, ok := reboot.FindByCredentialID(cardA)
	require.True(t, ok)
	rec, err := reboot.ReadSlot(slot)
	require.NoError(t, err)
	assert.Equal(t, "1234", rec.Code)
}

func TestInitialize_CorruptSentinelWipes(t *testing.T) {
	tbl, m := newTable(t, 4)
	ctx := context.Background()

	_, err := tbl.Upsert(ctx, cardA, "1234")
	require.NoError(t, err)

	require.NoError(t, m.WriteAt(ctx, []byte{0xde, 0xad, 0xbe, 0xef}, 0))

	reboot, err := credential.NewTable(m, credential.Options{Capacity: 4})
	require.NoError(t, err)
	wiped, err := reboot.InitializeIfNeeded(ctx)
	require.NoError(t, err)
	assert.True(t, wiped)
	assert.Equal(t, 0, reboot.ActiveCount())

	_, ok := reboot.FindByCredentialID(cardA)
	assert.False(t, ok)
	assert.Equal(t, make([]byte, 4*13), m.Bytes()[4:])
}

func TestNewTable_RejectsMismatchedMedium(t *testing.T) {
	_, err := credential.NewTable(memory.New(100), credential.Options{Capacity: 50})
	assert.ErrorIs(t, err, credential.ErrMediumSize)

	_, err = credential.NewTable(memory.New(credential.ImageSize(2)), credential.Options{
		Capacity:          2,
		CredentialLengths: []int{10},
	})
	assert.Error(t, err)
}

func TestUpsert_BeforeInitialize(t *testing.T) {
	tbl, err := credential.NewTable(memory.New(credential.ImageSize(2)), credential.Options{Capacity: 2})
	require.NoError(t, err)

	_, err = tbl.Upsert(context.Background(), cardA, "1234")
	assert.ErrorIs(t, err, credential.ErrNotInitialized)
}

// ── Layout ───────────────────────────────────────────────────────────────────

func TestUpsert_WritesDocumentedLayout(t *testing.T) {
	tbl, m := newTable(t, 3)
	ctx := context.Background()

	_, err := tbl.Upsert(ctx, cardA, "1234")
	require.NoError(t, err)
	seven := types.CredentialID{1, 2, 3, 4, 5, 6, 7}
	_, err = tbl.Upsert(ctx, seven, "0007")
	require.NoError(t, err)

	img := m.Bytes()
	assert.Equal(t,
		[]byte{1, 4, 0xA5, 0x81, 0xAA, 0x04, 0, 0, 0, '1', '2', '3', '4'},
		img[4:17])
	assert.Equal(t,
		[]byte{1, 7, 1, 2, 3, 4, 5, 6, 7, '0', '0', '0', '7'},
		img[17:30])
	assert.Equal(t, make([]byte, 13), img[30:43])
}

func TestLoad_DamagedSlotTreatedAsFree(t *testing.T) {
	tbl, m := newTable(t, 2)
	ctx := context.Background()

	_, err := tbl.Upsert(ctx, cardA, "1234")
	require.NoError(t, err)

	// Active flag with a 5-byte length is not a record this table can hold.
	require.NoError(t, m.WriteAt(ctx, []byte{1, 5}, 4))

	reboot, err := credential.NewTable(m, credential.Options{Capacity: 2})
	require.NoError(t, err)
	_, err = reboot.InitializeIfNeeded(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, reboot.ActiveCount())
	slot, ok := reboot.FindEmptySlot()
	require.True(t, ok)
	assert.Equal(t, 0, slot)
}

// ── Upsert ───────────────────────────────────────────────────────────────────

func TestUpsert_NewThenFind(t *testing.T) {
	tbl, _ := newTable(t, 50)

	slot, err := tbl.Upsert(context.Background(), cardA, "1234")
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	got, ok := tbl.FindByCredentialID(types.CredentialID{0xA5, 0x81, 0xAA, 0x04})
	require.True(t, ok)
	assert.Equal(t, slot, got)

	rec, err := tbl.ReadSlot(slot)
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.True(t, rec.CredentialID.Equal(cardA))
	assert.Equal(t, "1234", rec.Code)
}

func TestUpsert_ReenrollOverwritesInPlace(t *testing.T) {
	tbl, _ := newTable(t, 50)
	ctx := context.Background()

	_, err := tbl.Upsert(ctx, cardN(1), "1111")
	require.NoError(t, err)
	first, err := tbl.Upsert(ctx, cardA, "1234")
	require.NoError(t, err)
	before := tbl.ActiveCount()

	again, err := tbl.Upsert(ctx, cardA, "5678")
	require.NoError(t, err)

	assert.Equal(t, first, again, "re-enroll must keep the slot")
	assert.Equal(t, before, tbl.ActiveCount())

	rec, err := tbl.ReadSlot(again)
	require.NoError(t, err)
	assert.Equal(t, "5678", rec.Code)
}

func TestUpsert_RejectsInvalidInput(t *testing.T) {
	tbl, m := newTable(t, 4)
	ctx := context.Background()
	before := m.Bytes()

	for _, id := range []types.CredentialID{{1, 2, 3}, {1, 2, 3, 4, 5}, {1, 2, 3, 4, 5, 6, 7, 8}, nil} {
		_, err := tbl.Upsert(ctx, id, "1234")
		assert.ErrorIs(t, err, credential.ErrInvalidCredential, "len %d", len(id))
	}
	for _, code := range []string{"", "123", "12345", "12a4"} {
		_, err := tbl.Upsert(ctx, cardA, code)
		assert.ErrorIs(t, err, credential.ErrInvalidCode, "code %q", code)
	}

	assert.Equal(t, before, m.Bytes())
	assert.Equal(t, 0, tbl.ActiveCount())
}

func TestUpsert_CustomLengthWhitelist(t *testing.T) {
	m := memory.New(credential.ImageSize(2))
	tbl, err := credential.NewTable(m, credential.Options{Capacity: 2, CredentialLengths: []int{7}})
	require.NoError(t, err)
	_, err = tbl.InitializeIfNeeded(context.Background())
	require.NoError(t, err)

	_, err = tbl.Upsert(context.Background(), cardA, "1234")
	assert.ErrorIs(t, err, credential.ErrInvalidCredential)
	assert.False(t, tbl.ValidLength(4))
	assert.True(t, tbl.ValidLength(7))
}

func TestUpsert_FullTable(t *testing.T) {
	const capacity = 50
	tbl, m := newTable(t, capacity)
	ctx := context.Background()

	for i := 0; i < capacity; i++ {
		slot, err := tbl.Upsert(ctx, cardN(i), fmt.Sprintf("%04d", i))
		require.NoError(t, err)
		require.Equal(t, i, slot)
	}
	require.Equal(t, capacity, tbl.ActiveCount())

	_, ok := tbl.FindEmptySlot()
	assert.False(t, ok)

	before := m.Bytes()
	_, err := tbl.Upsert(ctx, cardA, "9999")
	assert.ErrorIs(t, err, credential.ErrStorageFull)
	_, err = tbl.Upsert(ctx, cardA, "9999")
	assert.ErrorIs(t, err, credential.ErrStorageFull)

	assert.Equal(t, before, m.Bytes(), "failed upsert must not write")
	assert.Equal(t, capacity, tbl.ActiveCount())

	// Existing credentials can still be re-enrolled on a full table.
	slot, err := tbl.Upsert(ctx, cardN(7), "7777")
	require.NoError(t, err)
	assert.Equal(t, 7, slot)
}

func TestReadSlot_OutOfRange(t *testing.T) {
	tbl, _ := newTable(t, 2)

	_, err := tbl.ReadSlot(2)
	assert.ErrorIs(t, err, credential.ErrSlotOutOfRange)
	_, err = tbl.ReadSlot(-1)
	assert.ErrorIs(t, err, credential.ErrSlotOutOfRange)

	rec, err := tbl.ReadSlot(1)
	require.NoError(t, err)
	assert.False(t, rec.Active)
	assert.Equal(t, 1, rec.Slot)
}

func TestRecords_SlotOrder(t *testing.T) {
	tbl, _ := newTable(t, 5)
	ctx := context.Background()

	for i := 3; i >= 1; i-- {
		_, err := tbl.Upsert(ctx, cardN(i), "0000")
		require.NoError(t, err)
	}

	recs := tbl.Records()
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, i, r.Slot)
	}
	assert.True(t, recs[0].CredentialID.Equal(cardN(3)))
}
