package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

const DefaultCapacity = 50

var (
	ErrStorageFull       = errors.New("credential storage full")
	ErrInvalidCredential = errors.New("credential id has an unsupported length")
	ErrInvalidCode       = errors.New("code must be exactly 4 digits")
	ErrSlotOutOfRange    = errors.New("slot out of range")
	ErrNotInitialized    = errors.New("credential table not initialized")
	ErrMediumSize        = errors.New("medium size does not match table capacity")
)

type Options struct {
	Capacity          int   // slots; DefaultCapacity when zero
	CredentialLengths []int // accepted UID lengths; types.DefaultCredentialLengths when empty
}

// Table is the persistent credential store: a fixed array of slots on a
// Medium, mirrored in memory with an index from credential id to slot.
//
// Table is not safe for concurrent use.  It is owned by the kiosk loop.
type Table struct {
	medium   store.Medium
	capacity int
	lengths  map[int]struct{}

	records []types.Record
	index   map[string]int
	ready   bool
}

func NewTable(m store.Medium, opt Options) (*Table, error) {
	if opt.Capacity == 0 {
		opt.Capacity = DefaultCapacity
	}
	if opt.Capacity < 1 {
		return nil, fmt.Errorf("capacity must be positive, got %d", opt.Capacity)
	}
	if len(opt.CredentialLengths) == 0 {
		opt.CredentialLengths = types.DefaultCredentialLengths
	}
	if m.Size() != ImageSize(opt.Capacity) {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrMediumSize, m.Size(), ImageSize(opt.Capacity))
	}

	lengths := make(map[int]struct{}, len(opt.CredentialLengths))
	for _, n := range opt.CredentialLengths {
		if n < 1 || n > types.MaxCredentialIDLen {
			return nil, fmt.Errorf("credential length %d outside 1..%d", n, types.MaxCredentialIDLen)
		}
		lengths[n] = struct{}{}
	}

	t := &Table{
		medium:   m,
		capacity: opt.Capacity,
		lengths:  lengths,
		records:  make([]types.Record, opt.Capacity),
		index:    make(map[string]int),
	}
	for i := range t.records {
		t.records[i].Slot = i
	}
	return t, nil
}

// InitializeIfNeeded loads the table, first wiping it when the sentinel is
// missing or wrong.  wiped reports that prior contents were discarded.
// Calling it again on a healthy table only reloads it.
func (t *Table) InitializeIfNeeded(ctx context.Context) (wiped bool, err error) {
	header := make([]byte, headerSize)
	if err := t.medium.ReadAt(ctx, header, 0); err != nil {
		return false, fmt.Errorf("read sentinel: %w", err)
	}

	if !hasMagic(header) {
		// Slots first, sentinel last: an interrupted wipe is redone on the
		// next boot instead of leaving a valid sentinel over stale slots.
		blank := make([]byte, t.capacity*RecordSize)
		if err := t.medium.WriteAt(ctx, blank, headerSize); err != nil {
			return false, fmt.Errorf("wipe slots: %w", err)
		}
		if err := t.medium.WriteAt(ctx, encodeMagic(), 0); err != nil {
			return false, fmt.Errorf("write sentinel: %w", err)
		}
		wiped = true
	}

	if err := t.load(ctx); err != nil {
		return wiped, err
	}
	return wiped, nil
}

func (t *Table) load(ctx context.Context) error {
	image := make([]byte, t.capacity*RecordSize)
	if err := t.medium.ReadAt(ctx, image, headerSize); err != nil {
		return fmt.Errorf("read slots: %w", err)
	}

	index := make(map[string]int)
	for i := 0; i < t.capacity; i++ {
		rec, _ := decodeRecord(i, image[i*RecordSize:(i+1)*RecordSize], t.ValidLength)
		t.records[i] = rec
		if !rec.Active {
			continue
		}
		// Lowest slot wins, matching an ascending scan.
		if _, dup := index[string(rec.CredentialID)]; !dup {
			index[string(rec.CredentialID)] = i
		}
	}

	t.index = index
	t.ready = true
	return nil
}

// ValidLength reports whether n is an accepted credential id length.
func (t *Table) ValidLength(n int) bool {
	_, ok := t.lengths[n]
	return ok
}

func (t *Table) Capacity() int { return t.capacity }

// FindByCredentialID returns the lowest active slot holding id.
func (t *Table) FindByCredentialID(id types.CredentialID) (int, bool) {
	slot, ok := t.index[string(id)]
	return slot, ok
}

// FindEmptySlot returns the lowest inactive slot.
func (t *Table) FindEmptySlot() (int, bool) {
	for i, r := range t.records {
		if !r.Active {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) ReadSlot(slot int) (types.Record, error) {
	if slot < 0 || slot >= t.capacity {
		return types.Record{}, fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
	}
	r := t.records[slot]
	r.CredentialID = r.CredentialID.Clone()
	return r, nil
}

// Upsert assigns code to id.  An existing record is overwritten in place;
// otherwise the lowest free slot is used.  On any error nothing is written.
func (t *Table) Upsert(ctx context.Context, id types.CredentialID, code string) (int, error) {
	if !t.ready {
		return 0, ErrNotInitialized
	}
	if !t.ValidLength(len(id)) {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidCredential, len(id))
	}
	if !types.IsValidCode(code) {
		return 0, ErrInvalidCode
	}

	slot, found := t.FindByCredentialID(id)
	if !found {
		var ok bool
		if slot, ok = t.FindEmptySlot(); !ok {
			return 0, ErrStorageFull
		}
	}

	rec := types.Record{Slot: slot, Active: true, CredentialID: id.Clone(), Code: code}
	if err := t.medium.WriteAt(ctx, encodeRecord(rec), slotOffset(slot)); err != nil {
		return 0, fmt.Errorf("write slot %d: %w", slot, err)
	}

	t.records[slot] = rec
	t.index[string(rec.CredentialID)] = slot
	return slot, nil
}

func (t *Table) ActiveCount() int {
	n := 0
	for _, r := range t.records {
		if r.Active {
			n++
		}
	}
	return n
}

// Records returns copies of the active records in slot order.
func (t *Table) Records() []types.Record {
	out := make([]types.Record, 0, len(t.index))
	for _, r := range t.records {
		if r.Active {
			r.CredentialID = r.CredentialID.Clone()
			out = append(out, r)
		}
	}
	return out
}
