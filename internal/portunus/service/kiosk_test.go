package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/db"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/credential"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/feedback"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/input"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/session"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/memory"
	sqlitestore "github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

const adminCode = "9999"

var cardA = []byte{0xA5, 0x81, 0xAA, 0x04}

type rig struct {
	t     *testing.T
	kiosk *service.Kiosk
	queue *input.Queue
	rec   *feedback.Recorder
	table *credential.Table
	hook  *test.Hook
}

func newRig(t *testing.T, m store.Medium, capacity int) *rig {
	t.Helper()

	tbl, err := credential.NewTable(m, credential.Options{Capacity: capacity})
	require.NoError(t, err)
	_, err = tbl.InitializeIfNeeded(context.Background())
	require.NoError(t, err)

	machine, err := session.NewMachine(tbl, session.Config{AdminCode: adminCode})
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	q := input.NewQueue(256)
	rec := feedback.NewRecorder()
	k := service.NewKiosk(service.Dependencies{
		Poller:    input.NewArbiter(q, q, nil, logger),
		Machine:   machine,
		Sink:      rec,
		Occupancy: tbl,
		Logger:    logger,
	})

	return &rig{t: t, kiosk: k, queue: q, rec: rec, table: tbl, hook: hook}
}

func newMemoryRig(t *testing.T, capacity int) *rig {
	return newRig(t, memory.New(credential.ImageSize(capacity)), capacity)
}

// drain steps the loop until the arbiter has nothing left.
func (r *rig) drain() {
	for r.kiosk.Step(context.Background()) {
	}
}

func (r *rig) keys(s string) {
	require.NoError(r.t, r.queue.PushKeys(s))
	r.drain()
}

func (r *rig) present(uid []byte) {
	require.NoError(r.t, r.queue.PushCard(uid))
	r.drain()
}

func (r *rig) enroll(uid []byte, code string) {
	r.keys(adminCode + "#")
	r.present(uid)
	r.keys(code + "#")
}

func (r *rig) lastOutcome() string {
	return r.kiosk.Status().LastOutcome
}

// ── End-to-end flows ─────────────────────────────────────────────────────────

func TestKiosk_EnrollThenAuthenticate(t *testing.T) {
	r := newMemoryRig(t, 50)

	r.enroll(cardA, "1234")
	assert.Equal(t, "enrolled", r.lastOutcome())
	saved := false
	for _, c := range r.rec.Commands() {
		if s, ok := c.(feedback.ShowScreen); ok && s.Screen.Line1 == "Saved" {
			saved = true
		}
	}
	assert.True(t, saved, "operator must see the saved message")

	r.rec.Reset()
	r.keys("1234#")
	r.present(cardA)

	assert.Equal(t, "granted", r.lastOutcome())
	assert.Equal(t, []feedback.GatePosition{feedback.GateOpen, feedback.GateClosed}, r.rec.GatePositions())
	assert.Equal(t, "awaiting_code", r.kiosk.Status().State)
}

func TestKiosk_FreshStoreDenies(t *testing.T) {
	r := newMemoryRig(t, 50)

	r.keys("1234#")
	r.present(cardA)

	assert.Equal(t, "denied", r.lastOutcome())
	assert.Empty(t, r.rec.GatePositions())
	assert.Contains(t, r.rec.Screens(), feedback.ScreenAccessDenied)
}

func TestKiosk_WrongCodeForEnrolledCard(t *testing.T) {
	r := newMemoryRig(t, 50)
	x := []byte{0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	r.enroll(x, "1111")
	r.rec.Reset()

	r.keys("2222#")
	r.present(x)

	assert.Equal(t, "denied", r.lastOutcome())
	assert.Empty(t, r.rec.GatePositions())
}

func TestKiosk_FillAllSlotsThenStorageFull(t *testing.T) {
	const capacity = 50
	r := newMemoryRig(t, capacity)

	for i := 0; i < capacity; i++ {
		r.enroll([]byte{0xC0, 0xDE, byte(i >> 8), byte(i)}, fmt.Sprintf("%04d", i))
		require.Equal(t, "enrolled", r.lastOutcome(), "enrollment %d", i)
	}
	require.Equal(t, capacity, r.kiosk.Status().ActiveRecords)

	r.rec.Reset()
	r.enroll(cardA, "1234")

	assert.Equal(t, "storage_full", r.lastOutcome())
	assert.Equal(t, capacity, r.kiosk.Status().ActiveRecords)
	_, found := r.table.FindByCredentialID(types.CredentialID(cardA))
	assert.False(t, found)

	full := false
	for _, c := range r.rec.Commands() {
		if s, ok := c.(feedback.ShowScreen); ok && s.Screen.Line1 == "Storage full" {
			full = true
		}
	}
	assert.True(t, full)
}

func TestKiosk_OneEventPerStep(t *testing.T) {
	r := newMemoryRig(t, 4)
	require.NoError(t, r.queue.PushKeys("12"))
	require.NoError(t, r.queue.PushCard(cardA))

	assert.True(t, r.kiosk.Step(context.Background()))
	keys, cards := r.queue.Pending()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, cards)
	assert.Equal(t, uint64(1), r.kiosk.Status().Steps)

	r.drain()
	assert.False(t, r.kiosk.Step(context.Background()), "idle step is a no-op")
	assert.Equal(t, uint64(3), r.kiosk.Status().Steps)
}

func TestKiosk_FlowIDSpansOneFlow(t *testing.T) {
	r := newMemoryRig(t, 4)

	r.keys("1234#")
	r.present(cardA)
	r.keys("5")

	var ids []string
	for _, e := range r.hook.AllEntries() {
		if id, ok := e.Data["flow_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	require.Len(t, ids, 7)
	for _, id := range ids[1:6] {
		assert.Equal(t, ids[0], id)
	}
	assert.NotEqual(t, ids[0], ids[6], "a new flow gets a new id")
}

func TestKiosk_AdminCodeCollisionWarns(t *testing.T) {
	r := newMemoryRig(t, 4)

	r.enroll(cardA, adminCode)

	warned := false
	for _, e := range r.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["outcome"] == "enrolled" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestKiosk_ResetShowsIdle(t *testing.T) {
	r := newMemoryRig(t, 4)
	r.keys("12")

	r.kiosk.Reset()
	assert.Equal(t, "awaiting_code", r.kiosk.Status().State)

	cmds := r.rec.Commands()
	assert.Equal(t, feedback.Idle(), cmds[len(cmds)-3:])

	// The typed digits are gone after a reset.
	r.keys("34#")
	assert.Equal(t, "input_length", r.lastOutcome())
}

func TestKiosk_StartStop(t *testing.T) {
	r := newMemoryRig(t, 4)
	r.kiosk = service.NewKiosk(service.Dependencies{
		Poller:       input.NewArbiter(r.queue, r.queue, nil, nil),
		Machine:      mustMachine(t, r.table),
		Sink:         r.rec,
		Occupancy:    r.table,
		Logger:       logrus.New(),
		PollInterval: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.kiosk.Start(ctx)

	require.NoError(t, r.queue.PushKeys("1234#"))
	require.Eventually(t, func() bool {
		return r.kiosk.Status().State == "awaiting_credential"
	}, 2*time.Second, 5*time.Millisecond)

	r.kiosk.Stop()
	r.kiosk.Stop()

	select {
	case <-r.kiosk.Done():
	default:
		t.Fatal("loop should have exited")
	}
	positions := r.rec.GatePositions()
	assert.Equal(t, feedback.GateClosed, positions[len(positions)-1])
}

func mustMachine(t *testing.T, tbl *credential.Table) *session.Machine {
	t.Helper()
	m, err := session.NewMachine(tbl, session.Config{AdminCode: adminCode})
	require.NoError(t, err)
	return m
}

// ── Persistence ──────────────────────────────────────────────────────────────

func TestKiosk_SQLiteEnrollmentSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portunus.db")
	ctx := context.Background()
	size := credential.ImageSize(8)

	conn, err := db.Open(ctx, db.Config{Path: path, Logger: logrus.New()})
	require.NoError(t, err)
	w := db.NewWorker(conn)

	r := newRig(t, sqlitestore.NewMedium(conn, w, "", size), 8)
	r.enroll(cardA, "2468")
	require.Equal(t, "enrolled", r.lastOutcome())

	w.Close()
	require.NoError(t, conn.Close())

	conn, err = db.Open(ctx, db.Config{Path: path, Logger: logrus.New()})
	require.NoError(t, err)
	w = db.NewWorker(conn)
	t.Cleanup(func() {
		w.Close()
		conn.Close()
	})

	r = newRig(t, sqlitestore.NewMedium(conn, w, "", size), 8)
	assert.Equal(t, 1, r.kiosk.Status().ActiveRecords)

	r.keys("2468#")
	r.present(cardA)
	assert.Equal(t, "granted", r.lastOutcome())
}

// ── Seeding ──────────────────────────────────────────────────────────────────

func TestSeedCredentials(t *testing.T) {
	r := newMemoryRig(t, 4)
	logger, hook := test.NewNullLogger()

	err := service.SeedCredentials(context.Background(), r.table, []service.SeedCredential{
		{UID: "A581AA04", Code: "1234"},
		{UID: "a5:81:aa:04", Code: "4321"},
	}, logger)
	require.NoError(t, err)
	assert.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, 1, r.table.ActiveCount())

	r.keys("4321#")
	r.present(cardA)
	assert.Equal(t, "granted", r.lastOutcome())

	err = service.SeedCredentials(context.Background(), r.table, []service.SeedCredential{{UID: "zz", Code: "1234"}}, logger)
	assert.ErrorIs(t, err, types.ErrInvalidCredentialHex)

	err = service.SeedCredentials(context.Background(), r.table, []service.SeedCredential{{UID: "0102", Code: "1234"}}, logger)
	assert.ErrorIs(t, err, credential.ErrInvalidCredential)
}

// strictMedium refuses writes once ctx is done, like a driver honouring
// cancellation.
type strictMedium struct {
	*memory.Medium
}

func (m strictMedium) WriteAt(ctx context.Context, p []byte, off int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Medium.WriteAt(ctx, p, off)
}

func TestKiosk_EnrollmentFinishesAfterCancel(t *testing.T) {
	r := newRig(t, strictMedium{memory.New(credential.ImageSize(50))}, 50)

	r.keys(adminCode + "#")
	r.present(cardA)
	require.NoError(t, r.queue.PushKeys("1234#"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for r.kiosk.Step(ctx) {
	}

	assert.Equal(t, "enrolled", r.lastOutcome())
	_, ok := r.table.FindByCredentialID(cardA)
	assert.True(t, ok)
}
