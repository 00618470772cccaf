package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/credential"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/feedback"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

// DefaultAdminCode is the sentinel code that opens the enrollment flow.
const DefaultAdminCode = "9999"

// CredentialStore is the part of credential.Table the machine uses.
type CredentialStore interface {
	FindByCredentialID(id types.CredentialID) (int, bool)
	ReadSlot(slot int) (types.Record, error)
	Upsert(ctx context.Context, id types.CredentialID, code string) (int, error)
}

type Config struct {
	AdminCode string
	Timings   feedback.Timings
}

// Result is everything a transition produced.  Commands must be executed
// in order before the next event is fed in.
type Result struct {
	Next     State
	Commands []feedback.Command
	Outcome  Outcome

	// Set for granted, denied, captured and enrollment outcomes.
	Credential types.CredentialID
	Slot       int

	// Err carries the store error behind OutcomeStorageError and
	// OutcomeInvalidCredential.
	Err error

	// AdminCodeEnrolled is set when an enrollment stored the admin
	// sentinel as a user code.  That user can never authenticate, since
	// entering the code always opens the admin flow.
	AdminCodeEnrolled bool
}

// Machine maps (state, event) to (next state, feedback).  It holds no
// session data of its own; the caller threads State through every call.
type Machine struct {
	store CredentialStore
	cfg   Config
}

func NewMachine(st CredentialStore, cfg Config) (*Machine, error) {
	if cfg.AdminCode == "" {
		cfg.AdminCode = DefaultAdminCode
	}
	if !types.IsValidCode(cfg.AdminCode) {
		return nil, fmt.Errorf("admin code must be %d digits", types.CodeLength)
	}
	if cfg.Timings == (feedback.Timings{}) {
		cfg.Timings = feedback.DefaultTimings()
	}
	return &Machine{store: st, cfg: cfg}, nil
}

func (m *Machine) Transition(ctx context.Context, s State, ev Event) Result {
	switch st := s.(type) {
	case AwaitingCode:
		return m.awaitingCode(st, ev)
	case AwaitingCredential:
		return m.awaitingCredential(st, ev)
	case AdminAwaitingCredential:
		return m.adminAwaitingCredential(st, ev)
	case AdminAwaitingCode:
		return m.adminAwaitingCode(ctx, st, ev)
	}
	return Result{Next: Initial(), Commands: feedback.Idle()}
}

func ignore(s State) Result {
	return Result{Next: s, Outcome: OutcomeIgnored}
}

type edit int

const (
	editIgnored edit = iota
	editAppended
	editRejected
	editCleared
	editSubmitted
)

// editCode applies the shared keypad policy to a code buffer.
func editCode(buf string, sym types.Symbol) (string, edit) {
	switch {
	case sym.IsDigit():
		if len(buf) >= types.CodeLength {
			return buf, editRejected
		}
		return buf + sym.String(), editAppended
	case sym == types.SymbolClear:
		return "", editCleared
	case sym == types.SymbolSubmit:
		return buf, editSubmitted
	}
	return buf, editIgnored
}

func (m *Machine) awaitingCode(st AwaitingCode, ev Event) Result {
	sp, ok := ev.(SymbolPressed)
	if !ok {
		return ignore(st)
	}

	buf, e := editCode(st.Code, sp.Symbol)
	switch e {
	case editAppended:
		return Result{
			Next:     AwaitingCode{Code: buf},
			Commands: []feedback.Command{feedback.ToneKeyAck, feedback.ShowScreen{Screen: feedback.EnterCode(buf)}},
			Outcome:  OutcomeDigitAccepted,
		}
	case editRejected:
		return Result{Next: st, Commands: []feedback.Command{feedback.ToneKeyReject}, Outcome: OutcomeDigitRejected}
	case editCleared:
		return Result{
			Next:     AwaitingCode{},
			Commands: []feedback.Command{feedback.ShowScreen{Screen: feedback.EnterCode("")}},
			Outcome:  OutcomeCleared,
		}
	case editSubmitted:
		return m.submitCode(buf)
	}
	return ignore(st)
}

func (m *Machine) submitCode(code string) Result {
	if len(code) != types.CodeLength {
		return Result{
			Next:     Initial(),
			Commands: m.cfg.Timings.Failure(feedback.TransientMessage("Invalid code", "Use 4 digits", 0)),
			Outcome:  OutcomeInputLength,
		}
	}

	if code == m.cfg.AdminCode {
		return Result{
			Next:     AdminAwaitingCredential{},
			Commands: []feedback.Command{feedback.ShowScreen{Screen: feedback.AdminScanCredential()}},
			Outcome:  OutcomeAdminEntered,
		}
	}

	return Result{
		Next:     AwaitingCredential{Code: code},
		Commands: []feedback.Command{feedback.ShowScreen{Screen: feedback.ScanCredential()}},
		Outcome:  OutcomeAwaitingCredential,
	}
}

func (m *Machine) awaitingCredential(st AwaitingCredential, ev Event) Result {
	cp, ok := ev.(CredentialPresented)
	if !ok {
		return ignore(st)
	}

	id := cp.ID.Clone()
	if slot, found := m.store.FindByCredentialID(id); found {
		rec, err := m.store.ReadSlot(slot)
		if err == nil && rec.Active && rec.Code == st.Code {
			return Result{
				Next:       Initial(),
				Commands:   m.cfg.Timings.Success(),
				Outcome:    OutcomeGranted,
				Credential: id,
				Slot:       slot,
			}
		}
	}

	return Result{
		Next:       Initial(),
		Commands:   m.cfg.Timings.Failure(feedback.AccessDenied()),
		Outcome:    OutcomeDenied,
		Credential: id,
		Slot:       -1,
	}
}

func (m *Machine) adminAwaitingCredential(st AdminAwaitingCredential, ev Event) Result {
	switch ev := ev.(type) {
	case SymbolPressed:
		if ev.Symbol != types.SymbolClear {
			return ignore(st)
		}
		return Result{
			Next:     Initial(),
			Commands: []feedback.Command{feedback.ShowScreen{Screen: feedback.EnterCode("")}},
			Outcome:  OutcomeAdminAborted,
		}

	case CredentialPresented:
		id := ev.ID.Clone()
		return Result{
			Next: AdminAwaitingCode{Pending: id},
			Commands: []feedback.Command{
				feedback.ToneKeyAck,
				feedback.ShowScreen{Screen: feedback.AdminEnterCode("")},
			},
			Outcome:    OutcomeCredentialCaptured,
			Credential: id,
			Slot:       -1,
		}
	}
	return ignore(st)
}

func (m *Machine) adminAwaitingCode(ctx context.Context, st AdminAwaitingCode, ev Event) Result {
	sp, ok := ev.(SymbolPressed)
	if !ok {
		return ignore(st)
	}

	buf, e := editCode(st.Code, sp.Symbol)
	switch e {
	case editAppended:
		return Result{
			Next:     AdminAwaitingCode{Pending: st.Pending, Code: buf},
			Commands: []feedback.Command{feedback.ToneKeyAck, feedback.ShowScreen{Screen: feedback.AdminEnterCode(buf)}},
			Outcome:  OutcomeDigitAccepted,
		}
	case editRejected:
		return Result{Next: st, Commands: []feedback.Command{feedback.ToneKeyReject}, Outcome: OutcomeDigitRejected}
	case editCleared:
		return Result{
			Next:     AdminAwaitingCode{Pending: st.Pending},
			Commands: []feedback.Command{feedback.ShowScreen{Screen: feedback.AdminEnterCode("")}},
			Outcome:  OutcomeCleared,
		}
	case editSubmitted:
		return m.enroll(ctx, st.Pending, buf)
	}
	return ignore(st)
}

func (m *Machine) enroll(ctx context.Context, pending types.CredentialID, code string) Result {
	t := m.cfg.Timings

	if len(code) != types.CodeLength {
		return Result{
			Next:     AdminAwaitingCode{Pending: pending},
			Commands: t.Message("Need 4 digits", "", feedback.AdminEnterCode("")),
			Outcome:  OutcomeInputLength,
		}
	}

	res := Result{Next: Initial(), Credential: pending, Slot: -1}

	slot, err := m.store.Upsert(ctx, pending, code)
	switch {
	case err == nil:
		res.Outcome = OutcomeEnrolled
		res.Slot = slot
		res.AdminCodeEnrolled = code == m.cfg.AdminCode
		res.Commands = t.Message("Saved", fmt.Sprintf("Slot %d", slot), feedback.EnterCode(""))
	case errors.Is(err, credential.ErrStorageFull):
		res.Outcome = OutcomeStorageFull
		res.Commands = t.Message("Storage full", "Not saved", feedback.EnterCode(""))
	case errors.Is(err, credential.ErrInvalidCredential), errors.Is(err, credential.ErrInvalidCode):
		res.Outcome = OutcomeInvalidCredential
		res.Err = err
		res.Commands = t.Message("Invalid card", "Not saved", feedback.EnterCode(""))
	default:
		res.Outcome = OutcomeStorageError
		res.Err = err
		res.Commands = t.Message("Storage error", "Not saved", feedback.EnterCode(""))
	}
	return res
}
