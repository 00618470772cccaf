package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/feedback"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/session"
)

const DefaultPollInterval = 20 * time.Millisecond

// Poller yields at most one input event per call without blocking.
type Poller interface {
	Poll() (session.Event, bool)
}

// Occupancy reports how full the credential table is.
type Occupancy interface {
	ActiveCount() int
	Capacity() int
}

// Status is a point-in-time view of the kiosk, safe to read from any
// goroutine.
type Status struct {
	State         string    `json:"state"`
	ActiveRecords int       `json:"active_records"`
	Capacity      int       `json:"capacity"`
	Steps         uint64    `json:"steps"`
	LastOutcome   string    `json:"last_outcome,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Dependencies struct {
	Poller       Poller
	Machine      *session.Machine
	Sink         feedback.Sink
	Occupancy    Occupancy
	Logger       logrus.FieldLogger
	PollInterval time.Duration
}

// Kiosk runs the cooperative loop: poll once, feed at most one event to the
// state machine, execute the resulting feedback to completion, repeat.
// Session state lives only on the loop goroutine.
type Kiosk struct {
	poller    Poller
	machine   *session.Machine
	sink      feedback.Sink
	occupancy Occupancy
	logger    logrus.FieldLogger
	interval  time.Duration

	state  session.State
	flowID string
	steps  uint64

	status atomic.Pointer[Status]
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKiosk(d Dependencies) *Kiosk {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	k := &Kiosk{
		poller:    d.Poller,
		machine:   d.Machine,
		sink:      d.Sink,
		occupancy: d.Occupancy,
		logger:    logger,
		interval:  interval,
		state:     session.Initial(),
		done:      make(chan struct{}),
	}
	k.publish("")
	return k
}

// Reset puts every output at rest and the session at its initial state.
func (k *Kiosk) Reset() {
	k.state = session.Initial()
	k.flowID = ""
	k.sink.Execute(feedback.Idle()...)
	k.publish("")
}

// Step runs one loop iteration and reports whether an event was consumed.
// It must only be called from the loop goroutine (or a test standing in
// for it).
func (k *Kiosk) Step(ctx context.Context) bool {
	ev, ok := k.poller.Poll()
	if !ok {
		return false
	}

	if session.IsIdle(k.state) {
		k.flowID = uuid.NewString()
	}
	log := k.logger.WithFields(logrus.Fields{"flow_id": k.flowID, "from": k.state.Name()})

	// A transition and its feedback run to completion even during shutdown.
	res := k.machine.Transition(context.WithoutCancel(ctx), k.state, ev)
	k.state = res.Next
	k.steps++

	k.report(log, res)
	k.sink.Execute(res.Commands...)

	if session.IsIdle(k.state) {
		k.flowID = ""
	}
	k.publish(res.Outcome.String())
	return true
}

func (k *Kiosk) report(log logrus.FieldLogger, res session.Result) {
	log = log.WithFields(logrus.Fields{"to": res.Next.Name(), "outcome": res.Outcome.String()})
	if res.Credential != nil {
		log = log.WithField("credential", res.Credential.String())
	}

	switch res.Outcome {
	case session.OutcomeGranted:
		log.WithField("slot", res.Slot).Info("access granted")
	case session.OutcomeDenied:
		log.Info("access denied")
	case session.OutcomeEnrolled:
		log.WithField("slot", res.Slot).Info("credential enrolled")
		if res.AdminCodeEnrolled {
			log.Warn("enrolled code equals the admin code; this credential can never authenticate")
		}
	case session.OutcomeStorageFull:
		log.Warn("enrollment rejected: storage full")
	case session.OutcomeInvalidCredential, session.OutcomeStorageError:
		log.WithError(res.Err).Error("enrollment failed")
	case session.OutcomeIgnored, session.OutcomeDigitAccepted, session.OutcomeDigitRejected, session.OutcomeCleared:
		log.Debug("input")
	default:
		log.Info("transition")
	}
}

func (k *Kiosk) publish(outcome string) {
	st := &Status{
		State:       k.state.Name(),
		Steps:       k.steps,
		LastOutcome: outcome,
		UpdatedAt:   time.Now().UTC(),
	}
	if k.occupancy != nil {
		st.ActiveRecords = k.occupancy.ActiveCount()
		st.Capacity = k.occupancy.Capacity()
	}
	k.status.Store(st)
}

// Status returns the snapshot published after the last step.
func (k *Kiosk) Status() Status {
	return *k.status.Load()
}

// Start resets the outputs and runs the loop on its own goroutine until
// ctx is cancelled or Stop is called.
func (k *Kiosk) Start(ctx context.Context) {
	ctx, k.cancel = context.WithCancel(ctx)
	k.Reset()
	go k.loop(ctx)

	k.logger.WithField("poll_interval", k.interval.String()).Info("kiosk loop started")
}

// Stop signals the loop to exit and waits for it.  A feedback sequence in
// progress finishes first.
func (k *Kiosk) Stop() {
	if k.cancel != nil {
		k.cancel()
		<-k.done
	}
}

// Done is closed when the loop has exited.
func (k *Kiosk) Done() <-chan struct{} { return k.done }

func (k *Kiosk) loop(ctx context.Context) {
	defer close(k.done)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.sink.Execute(feedback.SetGate{Position: feedback.GateClosed})
			k.logger.Info("kiosk loop stopped")
			return
		case <-ticker.C:
			k.Step(ctx)
		}
	}
}
