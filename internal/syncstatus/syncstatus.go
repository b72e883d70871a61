package syncstatus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the connection/write state shown to the user.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSynced       State = "synced"
	StateSyncing      State = "syncing"
	StateError        State = "error"
)

// Label is the indicator text for the state.
func (s State) Label() string {
	switch s {
	case StateSynced:
		return "Synced"
	case StateSyncing:
		return "Saving..."
	case StateError:
		return "Offline"
	case StateConnecting:
		return "Connecting..."
	default:
		return "Disconnected"
	}
}

// ErrInvalidTransition is returned when a state change is not allowed from
// the current state.
var ErrInvalidTransition = errors.New("invalid sync status transition")

// DefaultTimeout bounds how long the machine may stay connecting.
const DefaultTimeout = 8 * time.Second

var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateSynced, StateSyncing, StateError},
	StateSynced:       {StateSyncing, StateError},
	StateSyncing:      {StateSynced, StateError},
	StateError:        {StateConnecting, StateSynced, StateSyncing},
}

func allowed(from, to State) bool {
	if to == StateError {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is a point-in-time view of the machine.
type Status struct {
	State   State     `json:"state"`
	Label   string    `json:"label"`
	Error   string    `json:"error,omitempty"`
	Pending int       `json:"pending"`
	Since   time.Time `json:"since"`
}

// Callback is invoked after every state change, in order. Callbacks must not
// call back into the machine.
type Callback func(Status)

// Machine tracks sync status. It carries no data and never affects what is
// stored; it only reports whether the last action is durably persisted.
type Machine struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	status    Status
	timeout   time.Duration
	watchdog  *time.Timer
	armed     uint64
	epoch     uint64
	listeners []Callback
	logger    *slog.Logger
}

// New creates a Machine in the disconnected state. A non-positive timeout
// uses DefaultTimeout.
func New(timeout time.Duration, logger *slog.Logger) *Machine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		status:  Status{State: StateDisconnected, Label: StateDisconnected.Label(), Since: time.Now()},
		timeout: timeout,
		logger:  logger,
	}
}

// OnChange registers a callback for state changes.
func (m *Machine) OnChange(cb Callback) {
	m.mu.Lock()
	m.listeners = append(m.listeners, cb)
	m.mu.Unlock()
}

// Status returns the current status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect enters connecting and arms the watchdog. If nothing confirms the
// connection before the timeout, the machine moves to error.
func (m *Machine) Connect() error {
	m.mu.Lock()
	if err := m.setLocked(StateConnecting, ""); err != nil {
		m.mu.Unlock()
		return err
	}
	m.armed++
	gen := m.armed
	m.watchdog = time.AfterFunc(m.timeout, func() { m.expire(gen) })
	m.notifyAndUnlock()
	return nil
}

// Confirm records that the store delivered a snapshot. With no writes in
// flight the machine is synced.
func (m *Machine) Confirm() error {
	m.mu.Lock()
	if m.status.Pending > 0 || m.status.State == StateSynced {
		m.mu.Unlock()
		return nil
	}
	if err := m.setLocked(StateSynced, ""); err != nil {
		m.mu.Unlock()
		return err
	}
	m.notifyAndUnlock()
	return nil
}

// Write identifies one write in flight. It is handed back to EndWrite.
type Write struct {
	epoch   uint64
	counted bool
}

// BeginWrite records a write in flight. The returned Write is valid even when
// the transition is rejected; ending it then only reports failures.
func (m *Machine) BeginWrite() (Write, error) {
	m.mu.Lock()
	if m.status.State != StateSyncing {
		if err := m.setLocked(StateSyncing, ""); err != nil {
			w := Write{epoch: m.epoch}
			m.mu.Unlock()
			return w, err
		}
	}
	m.status.Pending++
	w := Write{epoch: m.epoch, counted: true}
	m.notifyAndUnlock()
	return w, nil
}

// EndWrite records a finished write. A failed write moves to error; the last
// successful write in flight moves to synced. Writes begun before the most
// recent error no longer count toward Pending, so their success changes
// nothing.
func (m *Machine) EndWrite(w Write, err error) {
	m.mu.Lock()
	current := w.counted && w.epoch == m.epoch
	if err == nil && !current {
		m.mu.Unlock()
		return
	}
	if current && m.status.Pending > 0 {
		m.status.Pending--
	}
	switch {
	case err != nil:
		m.setLocked(StateError, err.Error())
	case m.status.Pending == 0 && m.status.State == StateSyncing:
		m.setLocked(StateSynced, "")
	}
	m.notifyAndUnlock()
}

// Fail moves to error from any state.
func (m *Machine) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.mu.Lock()
	m.setLocked(StateError, msg)
	m.notifyAndUnlock()
}

// Stop disarms the watchdog.
func (m *Machine) Stop() {
	m.mu.Lock()
	m.stopWatchdogLocked()
	m.mu.Unlock()
}

func (m *Machine) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.armed || m.status.State != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.logger.Warn("sync connection timed out", "timeout", m.timeout)
	m.setLocked(StateError, fmt.Sprintf("no response within %s", m.timeout))
	m.notifyAndUnlock()
}

func (m *Machine) setLocked(to State, errMsg string) error {
	from := m.status.State
	if !allowed(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if from == StateConnecting && to != StateConnecting {
		m.stopWatchdogLocked()
	}
	if to == StateError {
		// Writes still in flight belong to the previous epoch.
		m.status.Pending = 0
		m.epoch++
	}
	m.status.State = to
	m.status.Label = to.Label()
	m.status.Error = errMsg
	m.status.Since = time.Now()
	if from != to {
		m.logger.Debug("sync status", "from", from, "to", to)
	}
	return nil
}

func (m *Machine) stopWatchdogLocked() {
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
}

// notifyAndUnlock hands the current status to listeners. notifyMu is taken
// before mu is released so callbacks observe changes in order.
func (m *Machine) notifyAndUnlock() {
	s := m.status
	listeners := append([]Callback(nil), m.listeners...)
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	for _, cb := range listeners {
		cb(s)
	}
}
