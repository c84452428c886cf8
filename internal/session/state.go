package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/docketapp/docket/internal/bus"
)

// State represents the session lifecycle state.
type State string

const (
	// SignedOut: no identity; the auth view gates the application.
	SignedOut State = "SIGNED_OUT"
	// Authenticating: a sign-in (interactive or silent) is in flight.
	Authenticating State = "AUTHENTICATING"
	// NeedsProfile: identity present but no profile document exists yet;
	// onboarding gates the rest of the application.
	NeedsProfile State = "NEEDS_PROFILE"
	// Ready: identity and profile resolved; the dashboard is available.
	Ready State = "READY"
)

var validTransitions = map[State][]State{
	SignedOut:      {Authenticating},
	Authenticating: {NeedsProfile, Ready, SignedOut},
	NeedsProfile:   {Ready, SignedOut},
	Ready:          {SignedOut},
}

// StateChange is the payload of session state events.
type StateChange struct {
	From State
	To   State
}

// machine tracks and enforces session state transitions, publishing each
// transition on the bus.
type machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

func newMachine(b *bus.Bus) *machine {
	return &machine{current: SignedOut, bus: b}
}

func (m *machine) state() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *machine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid session transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindSessionChanged,
			Timestamp: time.Now(),
			Payload:   StateChange{From: from, To: to},
		})
	}
	return nil
}
