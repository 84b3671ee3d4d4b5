package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/promeg/multichannel/internal/bus"
)

// State is one step of a single channel resolution.
type State string

const (
	Start         State = "START"
	CacheHit      State = "CACHE_HIT"
	CacheMiss     State = "CACHE_MISS"
	ArchiveScan   State = "ARCHIVE_SCAN"
	EntryFound    State = "ENTRY_FOUND"
	LineRead      State = "LINE_READ"
	NonEmpty      State = "NON_EMPTY"
	Empty         State = "EMPTY"
	EntryNotFound State = "ENTRY_NOT_FOUND"
	ArchiveError  State = "ARCHIVE_ERROR"
)

// EventStateChanged is published on every accepted transition.
const EventStateChanged = "channel.state_changed"

var validTransitions = map[State][]State{
	Start:       {CacheHit, CacheMiss},
	CacheMiss:   {ArchiveScan},
	ArchiveScan: {EntryFound, EntryNotFound, ArchiveError},
	EntryFound:  {LineRead, ArchiveError},
	LineRead:    {NonEmpty, Empty},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Machine tracks the states visited by one resolution call.
type Machine struct {
	mu      sync.RWMutex
	current State
	history []State
	bus     *bus.Bus
}

// NewMachine creates a machine in the Start state. b may be nil.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Start,
		history: []State{Start},
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns every state visited so far, oldest first.
func (m *Machine) History() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.history)
}

// Transition moves to a new state. Returns error if the move is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.history = append(m.history, to)
	m.bus.Publish(bus.NewEvent(EventStateChanged, StatusChange{From: from, To: to}))
	return nil
}

// StatusChange is the payload for state change events.
type StatusChange struct {
	From State
	To   State
}
