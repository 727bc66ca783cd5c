// Package session holds the picker's visibility, mode cycle, query and
// selection, and tells subscribers when any of them change.
package session

import (
	"slices"
	"sync"

	zlaunch "github.com/zortax/zlaunch"
)

// EventKind tells subscribers what an Event carries.
type EventKind int

const (
	// EventState is sent after every transition.
	EventState EventKind = iota
	// EventResults carries results published for the current generation.
	EventResults
)

// Event is delivered to subscribers.
type Event struct {
	Kind    EventKind
	State   zlaunch.State
	Results []zlaunch.Result
}

const subscriberBuffer = 64

// Session is the single picker state of a daemon. All methods are safe for
// concurrent use; no method blocks on subscribers.
type Session struct {
	mu        sync.Mutex
	visible   bool
	modes     []zlaunch.Mode
	active    int
	query     string
	selection int
	gen       uint64

	defaults []zlaunch.Mode
	sticky   bool

	subscribers map[chan Event]struct{}
}

// New creates a hidden session. An empty defaultModes means combined.
func New(defaultModes []zlaunch.Mode, sticky bool) *Session {
	s := &Session{subscribers: make(map[chan Event]struct{})}
	s.defaults = normalize(defaultModes)
	s.sticky = sticky
	s.modes = slices.Clone(s.defaults)
	return s
}

func normalize(modes []zlaunch.Mode) []zlaunch.Mode {
	var out []zlaunch.Mode
	for _, m := range modes {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return []zlaunch.Mode{zlaunch.ModeCombined}
	}
	return out
}

// Reconfigure replaces the default modes and sticky policy. A visible
// session keeps its current cycle list.
func (s *Session) Reconfigure(defaultModes []zlaunch.Mode, sticky bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = normalize(defaultModes)
	s.sticky = sticky
}

// Snapshot returns the current state.
func (s *Session) Snapshot() zlaunch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Generation returns the current generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Show makes the picker visible with modes as the cycle list, or the
// default modes when none are given. The first mode becomes active.
func (s *Session) Show(modes []zlaunch.Mode) zlaunch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showLocked(modes)
	return s.commitLocked()
}

func (s *Session) showLocked(modes []zlaunch.Mode) {
	if len(modes) == 0 {
		s.modes = slices.Clone(s.defaults)
	} else {
		s.modes = normalize(modes)
	}
	s.active = 0
	s.selection = 0
	if !s.sticky {
		s.query = ""
	}
	s.visible = true
}

// Hide hides the picker. The query is cleared unless sticky. Hiding a
// hidden session changes nothing.
func (s *Session) Hide() zlaunch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return s.stateLocked()
	}
	s.hideLocked()
	return s.commitLocked()
}

func (s *Session) hideLocked() {
	s.visible = false
	s.selection = 0
	if !s.sticky {
		s.query = ""
	}
}

// Toggle shows a hidden picker. A visible picker is hidden, unless modes
// differ from the current cycle list, in which case it is retargeted.
func (s *Session) Toggle(modes []zlaunch.Mode) zlaunch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.visible:
		s.showLocked(modes)
	case len(modes) > 0 && !slices.Equal(normalize(modes), s.modes):
		s.showLocked(modes)
	default:
		s.hideLocked()
	}
	return s.commitLocked()
}

func errHidden(op string) error {
	return zlaunch.Validationf("%s: picker is hidden", op)
}

// NextMode activates the next mode in the cycle list, wrapping around.
func (s *Session) NextMode() (zlaunch.State, error) {
	return s.rotate("next-mode", 1)
}

// PrevMode activates the previous mode in the cycle list, wrapping around.
func (s *Session) PrevMode() (zlaunch.State, error) {
	return s.rotate("prev-mode", -1)
}

func (s *Session) rotate(op string, step int) (zlaunch.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return s.stateLocked(), errHidden(op)
	}
	if len(s.modes) < 2 {
		return s.stateLocked(), nil
	}
	n := len(s.modes)
	s.active = ((s.active+step)%n + n) % n
	s.selection = 0
	return s.commitLocked(), nil
}

// SetQuery replaces the query text and resets the selection.
func (s *Session) SetQuery(text string) (zlaunch.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return s.stateLocked(), errHidden("set-query")
	}
	if text == s.query {
		return s.stateLocked(), nil
	}
	s.query = text
	s.selection = 0
	return s.commitLocked(), nil
}

// SetSelection moves the selection cursor. It does not bump the
// generation.
func (s *Session) SetSelection(i int) (zlaunch.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return s.stateLocked(), errHidden("select")
	}
	if i < 0 {
		return s.stateLocked(), zlaunch.Validationf("selection %d out of range", i)
	}
	s.selection = i
	st := s.stateLocked()
	s.broadcastLocked(Event{Kind: EventState, State: st})
	return st, nil
}

// PublishResults delivers results computed for generation gen. Results for
// a superseded generation are dropped and false is returned.
func (s *Session) PublishResults(gen uint64, results []zlaunch.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.broadcastLocked(Event{Kind: EventResults, State: s.stateLocked(), Results: results})
	return true
}

// Subscribe returns a channel of events. Slow subscribers miss events
// rather than stall the session.
func (s *Session) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Session) Unsubscribe(sub <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		if ch == sub {
			delete(s.subscribers, ch)
			close(ch)
			return
		}
	}
}

// commitLocked bumps the generation and notifies subscribers.
func (s *Session) commitLocked() zlaunch.State {
	s.gen++
	st := s.stateLocked()
	s.broadcastLocked(Event{Kind: EventState, State: st})
	return st
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) stateLocked() zlaunch.State {
	return zlaunch.State{
		Visible:    s.visible,
		Mode:       s.modes[s.active],
		Modes:      slices.Clone(s.modes),
		Query:      s.query,
		Selection:  s.selection,
		Generation: s.gen,
	}
}
