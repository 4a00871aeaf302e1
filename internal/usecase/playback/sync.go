// Package playback keeps the active transcript segment in step with an audio
// position.
package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// Tolerance extends each segment past its end when no segment strictly
// contains the position, so the highlight does not flicker across gaps
const Tolerance = 0.1

// State is the player state
type State string

const (
	StateStopped State = "STOPPED"
	StatePlaying State = "PLAYING"
	StatePaused  State = "PAUSED"
)

// ErrInvalidTransition is returned for a command the current state does not allow
var ErrInvalidTransition = errors.New("invalid playback transition")

// EventType identifies what an Event reports
type EventType string

const (
	EventActiveChanged EventType = "active_changed"
	EventOverlap       EventType = "overlap"
	EventStateChanged  EventType = "state_changed"
)

// Event is delivered to listeners after the state it describes is in place
type Event struct {
	Type     EventType
	Active   *entities.Segment
	Previous *uuid.UUID
	State    State
	Position float64
	// Overlapping lists every segment strictly containing the position
	Overlapping []uuid.UUID
}

// Listener receives playback events
type Listener func(Event)

// Sync tracks the player state and the active segment
type Sync struct {
	mu        sync.Mutex
	state     State
	position  float64
	segments  []entities.Segment
	active    *entities.Segment
	listeners []Listener
}

// NewSync creates a stopped player over a sorted segment list
func NewSync(segments []entities.Segment) *Sync {
	return &Sync{
		state:    StateStopped,
		segments: append([]entities.Segment(nil), segments...),
	}
}

// Subscribe registers a listener
func (s *Sync) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns the current state
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the last known position in seconds
func (s *Sync) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Active returns the active segment, nil when none
func (s *Sync) Active() *entities.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	seg := *s.active
	return &seg
}

// Play starts or resumes playback
func (s *Sync) Play() error {
	return s.transition(StatePlaying, StateStopped, StatePaused)
}

// Pause pauses playback
func (s *Sync) Pause() error {
	return s.transition(StatePaused, StatePlaying)
}

// Stop stops playback, rewinds and clears the active segment
func (s *Sync) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, StateStopped)
	}
	events := s.reset()
	listeners := s.listeners
	s.mu.Unlock()

	dispatch(listeners, events)
	return nil
}

// Ended is called when the media reaches its end
func (s *Sync) Ended() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	events := s.reset()
	listeners := s.listeners
	s.mu.Unlock()

	dispatch(listeners, events)
}

// OnPosition records a new position and re-derives the active segment
func (s *Sync) OnPosition(t float64) {
	s.mu.Lock()
	s.position = t
	events := s.resolveLocked()
	listeners := s.listeners
	s.mu.Unlock()

	dispatch(listeners, events)
}

// SeekToSegment jumps to the start of seg and makes it active immediately
func (s *Sync) SeekToSegment(seg entities.Segment) {
	s.mu.Lock()
	s.position = seg.StartTime
	var events []Event
	if s.active == nil || s.active.ID != seg.ID {
		events = append(events, s.setActive(&seg))
	}
	listeners := s.listeners
	s.mu.Unlock()

	dispatch(listeners, events)
}

// SetSegments replaces the committed list and re-derives the active segment
func (s *Sync) SetSegments(segments []entities.Segment) {
	s.mu.Lock()
	s.segments = append([]entities.Segment(nil), segments...)
	var events []Event
	if s.state != StateStopped || s.active != nil {
		events = s.resolveLocked()
	}
	listeners := s.listeners
	s.mu.Unlock()

	dispatch(listeners, events)
}

// Resolution is the outcome of matching a position against segments
type Resolution struct {
	Active      *entities.Segment
	Overlapping []uuid.UUID
}

// Resolve finds the segment active at t. A segment strictly containing t
// wins, the first by sort order when several do. Otherwise the first segment
// whose range extended by Tolerance contains t is used.
func Resolve(segments []entities.Segment, t float64) Resolution {
	var res Resolution
	for i := range segments {
		seg := segments[i]
		if seg.StartTime <= t && t < seg.EndTime {
			if res.Active == nil {
				res.Active = &segments[i]
			}
			res.Overlapping = append(res.Overlapping, seg.ID)
		}
	}
	if res.Active != nil {
		if len(res.Overlapping) < 2 {
			res.Overlapping = nil
		}
		return res
	}
	for i := range segments {
		seg := segments[i]
		if seg.StartTime <= t && t < seg.EndTime+Tolerance {
			res.Active = &segments[i]
			return res
		}
	}
	return res
}

func (s *Sync) transition(to State, from ...State) error {
	s.mu.Lock()
	allowed := false
	for _, f := range from {
		if s.state == f {
			allowed = true
			break
		}
	}
	if !allowed {
		current := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, to)
	}
	s.state = to
	ev := Event{Type: EventStateChanged, State: to, Position: s.position}
	listeners := s.listeners
	s.mu.Unlock()

	dispatch(listeners, []Event{ev})
	return nil
}

func (s *Sync) reset() []Event {
	s.state = StateStopped
	s.position = 0
	events := []Event{{Type: EventStateChanged, State: StateStopped}}
	if s.active != nil {
		events = append(events, s.setActive(nil))
	}
	return events
}

func (s *Sync) resolveLocked() []Event {
	res := Resolve(s.segments, s.position)
	var events []Event
	if len(res.Overlapping) > 1 {
		events = append(events, Event{
			Type:        EventOverlap,
			State:       s.state,
			Position:    s.position,
			Overlapping: res.Overlapping,
		})
	}
	switch {
	case res.Active == nil && s.active == nil:
	case res.Active != nil && s.active != nil && res.Active.ID == s.active.ID:
		// same segment, refresh content after edits without an event
		seg := *res.Active
		s.active = &seg
	default:
		events = append(events, s.setActive(res.Active))
	}
	return events
}

func (s *Sync) setActive(seg *entities.Segment) Event {
	var prev *uuid.UUID
	if s.active != nil {
		id := s.active.ID
		prev = &id
	}
	if seg == nil {
		s.active = nil
	} else {
		cp := *seg
		s.active = &cp
	}
	ev := Event{Type: EventActiveChanged, Previous: prev, State: s.state, Position: s.position}
	if s.active != nil {
		cp := *s.active
		ev.Active = &cp
	}
	return ev
}

func dispatch(listeners []Listener, events []Event) {
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
