package dispatcher

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"go-elevator-dispatch/pkg/elevator"
)

// EventIdle is published when the last pending request has been served.
const EventIdle elevator.EventType = "DispatcherIdle"

// DefaultPollInterval is the dispatch loop period used when Config.PollInterval is zero.
const DefaultPollInterval = 100 * time.Millisecond

var (
	// ErrNoPendingRequests means NextFloor was asked to choose from nothing.
	ErrNoPendingRequests = errors.New("no pending requests")
	// ErrInvalidDirection rejects hall calls that are neither Up nor Down.
	ErrInvalidDirection = errors.New("hall call direction must be Up or Down")
)

// ExternalCall is a hall request. Calls at the same floor in different
// directions are distinct requests.
// ExternalCall은 층과 방향으로 구분되는 승강장 호출입니다.
type ExternalCall struct {
	Floor     int
	Direction elevator.Direction
}

// Stop is a pending floor as seen by the next-floor rule. Heading is the sweep
// direction the stop belongs to, or DirNone if any sweep may serve it.
type Stop struct {
	Floor   int
	Heading elevator.Direction
}

// Config holds dispatcher tuning.
type Config struct {
	ID           string
	PollInterval time.Duration
	// ForwardSelections makes Select redirect a moving car the same way Call
	// does. Off by default: selections wait for the dispatch loop.
	ForwardSelections bool
}

// Snapshot is a copy of the pending requests, sorted by floor.
type Snapshot struct {
	Calls        []ExternalCall
	Selections   []Stop
	LastAttended *ExternalCall
}

// Floors returns the distinct pending floors in ascending order.
func (s Snapshot) Floors() []int {
	var floors []int
	for _, c := range s.Calls {
		floors = append(floors, c.Floor)
	}
	for _, sel := range s.Selections {
		floors = append(floors, sel.Floor)
	}
	slices.Sort(floors)
	return slices.Compact(floors)
}

// requestState is the lock-guarded request store. Fields are exported so the
// whole value can be deep-copied.
type requestState struct {
	Calls        map[ExternalCall]bool
	Selections   map[int]elevator.Direction
	LastAttended *ExternalCall
}

func newRequestState() requestState {
	return requestState{
		Calls:      make(map[ExternalCall]bool),
		Selections: make(map[int]elevator.Direction),
	}
}

func (s *requestState) empty() bool {
	return len(s.Calls) == 0 && len(s.Selections) == 0
}

func (s *requestState) has(floor int) bool {
	if _, ok := s.Selections[floor]; ok {
		return true
	}
	return s.Calls[ExternalCall{Floor: floor, Direction: elevator.DirUp}] ||
		s.Calls[ExternalCall{Floor: floor, Direction: elevator.DirDown}]
}

// stops flattens both request sets for NextFloor.
func (s *requestState) stops() []Stop {
	stops := make([]Stop, 0, len(s.Calls)+len(s.Selections))
	for c := range s.Calls {
		stops = append(stops, Stop{Floor: c.Floor, Heading: c.Direction})
	}
	for f, h := range s.Selections {
		stops = append(stops, Stop{Floor: f, Heading: h})
	}
	return stops
}

// clear removes every request at floor and returns how many were removed.
func (s *requestState) clear(floor int) int {
	n := 0
	for c := range s.Calls {
		if c.Floor == floor {
			delete(s.Calls, c)
			n++
		}
	}
	if _, ok := s.Selections[floor]; ok {
		delete(s.Selections, floor)
		n++
	}
	if s.LastAttended != nil && s.LastAttended.Floor == floor {
		s.LastAttended = nil
	}
	return n
}

// callAt returns the hall call at floor, preferring the one heading dir.
func (s *requestState) callAt(floor int, dir elevator.Direction) *ExternalCall {
	preferred := ExternalCall{Floor: floor, Direction: dir}
	if s.Calls[preferred] {
		return &preferred
	}
	for _, d := range []elevator.Direction{elevator.DirUp, elevator.DirDown} {
		c := ExternalCall{Floor: floor, Direction: d}
		if s.Calls[c] {
			return &c
		}
	}
	return nil
}

func (s *requestState) snapshot() Snapshot {
	snap := Snapshot{LastAttended: s.LastAttended}
	for c := range s.Calls {
		snap.Calls = append(snap.Calls, c)
	}
	for f, h := range s.Selections {
		snap.Selections = append(snap.Selections, Stop{Floor: f, Heading: h})
	}
	slices.SortFunc(snap.Calls, func(a, b ExternalCall) int {
		return cmp.Or(cmp.Compare(a.Floor, b.Floor), cmp.Compare(a.Direction, b.Direction))
	})
	slices.SortFunc(snap.Selections, func(a, b Stop) int {
		return cmp.Compare(a.Floor, b.Floor)
	})
	return snap
}
