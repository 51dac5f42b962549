// Package dispatcher decides which floor a single car visits next.
// 이 패키지는 승강장 호출과 카 내부 선택을 하나의 운행 경로로 통합합니다.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"

	"go-elevator-dispatch/pkg/elevator"
)

// Car is the part of the elevator the dispatcher drives.
type Car interface {
	Floor() int
	Status() elevator.Status
	LastDirection() elevator.Direction
	Busy() bool
	Clamp(floor int) int
	TravelTo(floor int) error
	Redirect(floor int, dir elevator.Direction) error
	OpenDoors()
	CloseDoors()
	Subscribe(fn elevator.Handler) (unsubscribe func())
}

// Dispatcher owns the pending requests and commands the car.
// Dispatcher는 요청 집합을 Mutex로 보호하며, 카 메서드는 잠금 밖에서 호출합니다.
type Dispatcher struct {
	mu     sync.Mutex
	config Config
	car    Car
	state  requestState

	hub         elevator.Hub
	logger      *slog.Logger
	unsubscribe func()
}

// New attaches a dispatcher to car. Requests are accepted at once; the car is
// only commanded while Run is active.
func New(car Car, config Config) *Dispatcher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	d := &Dispatcher{
		config: config,
		car:    car,
		state:  newRequestState(),
		logger: slog.Default().With("id", config.ID, "component", "dispatcher"),
	}
	d.unsubscribe = car.Subscribe(d.handleCarEvent)
	return d
}

// Close detaches the dispatcher from the car's notifications.
func (d *Dispatcher) Close() {
	d.unsubscribe()
}

// Subscribe registers a handler for dispatcher notifications (EventIdle).
func (d *Dispatcher) Subscribe(fn elevator.Handler) (unsubscribe func()) {
	return d.hub.Subscribe(fn)
}

// Call registers a hall call. A car already moving in dir is redirected when
// floor lies inside its current sweep.
// Call은 승강장 호출을 등록합니다. 같은 층/방향의 중복 호출은 무시됩니다.
func (d *Dispatcher) Call(floor int, dir elevator.Direction) error {
	if dir != elevator.DirUp && dir != elevator.DirDown {
		d.logger.Warn("Call rejected: invalid direction", "floor", floor, "direction", dir)
		return fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	call := ExternalCall{Floor: d.car.Clamp(floor), Direction: dir}

	d.mu.Lock()
	if d.state.Calls[call] {
		d.mu.Unlock()
		d.logger.Debug("Call already registered", "floor", call.Floor, "direction", dir)
		return nil
	}
	d.state.Calls[call] = true
	d.mu.Unlock()

	d.logger.Info("Hall Call registered", "floor", call.Floor, "direction", dir)
	d.forward(call.Floor, dir, &call)
	return nil
}

// Select registers a cabin destination.
func (d *Dispatcher) Select(floor int) {
	floor = d.car.Clamp(floor)

	d.mu.Lock()
	if _, ok := d.state.Selections[floor]; ok {
		d.mu.Unlock()
		d.logger.Debug("Selection already registered", "floor", floor)
		return
	}
	d.state.Selections[floor] = elevator.DirNone
	d.mu.Unlock()

	d.logger.Info("Car Call registered", "floor", floor)
	if d.config.ForwardSelections {
		if dir := d.car.Status().Direction(); dir != elevator.DirNone {
			d.forward(floor, dir, nil)
		}
	}
}

// DestinationCall registers a hall call together with the destinations of
// the passengers waiting there. The destinations are served in the sweep of
// the call's direction.
func (d *Dispatcher) DestinationCall(floor int, dir elevator.Direction, destinations ...int) error {
	if err := d.Call(floor, dir); err != nil {
		return err
	}

	d.mu.Lock()
	var added []int
	for _, dest := range destinations {
		dest = d.car.Clamp(dest)
		if _, ok := d.state.Selections[dest]; ok {
			continue
		}
		d.state.Selections[dest] = dir
		added = append(added, dest)
	}
	d.mu.Unlock()

	if len(added) > 0 {
		d.logger.Info("Destinations booked", "floor", floor, "direction", dir, "destinations", added)
	}
	return nil
}

// forward offers floor to a car moving in dir. A floor the car cannot absorb
// stays pending for a later sweep.
func (d *Dispatcher) forward(floor int, dir elevator.Direction, call *ExternalCall) {
	err := d.car.Redirect(floor, dir)
	switch {
	case err == nil:
		d.logger.Info("Request absorbed into current trip", "floor", floor, "direction", dir)
		if call != nil {
			d.mu.Lock()
			// The car may already have stopped there.
			if d.state.Calls[*call] {
				d.state.LastAttended = call
			}
			d.mu.Unlock()
		}
	case errors.Is(err, elevator.ErrNotMoving), errors.Is(err, elevator.ErrOutsideSweep):
		d.logger.Debug("Request deferred", "floor", floor, "reason", err)
	default:
		d.logger.Warn("Redirect failed", "floor", floor, "error", err)
	}
}

// HasPendingRequest reports whether any call or selection targets floor.
func (d *Dispatcher) HasPendingRequest(floor int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.has(floor)
}

// Snapshot returns a copy of the pending requests.
// Snapshot은 요청 상태의 깊은 복사본을 반환합니다.
func (d *Dispatcher) Snapshot() Snapshot {
	var st requestState
	d.mu.Lock()
	err := deepcopy.Copy(&st, &d.state)
	d.mu.Unlock()
	if err != nil {
		d.logger.Error("Snapshot copy failed", "error", err)
		return Snapshot{}
	}
	return st.snapshot()
}

// Run executes the dispatch loop until ctx is cancelled. It returns early
// with an error only when an internal invariant is broken.
// Run은 주기적으로 다음 목적 층을 결정하여 카에 명령합니다.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Dispatcher Started", "poll_interval", d.config.PollInterval)

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher Stopping (Context Cancelled)")
			return ctx.Err()

		case <-ticker.C:
			if err := d.step(); err != nil {
				d.logger.Error("Dispatch invariant violated", "error", err)
				return err
			}
		}
	}
}

// step issues the next travel command if the car is idle and work is pending.
func (d *Dispatcher) step() error {
	// [Guard Clause] 이미 이동 중이면 도착을 대기
	if d.car.Busy() {
		return nil
	}

	d.mu.Lock()
	if d.state.empty() {
		d.mu.Unlock()
		return nil
	}
	floor := d.car.Floor()
	next, err := NextFloor(floor, d.car.LastDirection(), d.state.stops())
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("select next floor: %w", err)
	}
	dir := elevator.DirUp
	if next < floor {
		dir = elevator.DirDown
	}
	d.state.LastAttended = d.state.callAt(next, dir)
	d.mu.Unlock()

	d.logger.Debug("Next floor selected", "floor", floor, "next", next)
	if next != floor {
		d.car.CloseDoors()
	}
	if err := d.car.TravelTo(next); err != nil {
		return fmt.Errorf("travel to %d: %w", next, err)
	}
	return nil
}

func (d *Dispatcher) handleCarEvent(ev elevator.Event) {
	if ev.Type == elevator.EventStopped {
		d.handleStop(ev.Floor)
	}
}

// handleStop clears the requests served by an arrival and opens the doors.
func (d *Dispatcher) handleStop(floor int) {
	d.mu.Lock()
	cleared := d.state.clear(floor)
	empty := d.state.empty()
	d.mu.Unlock()

	d.logger.Info("Requests served", "floor", floor, "cleared", cleared)
	d.car.OpenDoors()

	if empty && d.car.Status() == elevator.Stopped {
		d.logger.Info("💤 Idle State (No calls)", "floor", floor)
		d.hub.Publish(elevator.Event{
			Type:      EventIdle,
			Floor:     floor,
			Timestamp: time.Now(),
		})
	}
}
