package elevator

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

// recorder collects every event of a car and exposes stops as a channel.
type recorder struct {
	mu     sync.Mutex
	events []Event
	stops  chan int
}

func record(e *Elevator) *recorder {
	r := &recorder{stops: make(chan int, 64)}
	e.Subscribe(func(ev Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		if ev.Type == EventStopped {
			r.stops <- ev.Floor
		}
	})
	return r
}

func (r *recorder) waitStop(t *testing.T) int {
	t.Helper()
	select {
	case f := <-r.stops:
		return f
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for stop")
		return 0
	}
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *recorder) count(eventType EventType) int {
	n := 0
	for _, ev := range r.snapshot() {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func newTestElevator(t *testing.T, minFloor, maxFloor int, travel time.Duration) *Elevator {
	t.Helper()
	e, err := New(Config{
		ID:         t.Name(),
		MinFloor:   minFloor,
		MaxFloor:   maxFloor,
		TravelTime: travel,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestElevator_Init(t *testing.T) {
	e, err := New(Config{MinFloor: 1, MaxFloor: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// InitialFloor 0 is below the building and gets clamped.
	if e.Floor() != 1 {
		t.Errorf("Expected initial floor 1, got %d", e.Floor())
	}
	if e.Status() != Stopped {
		t.Errorf("Expected status Stopped, got %s", e.Status())
	}
	if e.LastDirection() != DirNone {
		t.Errorf("Expected last direction None, got %s", e.LastDirection())
	}
	if e.DoorStatus() != DoorClosed {
		t.Errorf("Expected doors closed, got %s", e.DoorStatus())
	}
	if e.TravelTime() != DefaultTravelTime {
		t.Errorf("Expected default travel time, got %s", e.TravelTime())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cases := map[string]Config{
		"equal bounds":    {MinFloor: 3, MaxFloor: 3},
		"inverted bounds": {MinFloor: 5, MaxFloor: 1},
		"negative travel": {MinFloor: 0, MaxFloor: 5, TravelTime: -time.Second},
		"negative power":  {MinFloor: 0, MaxFloor: 5, MotorPowerKW: -1},
	}
	for name, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestElevator_TravelTo_UpAndDown(t *testing.T) {
	for _, floor := range []int{1, 2} {
		e := newTestElevator(t, 0, 10, time.Millisecond)
		r := record(e)

		if err := e.TravelTo(floor); err != nil {
			t.Fatalf("TravelTo(%d): %v", floor, err)
		}
		if got := r.waitStop(t); got != floor {
			t.Errorf("Expected stop at %d, got %d", floor, got)
		}
		if err := e.TravelTo(0); err != nil {
			t.Fatalf("TravelTo(0): %v", err)
		}
		if got := r.waitStop(t); got != 0 {
			t.Errorf("Expected stop at 0, got %d", got)
		}
		if !e.IsStoppedAt(0) {
			t.Errorf("Expected car stopped at 0, got floor %d status %s", e.Floor(), e.Status())
		}
		if e.LastDirection() != DirDown {
			t.Errorf("Expected last direction Down, got %s", e.LastDirection())
		}
	}
}

func TestElevator_TravelTo_ClampsToBounds(t *testing.T) {
	e := newTestElevator(t, 0, 10, time.Millisecond)
	r := record(e)

	// Scenario 1: above the top floor
	_ = e.TravelTo(11)
	if got := r.waitStop(t); got != 10 {
		t.Errorf("Scenario 1 failed: Expected stop at 10, got %d", got)
	}

	// Scenario 2: below the lowest floor after going up
	_ = e.TravelTo(-1)
	if got := r.waitStop(t); got != 0 {
		t.Errorf("Scenario 2 failed: Expected stop at 0, got %d", got)
	}
}

func TestElevator_TravelTo_CurrentFloor(t *testing.T) {
	e := newTestElevator(t, 0, 10, time.Millisecond)
	r := record(e)

	// -4 clamps to 0, which is where the car already is.
	if err := e.TravelTo(-4); err != nil {
		t.Fatalf("TravelTo: %v", err)
	}
	if got := r.waitStop(t); got != 0 {
		t.Errorf("Expected stop at 0, got %d", got)
	}
	if n := r.count(EventBeforeMoving); n != 0 {
		t.Errorf("Expected no BeforeMoving event, got %d", n)
	}
	if n := r.count(EventFloorReached); n != 0 {
		t.Errorf("Expected no FloorReached event, got %d", n)
	}
	if e.Busy() {
		t.Error("Expected car not busy after stop notification")
	}
}

func TestElevator_EventOrder(t *testing.T) {
	e := newTestElevator(t, 0, 10, time.Millisecond)
	r := record(e)

	_ = e.TravelTo(3)
	r.waitStop(t)

	want := []Event{
		{Type: EventBeforeMoving, Floor: 0},
		{Type: EventFloorReached, Floor: 1},
		{Type: EventFloorReached, Floor: 2},
		{Type: EventFloorReached, Floor: 3},
		{Type: EventStopped, Floor: 3},
	}
	got := r.snapshot()
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i].Type != want[i].Type || got[i].Floor != want[i].Floor {
			t.Errorf("event %d: expected %s@%d, got %s@%d", i, want[i].Type, want[i].Floor, got[i].Type, got[i].Floor)
		}
	}
}

func TestElevator_Retarget(t *testing.T) {
	e := newTestElevator(t, 0, 10, 20*time.Millisecond)
	r := record(e)

	if err := e.TravelTo(7); err != nil {
		t.Fatalf("TravelTo(7): %v", err)
	}

	// Beyond the current target: kept for a later trip by the caller.
	if err := e.TravelTo(9); !errors.Is(err, ErrOutsideSweep) {
		t.Errorf("Expected ErrOutsideSweep for 9, got %v", err)
	}
	// Behind the car.
	if err := e.TravelTo(0); !errors.Is(err, ErrOutsideSweep) {
		t.Errorf("Expected ErrOutsideSweep for 0, got %v", err)
	}
	// Inside the sweep: shortens the trip.
	if err := e.TravelTo(4); err != nil {
		t.Errorf("Expected 4 to be absorbed, got %v", err)
	}
	if e.Target() != 4 {
		t.Errorf("Expected target 4, got %d", e.Target())
	}

	if got := r.waitStop(t); got != 4 {
		t.Errorf("Expected stop at 4, got %d", got)
	}
	if n := r.count(EventFloorReached); n != 4 {
		t.Errorf("Expected 4 floors reached, got %d", n)
	}
}

func TestElevator_Redirect(t *testing.T) {
	e := newTestElevator(t, 0, 10, 20*time.Millisecond)
	r := record(e)

	if err := e.Redirect(3, DirUp); !errors.Is(err, ErrNotMoving) {
		t.Errorf("Expected ErrNotMoving while stopped, got %v", err)
	}

	_ = e.TravelTo(6)
	if err := e.Redirect(3, DirDown); !errors.Is(err, ErrNotMoving) {
		t.Errorf("Expected ErrNotMoving for opposite direction, got %v", err)
	}
	if err := e.Redirect(3, DirUp); err != nil {
		t.Errorf("Expected redirect to 3, got %v", err)
	}
	if got := r.waitStop(t); got != 3 {
		t.Errorf("Expected stop at 3, got %d", got)
	}
}

func TestElevator_Doors(t *testing.T) {
	e := newTestElevator(t, 0, 5, time.Millisecond)
	r := record(e)

	e.OpenDoors()
	e.OpenDoors()
	if e.DoorStatus() != DoorOpen {
		t.Errorf("Expected doors open, got %s", e.DoorStatus())
	}
	if n := r.count(EventDoorsOpened); n != 1 {
		t.Errorf("Expected one DoorsOpened event, got %d", n)
	}

	e.CloseDoors()
	e.CloseDoors()
	if e.DoorStatus() != DoorClosed {
		t.Errorf("Expected doors closed, got %s", e.DoorStatus())
	}
	if n := r.count(EventDoorsClosed); n != 2 {
		t.Errorf("Expected two DoorsClosed events, got %d", n)
	}
}

func TestElevator_DepartureClosesDoors(t *testing.T) {
	e := newTestElevator(t, 0, 5, time.Millisecond)
	e.OpenDoors()
	r := record(e)

	_ = e.TravelTo(2)
	r.waitStop(t)

	events := r.snapshot()
	if len(events) < 2 || events[0].Type != EventDoorsClosed || events[1].Type != EventBeforeMoving {
		t.Errorf("Expected DoorsClosed then BeforeMoving, got %v", events)
	}
	if e.DoorStatus() != DoorClosed {
		t.Errorf("Expected doors closed after trip, got %s", e.DoorStatus())
	}
}

func TestElevator_OpenDoorsWhileMoving(t *testing.T) {
	e := newTestElevator(t, 0, 5, 20*time.Millisecond)
	r := record(e)

	_ = e.TravelTo(2)
	e.OpenDoors()
	if e.DoorStatus() != DoorClosed {
		t.Errorf("Expected doors to stay closed while moving, got %s", e.DoorStatus())
	}
	r.waitStop(t)
	if n := r.count(EventDoorsOpened); n != 0 {
		t.Errorf("Expected no DoorsOpened event, got %d", n)
	}
}

func TestElevator_Energy(t *testing.T) {
	e, err := New(Config{MinFloor: 0, MaxFloor: 10, TravelTime: time.Millisecond, MotorPowerKW: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := record(e)

	_ = e.TravelTo(3)
	r.waitStop(t)
	if e.FloorsTraveled() != 3 {
		t.Errorf("Expected 3 floors traveled, got %d", e.FloorsTraveled())
	}
	want := float64(3) * e.TravelTime().Hours() * 10
	if got := e.EnergyConsumption(); got != want {
		t.Errorf("Expected %g kWh, got %g", want, got)
	}

	if err := e.SetTravelTime(2 * time.Millisecond); err != nil {
		t.Fatalf("SetTravelTime: %v", err)
	}
	if e.FloorsTraveled() != 0 {
		t.Errorf("Expected counter reset by SetTravelTime, got %d", e.FloorsTraveled())
	}

	_ = e.TravelTo(1)
	r.waitStop(t)
	if err := e.SetMotorPower(5); err != nil {
		t.Fatalf("SetMotorPower: %v", err)
	}
	if e.FloorsTraveled() != 0 || e.EnergyConsumption() != 0 {
		t.Errorf("Expected counter reset by SetMotorPower, got %d floors", e.FloorsTraveled())
	}

	if err := e.SetTravelTime(0); err == nil {
		t.Error("Expected error for zero travel time")
	}
	if err := e.SetMotorPower(-1); err == nil {
		t.Error("Expected error for negative power")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	var h Hub
	var a, b int
	unsubA := h.Subscribe(func(Event) { a++ })
	h.Subscribe(func(Event) { b++ })

	h.Publish(Event{Type: EventStopped})
	unsubA()
	h.Publish(Event{Type: EventStopped})

	if a != 1 || b != 2 {
		t.Errorf("Expected a=1 b=2, got a=%d b=%d", a, b)
	}
}

func TestChannelSink_Drops(t *testing.T) {
	s := NewChannelSink(1, nil)
	s.Handle(Event{Type: EventFloorReached, Floor: 1})
	s.Handle(Event{Type: EventFloorReached, Floor: 2})

	if s.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", s.Dropped())
	}
	if ev := <-s.C(); ev.Floor != 1 {
		t.Errorf("Expected buffered event for floor 1, got %d", ev.Floor)
	}
}

func TestElevator_DoorsOpenedFollowsStop(t *testing.T) {
	e := newTestElevator(t, 0, 5, time.Millisecond)
	// Registered first, like a dispatcher: opens the doors from inside the
	// stop notification.
	e.Subscribe(func(ev Event) {
		if ev.Type == EventStopped {
			e.OpenDoors()
		}
	})
	r := record(e)

	_ = e.TravelTo(2)
	r.waitStop(t)

	deadline := time.Now().Add(testTimeout)
	for r.count(EventDoorsOpened) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	events := r.snapshot()
	last := events[len(events)-1]
	prev := events[len(events)-2]
	if prev.Type != EventStopped || last.Type != EventDoorsOpened || last.Floor != 2 {
		t.Errorf("Expected Stopped then DoorsOpened at 2, got %v", events)
	}
}
