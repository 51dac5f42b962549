// Package elevator implements a single, concurrently driven elevator car.
// 이 패키지는 스레드 안전(Thread-safe)한 단일 엘리베이터 카를 구현합니다.
// 이동은 층 단위로 진행되며, 진행 방향의 목표 층은 주행 중에도 단축될 수 있습니다.
package elevator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Elevator is the car: physical position, movement status and doors.
// Elevator는 모든 상태 변경은 Mutex로 보호되며, 변경 사항은 Hub 구독자에게 전파됩니다.
type Elevator struct {
	mu     sync.RWMutex
	Config Config

	// --- State (가변 상태) ---
	floor         int        // 현재 층
	target        int        // 목표 층 - 주행 중에만 의미 있음
	status        Status     // 이동 상태
	lastDirection Direction  // 마지막으로 완료한 주행 방향
	door          DoorStatus // 문 상태
	arrivals      int        // 정지 알림 처리 중인 도착 수
	deferredOpen  bool       // 정지 알림 이후 발행할 문 열림 이벤트

	// --- Bookkeeping (에너지 집계) ---
	travelTime     time.Duration
	motorPowerKW   float64
	floorsTraveled int

	// --- Observability ---
	hub    Hub
	logger *slog.Logger
}

// New initializes a new Elevator instance with strict validation.
// 잘못된 설정(예: Min >= Max)이 감지되면 즉시 에러를 반환합니다 (Fail Fast).
func New(config Config) (*Elevator, error) {
	if config.MinFloor >= config.MaxFloor {
		return nil, fmt.Errorf("invalid config: MinFloor (%d) >= MaxFloor (%d)", config.MinFloor, config.MaxFloor)
	}
	if config.TravelTime < 0 {
		return nil, fmt.Errorf("invalid config: negative TravelTime %s", config.TravelTime)
	}
	if config.MotorPowerKW < 0 {
		return nil, fmt.Errorf("invalid config: negative MotorPowerKW %g", config.MotorPowerKW)
	}
	if config.TravelTime == 0 {
		config.TravelTime = DefaultTravelTime
	}

	e := &Elevator{
		Config:        config,
		status:        Stopped,
		lastDirection: DirNone,
		door:          DoorClosed,
		travelTime:    config.TravelTime,
		motorPowerKW:  config.MotorPowerKW,
		logger:        slog.Default().With("id", config.ID),
	}
	e.floor = e.Clamp(config.InitialFloor)
	e.target = e.floor

	e.logger.Info("Elevator initialized",
		"min", config.MinFloor,
		"max", config.MaxFloor,
		"init_floor", e.floor,
		"travel_time", config.TravelTime,
	)

	return e, nil
}

// Clamp constrains floor to [MinFloor, MaxFloor].
func (e *Elevator) Clamp(floor int) int {
	return min(max(floor, e.Config.MinFloor), e.Config.MaxFloor)
}

// Floor returns the current floor safely.
// Floor은 현재 층을 안전하게 반환합니다.
func (e *Elevator) Floor() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.floor
}

// Status returns the movement status safely.
func (e *Elevator) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// LastDirection returns the direction of the last completed trip, or DirNone
// if the car has never moved.
func (e *Elevator) LastDirection() Direction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastDirection
}

// DoorStatus returns the door state safely.
func (e *Elevator) DoorStatus() DoorStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.door
}

// Target returns the floor of the trip in progress.
func (e *Elevator) Target() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.target
}

// IsStoppedAt reports whether the car is standing at floor.
func (e *Elevator) IsStoppedAt(floor int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status == Stopped && e.floor == floor
}

// Busy reports whether a trip is in progress. A trip stays busy until the
// subscribers of its stop notification have returned.
func (e *Elevator) Busy() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status != Stopped || e.arrivals > 0
}

// Subscribe registers a handler for car events.
// Subscribe는 카 이벤트 구독자를 등록합니다.
func (e *Elevator) Subscribe(fn Handler) (unsubscribe func()) {
	return e.hub.Subscribe(fn)
}

// publish must be called without e.mu held.
func (e *Elevator) publish(eventType EventType, floor int) {
	e.hub.Publish(Event{
		Type:      eventType,
		Floor:     floor,
		Timestamp: time.Now(),
	})
}

// TravelTo sends the car to floor, clamped to the building.
// A stopped car departs at once and the call returns immediately; completion
// is observed through EventStopped. A moving car only accepts floors it can
// absorb into the current trip, see Redirect.
// TravelTo는 즉시 반환되며, 도착은 EventStopped 이벤트로 알 수 있습니다.
func (e *Elevator) TravelTo(floor int) error {
	floor = e.Clamp(floor)

	e.mu.Lock()
	if e.status != Stopped {
		err := e.retarget(floor)
		e.mu.Unlock()
		return err
	}

	// 현재 층이 목표인 경우 (즉시 도착 처리)
	if floor == e.floor {
		e.arrivals++
		e.mu.Unlock()
		e.logger.Debug("Already at requested floor", "floor", floor)
		e.announceStop(floor)
		return nil
	}

	// [Safety Guard] 문이 열려 있으면 닫고 출발
	closing := e.door == DoorOpen
	e.door = DoorClosed
	from := e.floor
	e.target = floor
	if floor > from {
		e.status = MovingUp
	} else {
		e.status = MovingDown
	}
	status := e.status
	e.mu.Unlock()

	if closing {
		e.logger.Info("Doors closed before departure", "floor", from)
		e.publish(EventDoorsClosed, from)
	}
	e.logger.Info("🚅 Departing", "from", from, "to", floor, "status", status)
	e.publish(EventBeforeMoving, from)

	go e.travel()
	return nil
}

// Redirect retargets the trip in progress if the car is moving in dir.
// It returns ErrNotMoving when the car is stopped or heading the other way,
// and ErrOutsideSweep when floor is not between the current floor and the
// current target.
func (e *Elevator) Redirect(floor int, dir Direction) error {
	floor = e.Clamp(floor)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Stopped || e.status.Direction() != dir {
		return fmt.Errorf("%w: status %s, requested %s", ErrNotMoving, e.status, dir)
	}
	return e.retarget(floor)
}

// retarget applies the extend/shorten rule. Caller holds e.mu and the car is moving.
// 진행 방향으로 현재 층(제외)과 목표 층(포함) 사이에 있는 층만 새 목표로 받아들입니다.
func (e *Elevator) retarget(floor int) error {
	var inSweep bool
	switch e.status {
	case MovingUp:
		inSweep = floor > e.floor && floor <= e.target
	case MovingDown:
		inSweep = floor < e.floor && floor >= e.target
	}
	if !inSweep {
		return fmt.Errorf("%w: floor %d, car at %d %s to %d", ErrOutsideSweep, floor, e.floor, e.status, e.target)
	}
	if floor != e.target {
		e.logger.Info("🧭 Target updated", "from", e.target, "to", floor, "floor", e.floor)
		e.target = floor
	}
	return nil
}

// travel runs one trip, one floor per travel time, until the target is reached.
func (e *Elevator) travel() {
	for {
		e.mu.RLock()
		d := e.travelTime
		e.mu.RUnlock()

		time.Sleep(d)

		e.mu.Lock()
		// 물리적 위치 업데이트
		switch e.status {
		case MovingUp:
			e.floor++
		case MovingDown:
			e.floor--
		}
		e.floorsTraveled++
		floor := e.floor
		arrived := floor == e.target
		if arrived {
			e.lastDirection = e.status.Direction()
			e.status = Stopped
			e.arrivals++
		}
		e.mu.Unlock()

		e.publish(EventFloorReached, floor)
		if arrived {
			e.announceStop(floor)
			return
		}
	}
}

// announceStop publishes EventStopped, then any door opening requested by its
// subscribers, and then leaves the arriving state.
func (e *Elevator) announceStop(floor int) {
	e.logger.Info("Arrived at floor", "floor", floor)
	e.publish(EventStopped, floor)

	for {
		e.mu.Lock()
		if !e.deferredOpen {
			e.arrivals--
			e.mu.Unlock()
			return
		}
		e.deferredOpen = false
		e.mu.Unlock()
		e.publish(EventDoorsOpened, floor)
	}
}

// OpenDoors opens the doors of a stopped car. Opening open doors, or doors
// of a moving car, does nothing. While a stop is being announced,
// EventDoorsOpened is held back until every subscriber has seen EventStopped.
func (e *Elevator) OpenDoors() {
	e.mu.Lock()
	if e.door == DoorOpen {
		e.mu.Unlock()
		return
	}
	if e.status != Stopped {
		e.mu.Unlock()
		e.logger.Warn("OpenDoors ignored: car is moving")
		return
	}
	e.door = DoorOpen
	floor := e.floor
	deferred := e.arrivals > 0
	if deferred {
		e.deferredOpen = true
	}
	e.mu.Unlock()

	e.logger.Info("Doors are now OPEN", "floor", floor)
	if !deferred {
		e.publish(EventDoorsOpened, floor)
	}
}

// CloseDoors closes the doors. EventDoorsClosed is published on every call,
// including when the doors were already closed.
func (e *Elevator) CloseDoors() {
	e.mu.Lock()
	wasOpen := e.door == DoorOpen
	e.door = DoorClosed
	floor := e.floor
	e.mu.Unlock()

	if wasOpen {
		e.logger.Info("Doors are now CLOSED", "floor", floor)
	}
	e.publish(EventDoorsClosed, floor)
}
