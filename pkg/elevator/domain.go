package elevator

import (
	"errors"
	"time"
)

// --- Domain Entities & Value Objects ---

// Direction indicates the vertical movement vector.
// Direction은 수직 이동 벡터를 나타냅니다.
type Direction string

const (
	DirUp   Direction = "Up"
	DirDown Direction = "Down"
	DirNone Direction = "None"
)

// Status is the movement state of the car.
// Status는 엘리베이터 카의 이동 상태입니다.
type Status string

const (
	Stopped    Status = "Stopped"
	MovingUp   Status = "MovingUp"
	MovingDown Status = "MovingDown"
)

// Direction maps a movement status to the direction of travel.
func (s Status) Direction() Direction {
	switch s {
	case MovingUp:
		return DirUp
	case MovingDown:
		return DirDown
	}
	return DirNone
}

// DoorStatus represents the physical state of the door.
// DoorStatus는 문의 물리 상태를 나타냅니다.
type DoorStatus string

const (
	DoorOpen   DoorStatus = "Open"
	DoorClosed DoorStatus = "Closed"
)

// EventType represents the category of an elevator event.
// EventType는 엘리베이터 이벤트의 카테고리를 나타냅니다.
type EventType string

const (
	EventFloorReached EventType = "FloorReached"
	EventBeforeMoving EventType = "BeforeMoving"
	EventStopped      EventType = "Stopped"
	EventDoorsOpened  EventType = "DoorsOpened"
	EventDoorsClosed  EventType = "DoorsClosed"
)

// Event carries the state change information.
// Event는 시스템 내에서 발생한 상태 변화 정보를 담고 있습니다.
type Event struct {
	Type      EventType
	Floor     int
	Timestamp time.Time
}

// DefaultTravelTime is used when Config.TravelTime is zero.
const DefaultTravelTime = time.Second

var (
	// ErrOutsideSweep is returned when a moving car is asked for a floor it
	// cannot absorb into the current trip.
	ErrOutsideSweep = errors.New("floor outside current sweep")
	// ErrNotMoving is returned by Redirect when the car is not travelling in
	// the requested direction.
	ErrNotMoving = errors.New("car not moving in requested direction")
)

// Config holds the construction-time parameters of a car.
// Config는 카 생성 시 설정되며, 층 범위는 런타임 중에 변경되지 않습니다.
type Config struct {
	ID           string
	MinFloor     int           // 최저 층
	MaxFloor     int           // 최고 층
	InitialFloor int           // 초기 층 - 범위 밖이면 보정
	TravelTime   time.Duration // 한 층 이동 시간
	MotorPowerKW float64       // 주행 중 소비 전력 (kW)
}
