package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-elevator-dispatch/pkg/config"
	"go-elevator-dispatch/pkg/dispatcher"
	"go-elevator-dispatch/pkg/elevator"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Message types
// 메시지 타입 정의
type ClientMessage struct {
	Action       string          `json:"action"`
	Config       *ElevatorConfig `json:"config,omitempty"`
	Floor        int             `json:"floor,omitempty"`
	Direction    string          `json:"direction,omitempty"`
	Destinations []int           `json:"destinations,omitempty"`
	TravelTime   float64         `json:"travelTime,omitempty"` // seconds
	MotorPowerKW float64         `json:"motorPowerKw,omitempty"`
}

type ElevatorConfig struct {
	ID           string  `json:"id"`
	MinFloor     int     `json:"minFloor"`
	MaxFloor     int     `json:"maxFloor"`
	InitialFloor int     `json:"initialFloor"`
	TravelTime   float64 `json:"travelTime"` // seconds
	MotorPowerKW float64 `json:"motorPowerKw"`
}

type ServerMessage struct {
	Type       string         `json:"type"`
	EventType  string         `json:"eventType,omitempty"`
	Timestamp  string         `json:"timestamp,omitempty"`
	Floor      int            `json:"floor"`
	Status     string         `json:"status,omitempty"`
	Door       string         `json:"door,omitempty"`
	HallCalls  []HallCall     `json:"hallCalls,omitempty"`
	CarCalls   []int          `json:"carCalls,omitempty"`
	CallFloors []int          `json:"callFloors,omitempty"`
	Energy     *EnergyReading `json:"energy,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type HallCall struct {
	Floor     int    `json:"floor"`
	Direction string `json:"direction"`
}

type EnergyReading struct {
	FloorsTraveled int     `json:"floorsTraveled"`
	KWH            float64 `json:"kwh"`
}

// ElevatorSession manages a WebSocket connection with one car and its dispatcher.
// ElevatorSession은 엘리베이터 인스턴스와의 WebSocket 연결을 관리합니다.
type ElevatorSession struct {
	conn       *websocket.Conn
	defaults   config.Config
	elevator   *elevator.Elevator
	dispatcher *dispatcher.Dispatcher
	mu         sync.Mutex
	writeMu    sync.Mutex
	done       chan struct{}
	cancel     context.CancelFunc
	detach     []func()
}

func NewElevatorSession(conn *websocket.Conn, defaults config.Config) *ElevatorSession {
	return &ElevatorSession{
		conn:     conn,
		defaults: defaults,
		done:     make(chan struct{}),
	}
}

func (s *ElevatorSession) HandleMessages() {
	slog.Info("Session started", "remote_addr", s.conn.RemoteAddr())
	defer func() {
		close(s.done)
		s.mu.Lock()
		s.shutdown()
		s.mu.Unlock()
		_ = s.conn.Close()
		slog.Info("Session ended", "remote_addr", s.conn.RemoteAddr())
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Failed to parse message", "error", err)
			continue
		}

		s.handleAction(msg)
	}
}

func (s *ElevatorSession) handleAction(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("Action received", "action", msg.Action, "payload", msg)

	if msg.Action == "init" {
		s.initElevator(msg.Config)
		return
	}
	if s.elevator == nil {
		s.sendError("elevator not initialized")
		return
	}

	switch msg.Action {
	case "call":
		if err := s.dispatcher.Call(msg.Floor, elevator.Direction(msg.Direction)); err != nil {
			slog.Warn("Failed to add call via WS", "floor", msg.Floor, "error", err)
			s.sendError(err.Error())
		}
		s.sendState()
	case "select":
		s.dispatcher.Select(msg.Floor)
		s.sendState()
	case "destination":
		if err := s.dispatcher.DestinationCall(msg.Floor, elevator.Direction(msg.Direction), msg.Destinations...); err != nil {
			slog.Warn("Failed to add destination call via WS", "floor", msg.Floor, "error", err)
			s.sendError(err.Error())
		}
		s.sendState()
	case "setTravelTime":
		if err := s.elevator.SetTravelTime(seconds(msg.TravelTime)); err != nil {
			s.sendError(err.Error())
		}
		s.sendState()
	case "setMotorPower":
		if err := s.elevator.SetMotorPower(msg.MotorPowerKW); err != nil {
			s.sendError(err.Error())
		}
		s.sendState()
	case "stop":
		s.shutdown()
	case "getState":
		s.sendState()
	default:
		s.sendError("unknown action " + msg.Action)
	}
}

func (s *ElevatorSession) initElevator(cfg *ElevatorConfig) {
	// Stop existing elevator if any
	s.shutdown()

	carConfig := s.defaults.ElevatorConfig()
	if cfg != nil {
		carConfig.ID = cfg.ID
		carConfig.MinFloor = cfg.MinFloor
		carConfig.MaxFloor = cfg.MaxFloor
		carConfig.InitialFloor = cfg.InitialFloor
		carConfig.TravelTime = seconds(cfg.TravelTime)
		carConfig.MotorPowerKW = cfg.MotorPowerKW
	}
	slog.Info("Elevator config", "config", carConfig)

	e, err := elevator.New(carConfig)
	if err != nil {
		slog.Error("Failed to initialize elevator", "error", err)
		s.sendError(err.Error())
		return
	}
	dispatcherConfig := s.defaults.DispatcherConfig()
	dispatcherConfig.ID = carConfig.ID
	d := dispatcher.New(e, dispatcherConfig)
	s.elevator = e
	s.dispatcher = d

	// Subscribe to events
	// 이벤트 구독
	sink := elevator.NewChannelSink(1000, slog.Default().With("id", carConfig.ID))
	s.detach = []func(){e.Subscribe(sink.Handle), d.Subscribe(sink.Handle), d.Close}
	go s.eventListener(sink.C())

	// Start dispatcher
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Dispatcher run error", "error", err)
		}
	}()

	slog.Info("Elevator initialized", "id", carConfig.ID, "floors", carConfig.MinFloor, "to", carConfig.MaxFloor)

	// Send initial state
	s.sendState()
}

// shutdown stops the dispatcher and detaches all subscriptions. Caller holds s.mu.
func (s *ElevatorSession) shutdown() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for _, fn := range s.detach {
		fn()
	}
	s.detach = nil
	s.elevator = nil
	s.dispatcher = nil
}

func (s *ElevatorSession) eventListener(events <-chan elevator.Event) {
	for {
		select {
		case <-s.done:
			return
		case event := <-events:
			s.sendEvent(event)
			s.mu.Lock()
			s.sendState()
			s.mu.Unlock()
		}
	}
}

// sendState writes a state snapshot. Caller holds s.mu.
func (s *ElevatorSession) sendState() {
	if s.elevator == nil {
		return
	}

	snap := s.dispatcher.Snapshot()
	msg := ServerMessage{
		Type:       "state",
		Floor:      s.elevator.Floor(),
		Status:     string(s.elevator.Status()),
		Door:       string(s.elevator.DoorStatus()),
		CallFloors: snap.Floors(),
		Energy: &EnergyReading{
			FloorsTraveled: s.elevator.FloorsTraveled(),
			KWH:            s.elevator.EnergyConsumption(),
		},
	}
	for _, c := range snap.Calls {
		msg.HallCalls = append(msg.HallCalls, HallCall{Floor: c.Floor, Direction: string(c.Direction)})
	}
	for _, sel := range snap.Selections {
		msg.CarCalls = append(msg.CarCalls, sel.Floor)
	}

	s.writeJSON(msg)
}

func (s *ElevatorSession) sendEvent(event elevator.Event) {
	msg := ServerMessage{
		Type:      "event",
		EventType: string(event.Type),
		Floor:     event.Floor,
		Timestamp: event.Timestamp.Format("15:04:05.000"),
	}

	s.writeJSON(msg)
}

func (s *ElevatorSession) sendError(reason string) {
	s.writeJSON(ServerMessage{Type: "error", Error: reason})
}

func (s *ElevatorSession) writeJSON(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Error("Failed to write JSON message", "error", err)
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func websocketHandler(defaults config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}

		session := NewElevatorSession(conn, defaults)
		session.HandleMessages()
	}
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Serve static files from embedded filesystem
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", websocketHandler(cfg))

	addr := ":" + cfg.Port
	slog.Info("Starting elevator web server", "addr", addr)
	slog.Info("Open http://localhost:" + cfg.Port + " in your browser")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
