// Package config loads the simulator settings from a YAML file.
// 설정 파일이 없으면 기본값을 사용하며, PORT 환경 변수가 포트를 덮어씁니다.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"go-elevator-dispatch/pkg/dispatcher"
	"go-elevator-dispatch/pkg/elevator"
)

// Config is the root of the configuration file.
type Config struct {
	Port       string           `yaml:"port"`
	Elevator   ElevatorConfig   `yaml:"elevator"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
}

// ElevatorConfig configures the car. Durations are written as "1s", "250ms".
type ElevatorConfig struct {
	ID           string        `yaml:"id"`
	MinFloor     int           `yaml:"min_floor"`
	MaxFloor     int           `yaml:"max_floor"`
	InitialFloor int           `yaml:"initial_floor"`
	TravelTime   time.Duration `yaml:"travel_time"`
	MotorPowerKW float64       `yaml:"motor_power_kw"`
}

// DispatcherConfig configures the dispatch loop.
type DispatcherConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	ForwardSelections bool          `yaml:"forward_selections"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Port: "8080",
		Elevator: ElevatorConfig{
			ID:         "car-1",
			MinFloor:   0,
			MaxFloor:   10,
			TravelTime: elevator.DefaultTravelTime,
		},
		Dispatcher: DispatcherConfig{
			PollInterval: dispatcher.DefaultPollInterval,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// The PORT environment variable overrides the file.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return c, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&c); err != nil {
			return c, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if c.Elevator.MinFloor >= c.Elevator.MaxFloor {
		return c, fmt.Errorf("invalid config: min_floor (%d) >= max_floor (%d)", c.Elevator.MinFloor, c.Elevator.MaxFloor)
	}
	return c, nil
}

// ElevatorConfig converts the file section to the car's construction config.
func (c Config) ElevatorConfig() elevator.Config {
	return elevator.Config{
		ID:           c.Elevator.ID,
		MinFloor:     c.Elevator.MinFloor,
		MaxFloor:     c.Elevator.MaxFloor,
		InitialFloor: c.Elevator.InitialFloor,
		TravelTime:   c.Elevator.TravelTime,
		MotorPowerKW: c.Elevator.MotorPowerKW,
	}
}

// DispatcherConfig converts the file section to the dispatcher config.
func (c Config) DispatcherConfig() dispatcher.Config {
	return dispatcher.Config{
		ID:                c.Elevator.ID,
		PollInterval:      c.Dispatcher.PollInterval,
		ForwardSelections: c.Dispatcher.ForwardSelections,
	}
}
