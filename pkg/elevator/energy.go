package elevator

import (
	"fmt"
	"time"
)

// TravelTime returns the time the car needs per floor.
func (e *Elevator) TravelTime() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.travelTime
}

// SetTravelTime changes the per-floor travel time. It takes effect from the
// next floor step and resets the traveled-floor counter.
// SetTravelTime은 주행 속도를 변경하며, 이동 층 수 집계를 초기화합니다.
func (e *Elevator) SetTravelTime(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("travel time must be positive, got %s", d)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.travelTime = d
	e.floorsTraveled = 0
	e.logger.Info("Travel time changed", "travel_time", d)
	return nil
}

// SetMotorPower changes the power draw used for energy accounting and resets
// the traveled-floor counter.
func (e *Elevator) SetMotorPower(kw float64) error {
	if kw < 0 {
		return fmt.Errorf("motor power must not be negative, got %g", kw)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.motorPowerKW = kw
	e.floorsTraveled = 0
	e.logger.Info("Motor power changed", "kw", kw)
	return nil
}

// FloorsTraveled returns the number of single-floor steps since the last reset.
func (e *Elevator) FloorsTraveled() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.floorsTraveled
}

// EnergyConsumption returns the energy in kWh spent moving since the last reset.
// 에너지(kWh) = 이동 층 수 x 층당 이동 시간(h) x 소비 전력(kW)
func (e *Elevator) EnergyConsumption() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return float64(e.floorsTraveled) * e.travelTime.Hours() * e.motorPowerKW
}
