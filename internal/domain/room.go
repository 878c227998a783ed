package domain

import "time"

// Room is the reference data a reading is evaluated against.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Floor    int
	Building string
}

// SensorReading is one occupancy/environment sample for a room.
type SensorReading struct {
	ID          string
	RoomID      string
	Occupancy   int
	Temperature float64
	NoiseLevel  float64
	AirQuality  int
	Timestamp   time.Time
}

// Valid reports whether the reading carries every field the detector needs.
func (r SensorReading) Valid() bool {
	if r.ID == "" || r.RoomID == "" || r.Timestamp.IsZero() {
		return false
	}
	if r.Occupancy < 0 {
		return false
	}
	return r.AirQuality >= 0 && r.AirQuality <= 100
}
