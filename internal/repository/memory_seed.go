package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// MemorySeed is the JSON fixture that fills the in-memory room and reading
// stores when the service runs without Postgres.
type MemorySeed struct {
	Rooms    []SeedRoom    `json:"rooms"`
	Readings []SeedReading `json:"readings"`
}

type SeedRoom struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Floor    int    `json:"floor"`
	Building string `json:"building"`
}

// SeedReading carries either an absolute timestamp or an age relative to load
// time, so a fixture stays inside the detection window.
type SeedReading struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	Occupancy   int        `json:"occupancy"`
	Temperature float64    `json:"temperature"`
	NoiseLevel  float64    `json:"noise_level"`
	AirQuality  int        `json:"air_quality"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	AgeSeconds  int        `json:"age_seconds,omitempty"`
}

// LoadMemorySeed reads a fixture file and builds the room and reading stores.
func LoadMemorySeed(path string, now time.Time) (*MemoryRoomRepository, *MemoryReadingRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed MemorySeed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}

	rooms := NewMemoryRoomRepository()
	for _, r := range seed.Rooms {
		if r.ID == "" {
			return nil, nil, fmt.Errorf("seed room without id")
		}
		rooms.Put(domain.Room{ID: r.ID, Name: r.Name, Capacity: r.Capacity, Floor: r.Floor, Building: r.Building})
	}
	readings := NewMemoryReadingRepository()
	for _, r := range seed.Readings {
		if r.ID == "" || r.RoomID == "" {
			return nil, nil, fmt.Errorf("seed reading needs id and room_id")
		}
		at := now.Add(-time.Duration(r.AgeSeconds) * time.Second)
		if r.Timestamp != nil {
			at = *r.Timestamp
		}
		readings.Append(domain.SensorReading{
			ID:          r.ID,
			RoomID:      r.RoomID,
			Occupancy:   r.Occupancy,
			Temperature: r.Temperature,
			NoiseLevel:  r.NoiseLevel,
			AirQuality:  r.AirQuality,
			Timestamp:   at,
		})
	}
	return rooms, readings, nil
}
