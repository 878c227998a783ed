package repository

import (
	"context"
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// RoomRepository looks up room reference data.
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Room, error)
}

// ReadingRepository reads the telemetry stream.
type ReadingRepository interface {
	ListSince(ctx context.Context, since time.Time) ([]domain.SensorReading, error)
}

type roomRepository struct {
	db DBTX
}

// NewRoomRepository instantiates the Postgres room lookup.
func NewRoomRepository(db DBTX) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	const query = `SELECT id, name, capacity, floor, building FROM rooms WHERE id=$1`
	var room domain.Room
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&room.Floor,
		&room.Building,
	); err != nil {
		return nil, notFoundOr(err)
	}
	return &room, nil
}

type readingRepository struct {
	db DBTX
}

// NewReadingRepository instantiates the Postgres telemetry reader.
func NewReadingRepository(db DBTX) ReadingRepository {
	return &readingRepository{db: db}
}

// ListSince returns readings at or after since, oldest first. Missing occupancy
// or air quality come back as -1 so the reading fails validation downstream.
func (r *readingRepository) ListSince(ctx context.Context, since time.Time) ([]domain.SensorReading, error) {
	const query = `
        SELECT id, room_id, COALESCE(occupancy, -1), COALESCE(temperature, 0), COALESCE(noise_level, 0),
               COALESCE(air_quality, -1), timestamp
        FROM sensor_readings WHERE timestamp >= $1 ORDER BY timestamp ASC`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SensorReading
	for rows.Next() {
		var reading domain.SensorReading
		if err := rows.Scan(
			&reading.ID,
			&reading.RoomID,
			&reading.Occupancy,
			&reading.Temperature,
			&reading.NoiseLevel,
			&reading.AirQuality,
			&reading.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, reading)
	}
	return result, rows.Err()
}
