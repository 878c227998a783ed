package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/config"
	"github.com/spec-kit/room-ticket-service/internal/repository"
)

type stores struct {
	tickets  repository.TicketRepository
	history  repository.TicketHistoryRepository
	rooms    repository.RoomRepository
	readings repository.ReadingRepository
}

// newStores picks Postgres when a pool is available and the in-memory stores
// otherwise. Memory mode reads rooms and readings from the seed file, if any.
func newStores(pool *pgxpool.Pool, cfg config.PostgresConfig, now time.Time, logger *zap.Logger) (stores, error) {
	if pool != nil {
		return stores{
			tickets:  repository.NewTicketRepository(pool),
			history:  repository.NewTicketHistoryRepository(pool),
			rooms:    repository.NewRoomRepository(pool),
			readings: repository.NewReadingRepository(pool),
		}, nil
	}

	st := stores{
		tickets: repository.NewMemoryTicketRepository(),
		history: repository.NewMemoryTicketHistoryRepository(),
	}
	if cfg.MemorySeedFile == "" {
		logger.Warn("POSTGRES_DSN and MEMORY_SEED_FILE are empty: no rooms or readings are loaded, scans will detect nothing")
		st.rooms = repository.NewMemoryRoomRepository()
		st.readings = repository.NewMemoryReadingRepository()
		return st, nil
	}
	rooms, readings, err := repository.LoadMemorySeed(cfg.MemorySeedFile, now)
	if err != nil {
		return stores{}, err
	}
	logger.Info("in-memory stores seeded", zap.String("file", cfg.MemorySeedFile))
	st.rooms = rooms
	st.readings = readings
	return st, nil
}
