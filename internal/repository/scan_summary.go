package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// ScanSummaryStore keeps the most recent scan result for the dashboard.
type ScanSummaryStore interface {
	Save(ctx context.Context, result domain.ScanResult) error
	Latest(ctx context.Context) (*domain.ScanResult, error)
}

type redisScanSummaryStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisScanSummaryStore stores the summary as JSON under key.
func NewRedisScanSummaryStore(client redis.UniversalClient, key string) ScanSummaryStore {
	return &redisScanSummaryStore{client: client, key: key}
}

func (s *redisScanSummaryStore) Save(ctx context.Context, result domain.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal scan result: %w", err)
	}
	return s.client.Set(ctx, s.key, payload, 0).Err()
}

func (s *redisScanSummaryStore) Latest(ctx context.Context) (*domain.ScanResult, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var result domain.ScanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal scan result: %w", err)
	}
	return &result, nil
}

// MemoryScanSummaryStore keeps the summary in process.
type MemoryScanSummaryStore struct {
	mu     sync.RWMutex
	latest *domain.ScanResult
}

// NewMemoryScanSummaryStore creates an empty store.
func NewMemoryScanSummaryStore() *MemoryScanSummaryStore {
	return &MemoryScanSummaryStore{}
}

func (s *MemoryScanSummaryStore) Save(ctx context.Context, result domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &result
	return nil
}

func (s *MemoryScanSummaryStore) Latest(ctx context.Context) (*domain.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNotFound
	}
	out := *s.latest
	return &out, nil
}
