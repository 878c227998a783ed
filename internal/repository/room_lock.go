package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RoomLocker serializes ticket creation for a room across detector workers.
// TryLock never blocks: ok is false when another holder owns the room.
type RoomLocker interface {
	TryLock(ctx context.Context, roomID string) (unlock func(), ok bool, err error)
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisRoomLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisRoomLocker builds a lock shared by every service instance using client.
func NewRedisRoomLocker(client redis.UniversalClient, prefix string, ttl time.Duration) RoomLocker {
	return &redisRoomLocker{client: client, prefix: prefix, ttl: ttl}
}

func (l *redisRoomLocker) TryLock(ctx context.Context, roomID string) (func(), bool, error) {
	key := l.prefix + roomID
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	unlock := func() {
		// the caller's ctx may already be cancelled here
		_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
	}
	return unlock, true, nil
}

type localRoomLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalRoomLocker builds an in-process lock for single-instance deployments.
func NewLocalRoomLocker() RoomLocker {
	return &localRoomLocker{held: make(map[string]struct{})}
}

func (l *localRoomLocker) TryLock(ctx context.Context, roomID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[roomID]; busy {
		return func() {}, false, nil
	}
	l.held[roomID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, roomID)
			l.mu.Unlock()
		})
	}, true, nil
}
