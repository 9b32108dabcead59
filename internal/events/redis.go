package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"battleship/internal/session"
)

// RedisRegistry keeps a hash per live session under battleship:sess:<id>. The
// TTL is refreshed on every event so abandoned sessions expire on their own.
type RedisRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisRegistry creates a registry; ttl defaults to five minutes
func NewRedisRegistry(rdb *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &RedisRegistry{rdb: rdb, ttl: ttl}
}

// SessionKey returns the hash key of a session
func SessionKey(id string) string {
	return fmt.Sprintf("battleship:sess:%s", id)
}

func (r *RedisRegistry) Name() string { return "redis" }

func (r *RedisRegistry) Handle(ctx context.Context, e session.Event) error {
	key := SessionKey(e.SessionID)

	if e.Kind == session.EventFinished {
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to remove session %s: %w", e.SessionID, err)
		}
		return nil
	}

	fields := map[string]interface{}{
		"role":       string(e.Role),
		"peer":       e.Peer,
		"started_at": e.StartedAt.Unix(),
		"ts":         e.At.Unix(),
	}
	if e.State != "" {
		fields["state"] = e.State
	}
	if e.Shot != nil {
		fields["last_shot"] = fmt.Sprintf("%s=%s", e.Shot.Label, e.Shot.Result)
		fields["shots"] = e.Shot.Seq
	}

	if err := r.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to register session %s: %w", e.SessionID, err)
	}
	return r.rdb.Expire(ctx, key, r.ttl).Err()
}

// Lookup returns the registered fields of a session
func (r *RedisRegistry) Lookup(ctx context.Context, id string) (map[string]string, error) {
	fields, err := r.rdb.HGetAll(ctx, SessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return fields, nil
}
