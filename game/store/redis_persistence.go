package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

// RedisPersistence implements MatchPersistence on a Redis server. Each match
// is a string key holding the JSON envelope; an index set tracks all ids.
type RedisPersistence struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPersistence connects to addr and pings it. A ttl of zero keeps
// records forever.
func NewRedisPersistence(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*RedisPersistence, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if prefix == "" {
		prefix = "rpsmatch"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	return &RedisPersistence{client: client, prefix: prefix, ttl: ttl}, nil
}

func (rp *RedisPersistence) key(id string) string {
	return rp.prefix + ":match:" + id
}

func (rp *RedisPersistence) indexKey() string {
	return rp.prefix + ":matches"
}

// Save writes the record and its index entry in one transaction
func (rp *RedisPersistence) Save(ctx context.Context, match *engine.Match) error {
	data, err := encodeMatch(match, false)
	if err != nil {
		return err
	}

	_, err = rp.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, rp.key(match.ID), data, rp.ttl)
		pipe.SAdd(ctx, rp.indexKey(), match.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save match %s to redis: %w", match.ID, err)
	}
	return nil
}

// Load retrieves a snapshot by id
func (rp *RedisPersistence) Load(ctx context.Context, id string) (*engine.Match, error) {
	data, err := rp.client.Get(ctx, rp.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, engine.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %s from redis: %w", id, err)
	}
	return decodeMatch(data)
}

// Delete removes the record and its index entry
func (rp *RedisPersistence) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := rp.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, rp.key(id))
		pipe.SRem(ctx, rp.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete match %s from redis: %w", id, err)
	}
	if removed.Val() == 0 {
		return engine.ErrMatchNotFound
	}
	return nil
}

// ListAll returns indexed ids whose record still exists. Ids whose record
// expired are dropped from the index.
func (rp *RedisPersistence) ListAll(ctx context.Context) ([]string, error) {
	ids, err := rp.client.SMembers(ctx, rp.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches in redis: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		if rp.Exists(ctx, id) {
			live = append(live, id)
			continue
		}
		rp.client.SRem(ctx, rp.indexKey(), id)
	}
	return live, nil
}

// Exists checks if a record exists
func (rp *RedisPersistence) Exists(ctx context.Context, id string) bool {
	n, err := rp.client.Exists(ctx, rp.key(id)).Result()
	return err == nil && n > 0
}

// Close releases the client connection pool
func (rp *RedisPersistence) Close() error {
	return rp.client.Close()
}
