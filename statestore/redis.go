package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
)

// Redis stores state with a TTL so abandoned scrapes expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// DialRedis connects to addr.
func DialRedis(addr string, ttl time.Duration) *Redis {
	return NewRedis(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

// Close closes the client.
func (r *Redis) Close() error { return r.client.Close() }

func redisKey(scope protocol.ContextID) string {
	return profile.StateKey + ":" + string(scope)
}

// Save implements Store.
func (r *Redis) Save(ctx context.Context, scope protocol.ContextID, st *profile.PhaseState) error {
	data, err := st.Encode()
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(scope), string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("statestore: redis save: %w", err)
	}
	return nil
}

// Load implements Store.
func (r *Redis) Load(ctx context.Context, scope protocol.ContextID) (*profile.PhaseState, error) {
	v, err := r.client.Get(ctx, redisKey(scope)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: redis load: %w", err)
	}
	return profile.DecodeState([]byte(v))
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, scope protocol.ContextID) error {
	if err := r.client.Del(ctx, redisKey(scope)).Err(); err != nil {
		return fmt.Errorf("statestore: redis delete: %w", err)
	}
	return nil
}
