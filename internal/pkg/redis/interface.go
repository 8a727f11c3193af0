package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	SetString(ctx context.Context, key, value string, exp time.Duration) error
	GetString(ctx context.Context, key string) (string, error)

	// SetNX sets key to value only if it does not exist yet.
	// Reports whether the key was set.
	SetNX(ctx context.Context, key, value string, exp time.Duration) (bool, error)

	Exists(ctx context.Context, key string) (bool, error)

	ScriptRun(ctx context.Context, script *redis.Script, keys []string,
		args ...any) (any, error)

	Del(ctx context.Context, keys ...string) (int64, error)

	Expire(ctx context.Context, key string, seconds int) (bool, error)

	// Publish sends payload to every subscriber of channel. Fire and forget:
	// there is no delivery guarantee for disconnected subscribers.
	Publish(ctx context.Context, channel string, payload []byte) error
}
