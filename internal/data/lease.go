package data

import (
	"context"
	"fmt"
	"time"

	"videomod/internal/biz"
	pkgredis "videomod/internal/pkg/redis"
)

const leasePrefix = "videomod:lease:"

// releaseScript deletes the lease only when the caller still holds it, so
// a run that outlived its TTL cannot release a successor's lease.
var releaseScript = pkgredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

type redisLease struct {
	cache pkgredis.Cache
}

// NewRunLease creates a RunLease backed by Redis SET NX. The TTL bounds
// how long a crashed run can block its video.
func NewRunLease(cache pkgredis.Cache) biz.RunLease {
	return &redisLease{cache: cache}
}

func (l *redisLease) Acquire(ctx context.Context, videoID, token string, ttl time.Duration) (bool, error) {
	ok, err := l.cache.SetNX(ctx, leasePrefix+videoID, token, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease for %s: %w", videoID, err)
	}
	return ok, nil
}

func (l *redisLease) Release(ctx context.Context, videoID, token string) error {
	if _, err := l.cache.ScriptRun(ctx, releaseScript, []string{leasePrefix + videoID}, token); err != nil {
		return fmt.Errorf("failed to release lease for %s: %w", videoID, err)
	}
	return nil
}
