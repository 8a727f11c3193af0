package data

import (
	"context"
	"encoding/json"
	"fmt"

	"videomod/internal/biz"
	pkgredis "videomod/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

// channelPrefix namespaces the pub/sub channels so the gateway can
// pattern-subscribe to "videomod:events:*".
const channelPrefix = "videomod:events:"

// Envelope is the wire form of a broadcast event.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type redisNotifier struct {
	cache pkgredis.Cache
	log   *log.Helper
}

// NewNotifier creates a Notifier publishing events over Redis pub/sub.
// Each subscriber group maps to one channel; the websocket gateway fans
// the messages out to its connections.
func NewNotifier(cache pkgredis.Cache, logger log.Logger) biz.Notifier {
	return &redisNotifier{
		cache: cache,
		log:   log.NewHelper(logger),
	}
}

func (n *redisNotifier) Publish(ctx context.Context, group string, kind biz.EventKind, payload any) error {
	body, err := json.Marshal(&Envelope{
		Type: string(kind),
		Data: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}
	return n.cache.Publish(ctx, channelPrefix+group, body)
}
