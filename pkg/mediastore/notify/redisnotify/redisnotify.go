// Package redisnotify implements mediastore.Notifier over a Redis pub/sub
// channel. Downstream observers subscribe to the channel to follow media
// changes; delivery is best-effort fan-out, not a durable log.
package redisnotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tendant/simple-media/pkg/mediastore"
)

// Config options for the Redis notifier
type Config struct {
	Addr     string // Redis address (host:port)
	Password string
	DB       int
	Channel  string // Pub/sub channel (default: "media-events")

	DialTimeout time.Duration // Connection timeout (default: 5s)
}

// Notifier publishes media change events as JSON messages on a Redis
// pub/sub channel.
type Notifier struct {
	rdb     *goredis.Client
	channel string
}

// Event is the wire form of a published change.
type Event struct {
	EntityID string               `json:"entity_id"`
	Kind     mediastore.EventKind `json:"kind"`
	Media    *mediastore.Media    `json:"media"`
}

// New creates a new Redis notifier and verifies connectivity with a ping.
func New(cfg Config) (*Notifier, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = "media-events"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Notifier{rdb: rdb, channel: cfg.Channel}, nil
}

var _ mediastore.Notifier = (*Notifier)(nil)

// Publish implements mediastore.Notifier.
func (n *Notifier) Publish(ctx context.Context, entityID string, kind mediastore.EventKind, media *mediastore.Media) error {
	raw, err := json.Marshal(Event{
		EntityID: entityID,
		Kind:     kind,
		Media:    media,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (n *Notifier) Close() error {
	return n.rdb.Close()
}
