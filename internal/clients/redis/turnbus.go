package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/angie-backend/internal/logger"
)

// TurnBus fans turn events out to interested consumers (dashboards, async
// enrichment). Delivery is best-effort; the pipeline never depends on it.
type TurnBus interface {
	Publish(ctx context.Context, msg TurnMessage) error
	Close() error
}

type TurnMessage struct {
	ProfileID string         `json:"profile_id"`
	Name      string         `json:"name"`
	Props     map[string]any `json:"props,omitempty"`
	At        time.Time      `json:"at"`
}

type turnBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewTurnBus(log *logger.Logger) (TurnBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "lesson_turns"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &turnBus{
		log:     log.With("client", "RedisTurnBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *turnBus) Publish(ctx context.Context, msg TurnMessage) error {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal turn message: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish turn message: %w", err)
	}
	return nil
}

func (b *turnBus) Close() error {
	return b.rdb.Close()
}
