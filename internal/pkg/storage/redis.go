package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// RedisSink keeps the latest state and lines of each game under
// game:<id>:state and game:<id>:lines, and publishes every record.
type RedisSink struct {
	client  *redis.Client
	ttl     time.Duration
	channel string
	runID   string
}

func NewRedisSink(ctx context.Context, cfg config.RedisConfig, runID string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisSink{client: client, ttl: cfg.TTL, channel: cfg.Channel, runID: runID}, nil
}

func (r *RedisSink) Name() string { return config.SinkRedis }

func (r *RedisSink) DumpState(ctx context.Context, g *tracker.Game) error {
	rec := NewStateRecord(r.runID, g)
	return r.store(ctx, g.ID, Event{Kind: KindState, State: &rec})
}

func (r *RedisSink) DumpLines(ctx context.Context, g *tracker.Game) error {
	rec, ok := NewLinesRecord(r.runID, g)
	if !ok {
		return nil
	}
	return r.store(ctx, g.ID, Event{Kind: KindLines, Lines: &rec})
}

func (r *RedisSink) store(ctx context.Context, gameID string, ev Event) error {
	var record any = ev.State
	if ev.Lines != nil {
		record = ev.Lines
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ev.Kind, err)
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisKey(gameID, ev.Kind), data, r.ttl)
	pipe.Publish(ctx, r.channel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %s: %w", ev.Kind, err)
	}
	return nil
}

func (r *RedisSink) Close() error { return r.client.Close() }

func redisKey(gameID, kind string) string {
	return fmt.Sprintf("game:%s:%s", gameID, kind)
}
