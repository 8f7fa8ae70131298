// Package bus bridges progress messages between processes over Redis
// pub/sub, so the API process can fan worker-published progress out to its
// SSE subscribers. Like the in-process hub it is fire-and-forget: Redis
// pub/sub keeps no history and a disconnected consumer simply misses
// messages.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
)

// RedisBus publishes and forwards progress messages over one Redis channel.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	log     infra.Logger
}

// NewRedisBus connects to Redis and verifies the connection with a ping.
func NewRedisBus(ctx context.Context, addr, channel string, log infra.Logger) (*RedisBus, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if channel == "" {
		channel = "job-progress"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{rdb: rdb, channel: channel, log: log}, nil
}

// Publish sends the message to the Redis channel. Errors are logged, not
// surfaced: the channel is a latency optimization, never load-bearing.
func (b *RedisBus) Publish(ctx context.Context, msg domain.ProgressMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Msg("bus: encode progress message")
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn().Err(err).Str("job_id", msg.JobID).Msg("bus: publish failed, message dropped")
	}
}

// StartForwarder subscribes to the Redis channel and invokes onMsg for every
// decodable message until ctx is cancelled.
func (b *RedisBus) StartForwarder(ctx context.Context, onMsg func(domain.ProgressMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg domain.ProgressMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn().Err(err).Msg("bus: bad progress payload")
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

// Close releases the Redis connection.
func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
