package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisDisabled is returned by Connect when no URL is configured.
var ErrRedisDisabled = errors.New("redis not configured")

// RedisClients holds one connection pool for the cleanup queue and one for
// progress pub/sub, so blocking pops never starve publishers.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

// Connect parses redisURL and pings both clients within ctx.
func Connect(ctx context.Context, redisURL string) (*RedisClients, error) {
	if redisURL == "" {
		return nil, ErrRedisDisabled
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	queueOpt := *opt
	queueOpt.ClientName = "interview-analyzer-queue"
	queueClient := redis.NewClient(&queueOpt)
	if err := queueClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (queue): %w", err)
	}

	pubsubOpt := *opt
	pubsubOpt.ClientName = "interview-analyzer-pubsub"
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	if r == nil {
		return
	}
	r.Queue.Close()
	r.PubSub.Close()
}
