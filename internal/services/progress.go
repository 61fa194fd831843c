package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

const publishTimeout = 2 * time.Second

// ProgressPublisher announces state transitions of an analysis.
type ProgressPublisher interface {
	Publish(update models.StatusUpdate)
}

// ProgressChannel is the Redis pub/sub channel for one analysis.
func ProgressChannel(analysisID string) string {
	return "analysis_updates:" + analysisID
}

// RedisProgress publishes updates on Redis pub/sub for the websocket hub.
type RedisProgress struct {
	redis *redis.Client
}

func NewRedisProgress(redisClient *redis.Client) *RedisProgress {
	return &RedisProgress{redis: redisClient}
}

// Publish is fire-and-forget. It uses its own deadline so FAILED and
// CLEANED_UP still go out after the request context is done.
func (p *RedisProgress) Publish(update models.StatusUpdate) {
	data, err := json.Marshal(models.WSMessage{Type: "status_update", Payload: update})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.redis.Publish(ctx, ProgressChannel(update.AnalysisID), string(data)).Err(); err != nil {
		log.Printf("progress publish failed for analysis %s: %v", update.AnalysisID, err)
	}
}

// NopProgress drops updates. Used when Redis is not configured.
type NopProgress struct{}

func (NopProgress) Publish(models.StatusUpdate) {}
