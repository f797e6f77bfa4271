package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobmate/coach-service/internal/model"
)

// Event types, also used as the Redis channel names.
const (
	EventInsightCreated = "EVENT_INSIGHT_CREATED"
	EventInsightUpdated = "EVENT_INSIGHT_UPDATED"
)

// Publisher announces insight changes to other services.
type Publisher interface {
	Publish(ctx context.Context, evt model.Event) error
}

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes each event on the channel named by its type.
type RedisPublisher struct {
	rdb redisPublishClient
}

// NewRedisPublisher returns a Publisher over rdb.
func NewRedisPublisher(rdb redisPublishClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt model.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, evt.Type, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

func insightEvent(eventType string, in *model.IndustryInsight) model.Event {
	data, _ := json.Marshal(map[string]any{
		"demandLevel":   in.DemandLevel,
		"marketOutlook": in.MarketOutlook,
		"growthRate":    in.GrowthRate,
		"lastUpdated":   in.LastUpdated,
		"nextUpdate":    in.NextUpdate,
	})
	return model.Event{Type: eventType, Industry: in.Industry, Data: data}
}
