package websocket

import (
	"context"

	"ambulance-finance/pkg/cache"
	"ambulance-finance/pkg/logger"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedisRelay publishes wallet notices through Redis so every server instance
// delivers them to its own hub.
type RedisRelay struct {
	redis   *cache.RedisCache
	hub     *Hub
	channel string
	logger  *logger.Logger
}

func NewRedisRelay(redis *cache.RedisCache, hub *Hub, channel string, log *logger.Logger) *RedisRelay {
	return &RedisRelay{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  log,
	}
}

func (r *RedisRelay) PublishWalletChange(ctx context.Context, userID primitive.ObjectID, event string, transactionID primitive.ObjectID) error {
	return r.redis.Publish(ctx, r.channel, NewWalletChange(userID, event, transactionID))
}

// Run forwards relayed notices into the local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.redis.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var notice Message
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				r.logger.WithError(err).Warn("Discarding malformed relayed wallet notice")
				continue
			}
			_ = r.hub.Deliver(&notice)
		}
	}
}
