package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatline/internal/domain"
)

const DefaultChannel = "chat_changes"

var ErrRelayNotSubscribed = errors.New("realtime: redis relay not subscribed")

const (
	relayIdle int32 = iota
	relayLive
	relayDown
)

// redisPubSub es el subconjunto de *redis.Client que usa el relay.
type redisPubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisRelay reparte cambios entre instancias: Publish los envia a Redis y Run
// los entrega al Broker local de cada instancia. Mientras Run no este suscrito
// Publish entrega directo al Broker local.
type RedisRelay struct {
	client  redisPubSub
	broker  *Broker
	channel string
	logger  *zap.Logger
	state   atomic.Int32
}

func NewRedisRelay(client *redis.Client, broker *Broker, channel string, logger *zap.Logger) *RedisRelay {
	return newRedisRelay(client, broker, channel, logger)
}

func newRedisRelay(client redisPubSub, broker *Broker, channel string, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{client: client, broker: broker, channel: channel, logger: logger}
}

func (r *RedisRelay) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if r == nil || r.client == nil {
		return errors.New("realtime: redis relay not configured")
	}
	if strings.TrimSpace(event.OwnerID) == "" {
		return ErrMissingOwner
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if r.state.Load() != relayLive {
		if r.broker == nil {
			return ErrRelayNotSubscribed
		}
		return r.broker.Publish(ctx, event)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run consume el canal de Redis hasta que ctx se cancele. Al salir, Publish
// vuelve a entregar solo en local.
func (r *RedisRelay) Run(ctx context.Context) error {
	defer r.state.Store(relayDown)

	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		r.logger.Warn("realtime relay subscribe failed, delivering locally", zap.Error(err))
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.state.Store(relayLive)
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				r.logger.Warn("realtime relay channel closed, delivering locally")
				return nil
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var event domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.logger.Warn("relay: malformed payload", zap.Error(err))
		return
	}
	if err := r.broker.Publish(ctx, event); err != nil {
		r.logger.Warn("relay: deliver failed", zap.Error(err), zap.String("owner_id", event.OwnerID))
	}
}
