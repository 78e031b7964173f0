package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"chatline/internal/domain"
)

type mockRedisPubSub struct {
	lastChannel string
	lastPayload interface{}
	err         error
}

func (m *mockRedisPubSub) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.lastChannel = channel
	m.lastPayload = message
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func (m *mockRedisPubSub) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return nil
}

func TestRedisRelayPublish(t *testing.T) {
	t.Run("nil relay", func(t *testing.T) {
		var r *RedisRelay
		if err := r.Publish(context.Background(), domain.ChangeEvent{OwnerID: "o"}); err == nil {
			t.Fatalf("expected error for nil relay")
		}
	})

	t.Run("publishes json on configured channel", func(t *testing.T) {
		mock := &mockRedisPubSub{}
		r := newRedisRelay(mock, nil, "", nil)
		r.state.Store(relayLive)
		event := domain.ChangeEvent{Type: domain.ChangeUpdate, OwnerID: "o1", Session: domain.ChatSession{ID: "s1", MessageCount: 2}}
		if err := r.Publish(context.Background(), event); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if mock.lastChannel != DefaultChannel {
			t.Fatalf("expected default channel, got %q", mock.lastChannel)
		}
		raw, ok := mock.lastPayload.([]byte)
		if !ok {
			t.Fatalf("expected []byte payload, got %T", mock.lastPayload)
		}
		var decoded domain.ChangeEvent
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if decoded.Session.ID != "s1" || decoded.Type != domain.ChangeUpdate || decoded.OccurredAt.IsZero() {
			t.Fatalf("unexpected payload: %+v", decoded)
		}
	})

	t.Run("missing owner", func(t *testing.T) {
		r := newRedisRelay(&mockRedisPubSub{}, nil, "x", nil)
		if err := r.Publish(context.Background(), domain.ChangeEvent{}); !errors.Is(err, ErrMissingOwner) {
			t.Fatalf("expected ErrMissingOwner, got %v", err)
		}
	})

	t.Run("redis error wrapped", func(t *testing.T) {
		boom := errors.New("down")
		r := newRedisRelay(&mockRedisPubSub{err: boom}, nil, "x", nil)
		r.state.Store(relayLive)
		if err := r.Publish(context.Background(), domain.ChangeEvent{OwnerID: "o"}); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped redis error, got %v", err)
		}
	})
}

func TestRedisRelayPublishesLocallyUntilSubscribed(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()
	sub, err := broker.Subscribe(context.Background(), "o1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	mock := &mockRedisPubSub{}
	r := newRedisRelay(mock, broker, "x", nil)
	if err := r.Publish(context.Background(), domain.ChangeEvent{Type: domain.ChangeInsert, OwnerID: "o1", Session: domain.ChatSession{ID: "s1"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if mock.lastPayload != nil {
		t.Fatalf("redis must not be used before subscribing")
	}
	if got := receive(t, sub); got.Session.ID != "s1" {
		t.Fatalf("unexpected event: %+v", got)
	}

	if err := newRedisRelay(mock, nil, "x", nil).Publish(context.Background(), domain.ChangeEvent{OwnerID: "o1"}); !errors.Is(err, ErrRelayNotSubscribed) {
		t.Fatalf("expected ErrRelayNotSubscribed, got %v", err)
	}
}

func TestRedisRelayFallsBackWhenSubscribeFails(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()
	sub, err := broker.Subscribe(context.Background(), "o1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	// Nada escucha en el puerto 1: Receive falla al conectar.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	r := NewRedisRelay(client, broker, "x", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Run(ctx); err == nil {
		t.Fatalf("expected subscribe error")
	}

	if err := r.Publish(context.Background(), domain.ChangeEvent{Type: domain.ChangeUpdate, OwnerID: "o1", Session: domain.ChatSession{ID: "s2"}}); err != nil {
		t.Fatalf("publish after failed run: %v", err)
	}
	if got := receive(t, sub); got.Session.ID != "s2" {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestRedisRelayDeliver(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	sub, err := broker.Subscribe(context.Background(), "o1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	r := newRedisRelay(&mockRedisPubSub{}, broker, "x", nil)
	r.deliver(context.Background(), "not json")

	payload, _ := json.Marshal(domain.ChangeEvent{Type: domain.ChangeDelete, OwnerID: "o1", Session: domain.ChatSession{ID: "gone"}})
	r.deliver(context.Background(), string(payload))

	got := receive(t, sub)
	if got.Type != domain.ChangeDelete || got.Session.ID != "gone" {
		t.Fatalf("unexpected event: %+v", got)
	}
}
