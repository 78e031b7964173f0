package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"chatline/internal/domain"
)

var ErrMissingOwner = errors.New("realtime: owner id required")

// Publisher publica cambios de la tabla de chats hacia los suscriptores del owner.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Broker es el canal push en proceso, un topic por owner sobre watermill gochannel.
type Broker struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, NewWatermillLogger(logger))
	return &Broker{pubsub: pubsub, logger: logger}
}

func topicFor(ownerID string) string {
	return "chats." + ownerID
}

func (b *Broker) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if strings.TrimSpace(event.OwnerID) == "" {
		return ErrMissingOwner
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(topicFor(event.OwnerID), msg); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe abre un stream de cambios para el owner. El stream termina cuando
// se llama Close o se cancela ctx.
func (b *Broker) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	subCtx, cancel := context.WithCancel(ctx)
	msgs, err := b.pubsub.Subscribe(subCtx, topicFor(ownerID))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", ownerID, err)
	}

	sub := &Subscription{
		ownerID: ownerID,
		events:  make(chan domain.ChangeEvent),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go sub.pump(subCtx, msgs, b.logger)
	b.logger.Debug("realtime subscription opened", zap.String("owner_id", ownerID))
	return sub, nil
}

func (b *Broker) Close() error {
	return b.pubsub.Close()
}

// Subscription es el handle de baja de una suscripcion.
type Subscription struct {
	ownerID   string
	events    chan domain.ChangeEvent
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Events devuelve el stream de cambios; se cierra al terminar la suscripcion.
func (s *Subscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

// Close da de baja la suscripcion y espera a que el stream se cierre.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Subscription) pump(ctx context.Context, msgs <-chan *message.Message, logger *zap.Logger) {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event domain.ChangeEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Warn("drop malformed change event", zap.Error(err), zap.String("owner_id", s.ownerID))
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case s.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
