package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/pkg/config"
)

// Publisher delivers grading events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// BusPublisher writes events to a watermill topic.
type BusPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublisher returns a Kafka publisher when events are enabled and an in-process bus otherwise.
func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) (*BusPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("event publishing disabled, using in-process bus")
		return NewBusPublisher(NewLocalBus(logger), cfg.Topic, logger), nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewZapLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	return NewBusPublisher(pub, cfg.Topic, logger), nil
}

// NewLocalBus builds the in-process pub/sub used when Kafka is off and in tests.
func NewLocalBus(logger *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewZapLogger(logger))
}

func NewBusPublisher(pub message.Publisher, topic string, logger *zap.Logger) *BusPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusPublisher{publisher: pub, topic: topic, logger: logger}
}

func (p *BusPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("class_id", event.ClassID)
	msg.Metadata.Set("timestamp", event.OccurredAt.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("topic", p.topic),
	)
	return nil
}

func (p *BusPublisher) Close() error {
	return p.publisher.Close()
}
