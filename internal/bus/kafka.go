package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
)

// KafkaBus is a Kafka-based event bus implementation. Publishing needs only
// the producer; the consumer group joins on the first Subscribe.
type KafkaBus struct {
	config   KafkaConfig
	producer sarama.SyncProducer
	client   sarama.Client
	log      *logger.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	group   sarama.ConsumerGroup // nil until the first Subscribe
	stop    context.CancelFunc   // ends the session loop
	rejoin  context.CancelFunc   // ends the current session to pick up new topics
	stopped chan struct{}
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers       []string // Kafka broker addresses
	ConsumerGroup string   // Consumer group ID
	ClientID      string   // Client identifier
	Version       string   // Kafka version (e.g., "2.8.0")
}

// newSaramaConfig validates cfg, fills defaults and builds the client config.
func newSaramaConfig(cfg *KafkaConfig) (*sarama.Config, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "kafka brokers cannot be empty")
	}
	if cfg.ConsumerGroup == "" {
		return nil, errors.New(errors.CodeValidation, "kafka consumer group cannot be empty")
	}

	// Set defaults
	if cfg.ClientID == "" {
		cfg.ClientID = "contact-eval-bus"
	}
	if cfg.Version == "" {
		cfg.Version = "2.8.0"
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid kafka version", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = version
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kafkaConfig.Consumer.Return.Errors = true
	kafkaConfig.Net.DialTimeout = 10 * time.Second
	kafkaConfig.Net.ReadTimeout = 10 * time.Second
	kafkaConfig.Net.WriteTimeout = 10 * time.Second

	return kafkaConfig, nil
}

// NewKafkaBus creates a new Kafka-based event bus.
func NewKafkaBus(cfg KafkaConfig, log *logger.Logger) (*KafkaBus, error) {
	kafkaConfig, err := newSaramaConfig(&cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}

	client, err := sarama.NewClient(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka client", err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka producer", err)
	}

	return &KafkaBus{
		config:   cfg,
		producer: producer,
		client:   client,
		log:      log,
		handlers: make(map[string][]Handler),
	}, nil
}

// newProducerMessage encodes an event for a topic.
func newProducerMessage(topic string, event Event) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to marshal event", err)
	}

	return &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
		Key:   sarama.StringEncoder(event.ID), // Use event ID as partition key
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}, nil
}

// Publish publishes an event to a Kafka topic.
func (b *KafkaBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	msg, err := newProducerMessage(topic, event)
	if err != nil {
		return err
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "failed to publish to kafka", err)
	}

	return nil
}

// Subscribe registers a handler for events on a Kafka topic. The first
// call joins the consumer group; later calls with a new topic restart the
// group session so the topic is claimed.
func (b *KafkaBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	_, known := b.handlers[topic]
	b.handlers[topic] = append(b.handlers[topic], handler)

	if b.group == nil {
		group, err := sarama.NewConsumerGroupFromClient(b.config.ConsumerGroup, b.client)
		if err != nil {
			delete(b.handlers, topic)
			return errors.Wrap(errors.CodeUnavailable, "failed to join kafka consumer group", err)
		}
		loopCtx, stop := context.WithCancel(context.Background())
		b.group = group
		b.stop = stop
		b.stopped = make(chan struct{})
		go b.consume(loopCtx)
		return nil
	}

	if !known && b.rejoin != nil {
		b.rejoin()
	}
	return nil
}

// topicsLocked lists the subscribed topics. b.mu must be held.
func (b *KafkaBus) topicsLocked() []string {
	topics := make([]string, 0, len(b.handlers))
	for topic := range b.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// consume runs group sessions over every subscribed topic until ctx ends.
func (b *KafkaBus) consume(ctx context.Context) {
	defer close(b.stopped)

	handler := groupHandler{bus: b}
	for ctx.Err() == nil {
		b.mu.Lock()
		topics := b.topicsLocked()
		session, cancel := context.WithCancel(ctx)
		b.rejoin = cancel
		b.mu.Unlock()

		err := b.group.Consume(session, topics, handler)
		cancel()
		if err == nil || ctx.Err() != nil {
			continue
		}

		b.log.Warn("Kafka consumer error", "topics", topics, "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// deliver decodes one consumed message and hands it to the topic's handlers.
// Undecodable messages are logged and skipped.
func (b *KafkaBus) deliver(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		b.log.Warn("Failed to decode kafka event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return
	}

	b.mu.RLock()
	handlers := b.handlers[msg.Topic]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.log.Warn("Event handler failed", "topic", msg.Topic, "event", event.ID, "error", err)
		}
	}
}

// Close leaves the consumer group, if joined, and closes the producer and
// client.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	group, stop, stopped := b.group, b.stop, b.stopped
	b.mu.Unlock()

	var errs []error

	if group != nil {
		stop()
		<-stopped
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer group: %w", err))
		}
	}

	if err := b.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close producer: %w", err))
	}

	if err := b.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close client: %w", err))
	}

	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()

	if len(errs) > 0 {
		return errors.New(errors.CodeInternal, fmt.Sprintf("errors during close: %v", errs))
	}

	return nil
}

// groupHandler feeds claimed partitions to the bus.
type groupHandler struct {
	bus *KafkaBus
}

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim delivers messages until the session ends, marking each one
// as consumed after its handlers return.
func (h groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.bus.deliver(session.Context(), msg)
			session.MarkMessage(msg, "")
		}
	}
}

// ParseKafkaBrokers parses a comma-separated string of Kafka brokers.
func ParseKafkaBrokers(brokersStr string) []string {
	if strings.TrimSpace(brokersStr) == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(brokersStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
