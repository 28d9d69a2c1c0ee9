package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/ericli/autotrader/common"
	"github.com/ericli/autotrader/model"
)

// Topics for the outbound event bus. Downstream strategy and analytics
// services consume these instead of polling the glue layer.
const (
	OrderTopic = "order-events"
	BarTopic   = "market-bars"
)

// GetBrokers returns the Kafka broker list from the environment variable
// KAFKA_BROKER_ADDR. Split on comma to allow for multiple brokers.
func GetBrokers() []string {
	addr, _ := common.GetEnv("KAFKA_BROKER_ADDR", "localhost:9092")
	return strings.Split(addr, ",")
}

// Publisher sends JSON-encoded trading events to Kafka, keyed by symbol so
// every event for one ticker lands on the same partition.
type Publisher struct {
	internal sarama.SyncProducer
}

// NewPublisher creates a SyncProducer with a reliable configuration and a
// connection retry mechanism.
func NewPublisher() (*Publisher, error) {
	brokers := GetBrokers()

	config := sarama.NewConfig()
	// The producer waits for the message to be committed by the broker.
	config.Producer.Return.Successes = true
	// WaitForAll ensures the message is committed by the leader AND all in-sync replicas.
	config.Producer.RequiredAcks = sarama.WaitForAll
	// The producer retries up to 5 times before giving up.
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = NewSymbolPartitioner

	var prod sarama.SyncProducer
	var err error

	for i := 0; i < 10; i++ {
		prod, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			return &Publisher{internal: prod}, nil
		}
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to start producer after retries: %w", err)
}

func (p *Publisher) Close() error {
	return p.internal.Close()
}

// Send serializes v as JSON and produces it to the specified topic.
// key: used for partitioning (the ticker symbol). If empty, hashing of the
// message falls back to the default behavior.
func (p *Publisher) Send(topic string, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	// Blocking - waits for ACKs based on the producer config (WaitForAll).
	if _, _, err := p.internal.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to produce event to %s (key=%s): %w", topic, key, err)
	}
	return nil
}

// PublishOrder emits an order outcome to the order-events topic.
func (p *Publisher) PublishOrder(result model.OrderResult) error {
	return p.Send(OrderTopic, result.Symbol, result)
}

// PublishBar emits a fresh market bar to the market-bars topic.
func (p *Publisher) PublishBar(bar model.MarketBar) error {
	return p.Send(BarTopic, bar.Symbol, bar)
}
