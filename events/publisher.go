// Package events streams ledger events to Kafka for downstream consumers such
// as reporting and reconciliation.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close()
}

// Noop discards events. It stands in when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close()                                              {}

type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(bootstrapServers, topic string) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": bootstrapServers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	p := &KafkaPublisher{producer: producer, topic: topic}
	go p.watchDeliveries()
	log.WithField("topic", topic).Info("Kafka publisher ready")
	return p, nil
}

func (p *KafkaPublisher) watchDeliveries() {
	for ev := range p.producer.Events() {
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				log.WithError(e.TopicPartition.Error).WithField("key", string(e.Key)).Error("Kafka delivery failed")
			}
		case kafka.Error:
			log.WithError(e).Error("Kafka error")
		}
	}
}

// Publish enqueues value as JSON. Delivery is asynchronous; failures surface
// in the log.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          body,
	}, nil)
}

func (p *KafkaPublisher) Close() {
	if remaining := p.producer.Flush(5000); remaining > 0 {
		log.WithField("remaining", remaining).Warn("Kafka publisher closed with undelivered events")
	}
	p.producer.Close()
}
