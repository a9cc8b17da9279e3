package kafka

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel"
)

// Producer publishes outbox events. The client is configured for exactly-once
// delivery on the producer side: idempotence plus all-replica acks, so a
// broker retry never duplicates an event the outbox already handed off.
type Producer struct {
	p     *kafka.Producer
	topic string
}

func NewProducer(brokers, topic string) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     brokers,
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"retries":                               1000000,
		"max.in.flight.requests.per.connection": 5,
	})
	if err != nil {
		return nil, err
	}
	return &Producer{p: p, topic: topic}, nil
}

// headerCarrier adapts Kafka record headers to the otel propagation
// interface so a consumer can join the trace that produced the event.
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key string, value string) {
	*c.headers = append(*c.headers, kafka.Header{
		Key:   key,
		Value: []byte(value),
	})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// Publish sends one event keyed by conversation id and waits for the broker
// ack. A returned error leaves the outbox row pending for the next poll.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	headers := []kafka.Header{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})

	deliveryChan := make(chan kafka.Event, 1)
	err := p.p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	}, deliveryChan)
	if err != nil {
		return err
	}

	e := <-deliveryChan
	if m := e.(*kafka.Message); m.TopicPartition.Error != nil {
		return m.TopicPartition.Error
	}
	return nil
}

// Flush waits up to timeoutMs for in-flight events before shutdown.
func (p *Producer) Flush(timeoutMs int) {
	p.p.Flush(timeoutMs)
}
