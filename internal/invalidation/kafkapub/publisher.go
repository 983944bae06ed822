// Package kafkapub publishes tile-expiry events from the diff ingester.
package kafkapub

import (
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/openscape/tilesrv/internal/invalidation"
)

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func New(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	return &Publisher{producer: producer, topic: topic}, nil
}

// Publish validates and sends one expiry event. Events for the same
// zoom share a partition key so consumers see them in order.
func (p *Publisher) Publish(ev invalidation.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("refusing to publish: %w", err)
	}
	buf, err := ev.Marshal()
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(ev.Zoom)),
		Value: sarama.ByteEncoder(buf),
	})
	if err != nil {
		return fmt.Errorf("send expiry event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
