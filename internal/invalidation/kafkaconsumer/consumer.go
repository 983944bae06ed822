// Package kafkaconsumer subscribes to tile-expiry events and evicts the
// affected tiles from the in-process cache.
package kafkaconsumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/openscape/tilesrv/internal/invalidation"
	"github.com/openscape/tilesrv/internal/tilecache"
)

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	cache  *tilecache.Cache
	seen   *payloadDedupe
}

func New(cfg Config, logger *slog.Logger, cache *tilecache.Cache) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
		seen:   newPayloadDedupe(8192),
	}
}

// Start joins the consumer group and processes expiry events until ctx
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil {
		return errors.New("kafkaconsumer: no tile cache to invalidate")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("tile expiry consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("tile expiry consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single expiry message. Duplicate payloads
// (redelivery after rebalance) are dropped without touching the cache.
func (c *Consumer) ProcessOne(_ context.Context, msg *sarama.ConsumerMessage) error {
	if !c.seen.first(msg.Value) {
		c.logger.Debug("duplicate expiry event skipped",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}

	ev, err := invalidation.Unmarshal(msg.Value)
	if err != nil {
		return fmt.Errorf("expiry event (topic=%s, off=%d): %w", msg.Topic, msg.Offset, err)
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("expiry event (topic=%s, off=%d): %w", msg.Topic, msg.Offset, err)
	}

	keys := make([]string, 0, len(ev.Tiles))
	for _, tr := range ev.Tiles {
		keys = append(keys, tilecache.Key(ev.Zoom, tr.X, tr.Y))
	}
	evicted := c.cache.Invalidate(keys...)

	c.logger.Debug("invalidated tiles",
		"zoom", ev.Zoom, "tiles", len(ev.Tiles), "evicted", evicted, "source", ev.Source)
	return nil
}
