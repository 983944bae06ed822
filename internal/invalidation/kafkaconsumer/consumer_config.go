package kafkaconsumer

import "time"

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

func Defaults(brokers []string, topic, group string) Config {
	if topic == "" {
		topic = "tile-expiry"
	}
	if group == "" {
		group = "tilesrv-invalidator"
	}
	return Config{
		Brokers:             brokers,
		Topic:               topic,
		GroupID:             group,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: false,
	}
}
