// Package publish broadcasts gesture events to Redis subscribers.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyburd/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
)

// DefaultChannel is the pub/sub channel gesture events are published on.
const DefaultChannel = "mudra:gestures"

// RedisConfig configures the Redis publisher.
type RedisConfig struct {
	Addr     string
	Channel  string
	MaxIdle  int
	Password string
}

// RedisPublisher publishes gesture events as JSON on a Redis channel.
type RedisPublisher struct {
	pool    *redis.Pool
	channel string
}

// NewRedisPublisher creates a publisher backed by a connection pool. No
// connection is made until the first publish.
func NewRedisPublisher(cfg RedisConfig) *RedisPublisher {
	return newPublisher(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", cfg.Addr, redis.DialConnectTimeout(2*time.Second))
		if err != nil {
			return nil, err
		}

		if cfg.Password != "" {
			if _, err := c.Do("AUTH", cfg.Password); err != nil {
				c.Close()
				return nil, err
			}
		}

		return c, err
	}, cfg.Channel, cfg.MaxIdle)
}

func newPublisher(dial func() (redis.Conn, error), channel string, maxIdle int) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if maxIdle <= 0 {
		maxIdle = 2
	}
	return &RedisPublisher{
		pool:    redis.NewPool(dial, maxIdle),
		channel: channel,
	}
}

// Channel returns the channel events are published on.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends ev to the channel and returns the number of subscribers
// that received it.
func (p *RedisPublisher) Publish(ev app.Event) (int, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	conn := p.pool.Get()
	defer conn.Close()

	n, err := redis.Int(conn.Do("PUBLISH", p.channel, payload))
	if err != nil {
		return 0, fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return n, nil
}

// Handle publishes ev and logs failures. It is meant to be registered as a
// gesture callback.
func (p *RedisPublisher) Handle(ev app.Event) {
	n, err := p.Publish(ev)
	if err != nil {
		log.Warnf("Failed to publish %s: %v", ev.Label, err)
		return
	}
	log.Debugf("Published %s to %s (%d subscribers)", ev.Label, p.channel, n)
}

// Ping checks that Redis is reachable.
func (p *RedisPublisher) Ping() error {
	conn := p.pool.Get()
	defer conn.Close()

	_, err := redis.String(conn.Do("PING"))
	return err
}

// Close releases pooled connections.
func (p *RedisPublisher) Close() error {
	return p.pool.Close()
}
