package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/domain"
)

// DefaultChannelPrefix is used when no prefix is configured.
const DefaultChannelPrefix = "fieldtrack:notes"

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string, log logrus.FieldLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("redis connected")
	return client, nil
}

// Channel names the pub/sub channel carrying one tenant's notes.
func Channel(prefix string, organizationID uuid.UUID) string {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return prefix + ":" + organizationID.String()
}

type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Publish sends note as JSON on its tenant's channel.
func (p *RedisPublisher) Publish(ctx context.Context, note domain.AuditNote) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode audit note: %w", err)
	}
	return p.client.Publish(ctx, Channel(p.prefix, note.OrganizationID), data).Err()
}

type RedisSubscriber struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

func NewRedisSubscriber(client *redis.Client, prefix string, log logrus.FieldLogger) *RedisSubscriber {
	return &RedisSubscriber{client: client, prefix: prefix, log: log}
}

// Subscribe delivers the tenant's notes to handler until ctx is done. It
// returns once the subscription is confirmed.
func (s *RedisSubscriber) Subscribe(ctx context.Context, organizationID uuid.UUID, handler func(domain.AuditNote)) error {
	pubsub := s.client.Subscribe(ctx, Channel(s.prefix, organizationID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to activity feed: %w", err)
	}
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var note domain.AuditNote
				if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
					s.log.WithError(err).Error("failed to unmarshal audit note")
					continue
				}
				handler(note)
			}
		}
	}()

	return nil
}
