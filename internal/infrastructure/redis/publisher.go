package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

const DefaultChannelPrefix = "complaints"

// Publisher is a dispatch sink that publishes facts on Redis pub/sub.
// Each fact goes to the shared events channel and to the recipient's own
// channel, e.g. "complaints.citizen.cit-1".
type Publisher struct {
	client redis.UniversalClient
	prefix string
}

func NewPublisher(client redis.UniversalClient, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Publisher{client: client, prefix: prefix}
}

func (p *Publisher) Name() string { return "redis" }

// EventsChannel carries every fact.
func (p *Publisher) EventsChannel() string {
	return p.prefix + ".events"
}

// RecipientChannel carries the facts addressed to one recipient.
func (p *Publisher) RecipientChannel(t notification.RecipientType, id string) string {
	return p.prefix + "." + strings.ToLower(string(t)) + "." + id
}

func (p *Publisher) Deliver(ctx context.Context, fact *notification.Fact) error {
	payload, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("encode fact: %w", err)
	}
	pipe := p.client.Pipeline()
	pipe.Publish(ctx, p.EventsChannel(), payload)
	if fact.RecipientID != "" {
		pipe.Publish(ctx, p.RecipientChannel(fact.RecipientType, fact.RecipientID), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish fact %s: %w", fact.ID, err)
	}
	return nil
}

var _ notification.Sink = (*Publisher)(nil)
