package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/logger"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher emits engine events to Kafka. Delivery is fire-and-forget: the
// issuing or redeeming request never waits on the broker, and a failed
// produce is only logged.
type Publisher struct {
	client *kgo.Client
}

func NewPublisher(client *kgo.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) GrantCreated(ctx context.Context, grant domain.CouponGrant) {
	p.publish(ctx, TopicGrantCreated, []byte(grant.Code), grantPayload(grant))
}

func (p *Publisher) GrantUsed(ctx context.Context, grant domain.CouponGrant) {
	p.publish(ctx, TopicGrantUsed, []byte(grant.Code), grantPayload(grant))
}

func (p *Publisher) DefinitionExpired(ctx context.Context, def domain.CouponDefinition) {
	p.publish(ctx, TopicDefinitionExpired, []byte(def.UUID), DefinitionEventPayload{
		SchemaVersion:  1,
		EventID:        uuid.New().String(),
		OccurredAt:     time.Now(),
		DefinitionUUID: def.UUID,
		StoreID:        def.StoreID,
		ExpiryDate:     def.ExpiryDate,
	})
}

func (p *Publisher) publish(ctx context.Context, topic string, key []byte, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		logger.Errorw("failed to encode event payload", "topic", topic, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			logger.Warnw("failed to publish event", "topic", r.Topic, "error", err)
		}
	})
}

func grantPayload(grant domain.CouponGrant) GrantEventPayload {
	return GrantEventPayload{
		SchemaVersion: 1,
		EventID:       uuid.New().String(),
		OccurredAt:    time.Now(),
		GrantID:       grant.ID,
		DefinitionID:  grant.DefinitionID,
		UserID:        grant.UserID,
		Code:          grant.Code,
		UsedAt:        grant.UsedAt,
	}
}
