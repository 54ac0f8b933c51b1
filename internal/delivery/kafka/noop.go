package kafka

import (
	"context"

	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/usecase"
)

// NoopPublisher satisfies the event contract when messaging is disabled.
type NoopPublisher struct{}

func NewNoopPublisher() usecase.EventPublisher {
	return &NoopPublisher{}
}

func (*NoopPublisher) GrantCreated(context.Context, domain.CouponGrant)           {}
func (*NoopPublisher) GrantUsed(context.Context, domain.CouponGrant)              {}
func (*NoopPublisher) DefinitionExpired(context.Context, domain.CouponDefinition) {}
