package usecase

import (
	"context"
	"time"

	"github.com/mogumap/coupon-engine/internal/domain"
)

// CouponEngine is the surface consumed by the delivery layers.
type CouponEngine interface {
	CreateDefinition(ctx context.Context, input CreateDefinitionInput) (*domain.CouponDefinition, error)
	GetDefinition(ctx context.Context, couponUUID string) (*domain.CouponDefinition, error)
	DefinitionStats(ctx context.Context, couponUUID string) (*domain.DefinitionStats, error)
	Issue(ctx context.Context, userID, couponUUID string) (*domain.CouponGrant, error)
	Redeem(ctx context.Context, code string) (*domain.CouponGrant, error)
	ListGrants(ctx context.Context, userID string) ([]domain.CouponGrant, error)
	Sweep(ctx context.Context, now time.Time) (domain.SweepReport, error)
}

// EventPublisher is the fire-and-forget notification point for downstream
// messaging consumers. Implementations must not block the calling operation
// on delivery.
type EventPublisher interface {
	GrantCreated(ctx context.Context, grant domain.CouponGrant)
	GrantUsed(ctx context.Context, grant domain.CouponGrant)
	DefinitionExpired(ctx context.Context, def domain.CouponDefinition)
}
