package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/repository"
)

type CouponService struct {
	store  repository.Store
	codes  *CodeGenerator
	events EventPublisher
	now    func() time.Time
}

func NewCouponService(store repository.Store, events EventPublisher) *CouponService {
	return &CouponService{
		store:  store,
		codes:  NewCodeGenerator(),
		events: events,
		now:    time.Now,
	}
}

type CreateDefinitionInput struct {
	StoreID        string
	Kind           domain.CouponKind
	DiscountType   string
	DiscountAmount int
	GiftMenuName   string
	ExpiryDate     *time.Time
}

// CreateDefinition persists a definition supplied by the store-management
// flow. Exactly one kind variant must be populated.
func (s *CouponService) CreateDefinition(ctx context.Context, input CreateDefinitionInput) (*domain.CouponDefinition, error) {
	if input.StoreID == "" {
		return nil, domain.ErrInvalidDefinition
	}
	switch input.Kind {
	case domain.KindDiscount:
		if input.DiscountType == "" || input.DiscountAmount <= 0 || input.GiftMenuName != "" {
			return nil, domain.ErrInvalidDefinition
		}
	case domain.KindGift:
		if input.GiftMenuName == "" || input.DiscountType != "" || input.DiscountAmount != 0 {
			return nil, domain.ErrInvalidDefinition
		}
	default:
		return nil, domain.ErrInvalidDefinition
	}

	def, err := s.store.CreateDefinition(ctx, repository.CreateDefinitionParams{
		UUID:           uuid.New().String(),
		StoreID:        input.StoreID,
		Kind:           input.Kind,
		DiscountType:   input.DiscountType,
		DiscountAmount: input.DiscountAmount,
		GiftMenuName:   input.GiftMenuName,
		ExpiryDate:     input.ExpiryDate,
	})
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *CouponService) GetDefinition(ctx context.Context, couponUUID string) (*domain.CouponDefinition, error) {
	def, err := s.store.GetDefinitionByUUID(ctx, couponUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	return &def, nil
}

// DefinitionStats derives per-definition usage counts from the grant rows.
func (s *CouponService) DefinitionStats(ctx context.Context, couponUUID string) (*domain.DefinitionStats, error) {
	def, err := s.GetDefinition(ctx, couponUUID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.CountGrantsByDefinition(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *CouponService) ListGrants(ctx context.Context, userID string) ([]domain.CouponGrant, error) {
	return s.store.ListGrantsByUser(ctx, userID)
}

// AttachGrantImage stores an opaque rendering payload reference produced by
// the scannable-code collaborator. The engine never interprets it.
func (s *CouponService) AttachGrantImage(ctx context.Context, grantID int64, imageRef string) error {
	return s.store.AttachGrantImage(ctx, grantID, imageRef)
}
