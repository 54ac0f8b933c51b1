package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/repository"
)

// Issue mints a grant for (userID, couponUUID). The pre-checks here are
// advisory; the grant table's two unique indexes are what actually resolve
// concurrent calls: a (definition, user) violation becomes
// ErrDuplicateIssuance, a code violation burns one retry and redraws.
func (s *CouponService) Issue(ctx context.Context, userID, couponUUID string) (*domain.CouponGrant, error) {
	def, err := s.store.GetDefinitionByUUID(ctx, couponUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, fmt.Errorf("load definition: %w", err)
	}

	if !def.Issuable(s.now()) {
		return nil, domain.ErrCouponExpired
	}

	exists, err := s.store.GrantExists(ctx, def.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check existing grant: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateIssuance
	}

	for attempt := 0; attempt < s.codes.maxAttempts; attempt++ {
		code, err := s.codes.Generate(ctx, s.store)
		if err != nil {
			return nil, err
		}

		grant, err := s.store.InsertGrant(ctx, repository.InsertGrantParams{
			DefinitionID: def.ID,
			UserID:       userID,
			Code:         code,
		})
		if err == nil {
			s.events.GrantCreated(ctx, grant)
			return &grant, nil
		}

		switch {
		case repository.IsUniqueViolation(err, repository.ConstraintGrantUser):
			return nil, domain.ErrDuplicateIssuance
		case repository.IsUniqueViolation(err, repository.ConstraintGrantCode):
			// Lost a code race between oracle check and insert; redraw.
			continue
		default:
			return nil, fmt.Errorf("insert grant: %w", err)
		}
	}

	return nil, domain.ErrCodeSpaceExhausted
}
