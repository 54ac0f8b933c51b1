package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mogumap/coupon-engine/internal/domain"
)

// Redeem consumes a grant exactly once. The flip rides a single conditional
// update, so two concurrent calls for one code end as one success and one
// ErrAlreadyRedeemed. A call losing to the sweeper instead observes
// ErrGrantExpired.
func (s *CouponService) Redeem(ctx context.Context, code string) (*domain.CouponGrant, error) {
	grant, err := s.store.MarkGrantUsed(ctx, code)
	if err == nil {
		s.events.GrantUsed(ctx, grant)
		return &grant, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark grant used: %w", err)
	}

	// The update matched nothing: either no such code, or another writer
	// reached a terminal state first. Re-read to report which.
	grant, err = s.store.GetGrantByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, fmt.Errorf("load grant: %w", err)
	}
	if grant.Expired {
		return nil, domain.ErrGrantExpired
	}
	if grant.Used {
		return nil, domain.ErrAlreadyRedeemed
	}
	return nil, fmt.Errorf("redeem %s: grant neither used nor expired after missed update", code)
}
