package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/logger"
	"github.com/mogumap/coupon-engine/internal/repository"
)

// Sweep retires definitions whose expiry date has passed and propagates the
// expiry to their open grants. It is stateless and idempotent: the ACTIVE
// filter hides already-processed definitions and the open-grant filter hides
// already-processed grants, so the scheduler (or a test) may call it at any
// time, including right after a crashed run.
//
// Each definition commits in its own transaction. A failure skips that
// definition and is left for the next run; committed flips are never rolled
// back.
func (s *CouponService) Sweep(ctx context.Context, now time.Time) (domain.SweepReport, error) {
	var report domain.SweepReport

	due, err := s.store.ListDueDefinitions(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list due definitions: %w", err)
	}

	for _, def := range due {
		var flipped, grantsExpired int64
		err := s.store.ExecTx(ctx, func(q repository.Querier) error {
			var err error
			flipped, err = q.ExpireDefinition(ctx, def.ID)
			if err != nil {
				return fmt.Errorf("expire definition %d: %w", def.ID, err)
			}
			if flipped == 0 {
				// Another run got here first; its transaction also
				// covered the grants.
				return nil
			}
			grantsExpired, err = q.ExpireOpenGrants(ctx, def.ID)
			if err != nil {
				return fmt.Errorf("expire grants of definition %d: %w", def.ID, err)
			}
			return nil
		})
		if err != nil {
			logger.Warnw("sweep skipped definition", "definition_uuid", def.UUID, "error", err)
			report.Failed++
			continue
		}
		if flipped == 0 {
			continue
		}

		report.DefinitionsExpired++
		report.GrantsExpired += grantsExpired
		s.events.DefinitionExpired(ctx, def)
	}

	logger.Infow("sweep finished",
		"definitions_expired", report.DefinitionsExpired,
		"grants_expired", report.GrantsExpired,
		"failed", report.Failed,
	)
	return report, nil
}
