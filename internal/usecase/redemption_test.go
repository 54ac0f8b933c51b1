package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/mogumap/coupon-engine/internal/domain"
)

func TestRedeem_Success(t *testing.T) {
	store := &mockStore{
		markGrantUsedFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{ID: 1, Code: code, Used: true}, nil
		},
	}

	svc, events := newTestService(store)
	grant, err := svc.Redeem(context.Background(), "Ab12Cd")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !grant.Used {
		t.Fatal("expected grant marked used")
	}
	if len(events.grantsUsed) != 1 {
		t.Fatalf("expected one grant-used event, got %d", len(events.grantsUsed))
	}
}

func TestRedeem_GrantNotFound(t *testing.T) {
	store := &mockStore{
		markGrantUsedFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{}, pgx.ErrNoRows
		},
		getGrantByCodeFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{}, pgx.ErrNoRows
		},
	}

	svc, _ := newTestService(store)
	_, err := svc.Redeem(context.Background(), "nope")
	if !errors.Is(err, domain.ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}
}

func TestRedeem_GrantExpired(t *testing.T) {
	store := &mockStore{
		markGrantUsedFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{}, pgx.ErrNoRows
		},
		getGrantByCodeFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{Code: code, Expired: true}, nil
		},
	}

	svc, events := newTestService(store)
	_, err := svc.Redeem(context.Background(), "old123")
	if !errors.Is(err, domain.ErrGrantExpired) {
		t.Fatalf("expected ErrGrantExpired, got %v", err)
	}
	if len(events.grantsUsed) != 0 {
		t.Fatal("no event expected on failed redemption")
	}
}

func TestRedeem_AlreadyRedeemed(t *testing.T) {
	store := &mockStore{
		markGrantUsedFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{}, pgx.ErrNoRows
		},
		getGrantByCodeFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			return domain.CouponGrant{Code: code, Used: true}, nil
		},
	}

	svc, _ := newTestService(store)
	_, err := svc.Redeem(context.Background(), "spent1")
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}
}

// TestRedeem_ConcurrentDoubleRedeem drives N concurrent redemptions of one
// code against a store that honors the conditional-update contract: exactly
// one caller flips the flag, everyone else loses and re-reads a used grant.
func TestRedeem_ConcurrentDoubleRedeem(t *testing.T) {
	var mu sync.Mutex
	used := false
	store := &mockStore{
		markGrantUsedFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			mu.Lock()
			defer mu.Unlock()
			if used {
				return domain.CouponGrant{}, pgx.ErrNoRows
			}
			used = true
			return domain.CouponGrant{ID: 1, Code: code, Used: true}, nil
		},
		getGrantByCodeFn: func(ctx context.Context, code string) (domain.CouponGrant, error) {
			mu.Lock()
			defer mu.Unlock()
			return domain.CouponGrant{ID: 1, Code: code, Used: used}, nil
		},
	}

	svc, events := newTestService(store)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), "race01")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrAlreadyRedeemed):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", successes)
	}
	if rejected != callers-1 {
		t.Fatalf("expected %d AlreadyRedeemed failures, got %d", callers-1, rejected)
	}
	if len(events.grantsUsed) != 1 {
		t.Fatalf("expected exactly one grant-used event, got %d", len(events.grantsUsed))
	}
}
