package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/repository"
)

type mockStore struct {
	createDefinitionFn    func(ctx context.Context, arg repository.CreateDefinitionParams) (domain.CouponDefinition, error)
	getDefinitionByUUIDFn func(ctx context.Context, uuid string) (domain.CouponDefinition, error)
	listDueDefinitionsFn  func(ctx context.Context, now time.Time) ([]domain.CouponDefinition, error)
	insertGrantFn         func(ctx context.Context, arg repository.InsertGrantParams) (domain.CouponGrant, error)
	getGrantByCodeFn      func(ctx context.Context, code string) (domain.CouponGrant, error)
	grantExistsFn         func(ctx context.Context, definitionID int64, userID string) (bool, error)
	codeExistsFn          func(ctx context.Context, code string) (bool, error)
	listGrantsByUserFn    func(ctx context.Context, userID string) ([]domain.CouponGrant, error)
	markGrantUsedFn       func(ctx context.Context, code string) (domain.CouponGrant, error)
	attachGrantImageFn    func(ctx context.Context, grantID int64, imageRef string) error
	countGrantsFn         func(ctx context.Context, definitionID int64) (domain.DefinitionStats, error)
	execTxFn              func(ctx context.Context, fn func(repository.Querier) error) error
	expireDefinitionFn    func(ctx context.Context, id int64) (int64, error)
	expireOpenGrantsFn    func(ctx context.Context, definitionID int64) (int64, error)
}

func (m *mockStore) CreateDefinition(ctx context.Context, arg repository.CreateDefinitionParams) (domain.CouponDefinition, error) {
	if m.createDefinitionFn != nil {
		return m.createDefinitionFn(ctx, arg)
	}
	return domain.CouponDefinition{}, nil
}

func (m *mockStore) GetDefinitionByUUID(ctx context.Context, uuid string) (domain.CouponDefinition, error) {
	if m.getDefinitionByUUIDFn != nil {
		return m.getDefinitionByUUIDFn(ctx, uuid)
	}
	return domain.CouponDefinition{}, nil
}

func (m *mockStore) ListDueDefinitions(ctx context.Context, now time.Time) ([]domain.CouponDefinition, error) {
	if m.listDueDefinitionsFn != nil {
		return m.listDueDefinitionsFn(ctx, now)
	}
	return nil, nil
}

func (m *mockStore) InsertGrant(ctx context.Context, arg repository.InsertGrantParams) (domain.CouponGrant, error) {
	if m.insertGrantFn != nil {
		return m.insertGrantFn(ctx, arg)
	}
	return domain.CouponGrant{DefinitionID: arg.DefinitionID, UserID: arg.UserID, Code: arg.Code}, nil
}

func (m *mockStore) GetGrantByCode(ctx context.Context, code string) (domain.CouponGrant, error) {
	if m.getGrantByCodeFn != nil {
		return m.getGrantByCodeFn(ctx, code)
	}
	return domain.CouponGrant{}, nil
}

func (m *mockStore) GrantExists(ctx context.Context, definitionID int64, userID string) (bool, error) {
	if m.grantExistsFn != nil {
		return m.grantExistsFn(ctx, definitionID, userID)
	}
	return false, nil
}

func (m *mockStore) CodeExists(ctx context.Context, code string) (bool, error) {
	if m.codeExistsFn != nil {
		return m.codeExistsFn(ctx, code)
	}
	return false, nil
}

func (m *mockStore) ListGrantsByUser(ctx context.Context, userID string) ([]domain.CouponGrant, error) {
	if m.listGrantsByUserFn != nil {
		return m.listGrantsByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) MarkGrantUsed(ctx context.Context, code string) (domain.CouponGrant, error) {
	if m.markGrantUsedFn != nil {
		return m.markGrantUsedFn(ctx, code)
	}
	return domain.CouponGrant{Code: code, Used: true}, nil
}

func (m *mockStore) AttachGrantImage(ctx context.Context, grantID int64, imageRef string) error {
	if m.attachGrantImageFn != nil {
		return m.attachGrantImageFn(ctx, grantID, imageRef)
	}
	return nil
}

func (m *mockStore) CountGrantsByDefinition(ctx context.Context, definitionID int64) (domain.DefinitionStats, error) {
	if m.countGrantsFn != nil {
		return m.countGrantsFn(ctx, definitionID)
	}
	return domain.DefinitionStats{}, nil
}

func (m *mockStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	if m.execTxFn != nil {
		return m.execTxFn(ctx, fn)
	}
	return fn(m)
}

func (m *mockStore) ExpireDefinition(ctx context.Context, id int64) (int64, error) {
	if m.expireDefinitionFn != nil {
		return m.expireDefinitionFn(ctx, id)
	}
	return 1, nil
}

func (m *mockStore) ExpireOpenGrants(ctx context.Context, definitionID int64) (int64, error) {
	if m.expireOpenGrantsFn != nil {
		return m.expireOpenGrantsFn(ctx, definitionID)
	}
	return 0, nil
}

type recordedEvents struct {
	mu                 sync.Mutex
	grantsCreated      []domain.CouponGrant
	grantsUsed         []domain.CouponGrant
	definitionsExpired []domain.CouponDefinition
}

func (r *recordedEvents) GrantCreated(_ context.Context, grant domain.CouponGrant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grantsCreated = append(r.grantsCreated, grant)
}

func (r *recordedEvents) GrantUsed(_ context.Context, grant domain.CouponGrant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grantsUsed = append(r.grantsUsed, grant)
}

func (r *recordedEvents) DefinitionExpired(_ context.Context, def domain.CouponDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitionsExpired = append(r.definitionsExpired, def)
}

func newTestService(store repository.Store) (*CouponService, *recordedEvents) {
	events := &recordedEvents{}
	svc := NewCouponService(store, events)
	return svc, events
}

func activeDefinition(expiry *time.Time) domain.CouponDefinition {
	return domain.CouponDefinition{
		ID:            7,
		UUID:          "11111111-2222-3333-4444-555555555555",
		StoreID:       "store-1",
		Kind:          domain.KindDiscount,
		DiscountType:  "PERCENT",
		Status:        domain.StatusActive,
		HasExpiryDate: expiry != nil,
		ExpiryDate:    expiry,
	}
}
