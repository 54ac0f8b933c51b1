package domain

import (
	"errors"
	"time"
)

var (
	ErrCouponNotFound     = errors.New("coupon definition not found")
	ErrCouponExpired      = errors.New("coupon definition is expired")
	ErrDuplicateIssuance  = errors.New("user already holds a grant for this coupon")
	ErrCodeSpaceExhausted = errors.New("could not mint a unique redemption code")
	ErrGrantNotFound      = errors.New("grant not found")
	ErrGrantExpired       = errors.New("grant is expired")
	ErrAlreadyRedeemed    = errors.New("grant has already been redeemed")
	ErrInvalidDefinition  = errors.New("invalid coupon definition")
)

type CouponKind string

const (
	KindDiscount CouponKind = "DISCOUNT"
	KindGift     CouponKind = "GIFT"
)

type DefinitionStatus string

const (
	StatusActive  DefinitionStatus = "ACTIVE"
	StatusExpired DefinitionStatus = "EXPIRED"
)

// CouponDefinition is a store-issued offer template. The storage id stays
// internal; only the UUID is handed to external callers.
type CouponDefinition struct {
	ID             int64
	UUID           string
	StoreID        string
	Kind           CouponKind
	DiscountType   string
	DiscountAmount int
	GiftMenuName   string
	Status         DefinitionStatus
	HasExpiryDate  bool
	ExpiryDate     *time.Time
	CreatedAt      time.Time
}

// Issuable reports whether new grants may still be minted against the
// definition at the given instant.
func (d *CouponDefinition) Issuable(now time.Time) bool {
	if d.Status != StatusActive {
		return false
	}
	if d.HasExpiryDate && d.ExpiryDate != nil && !d.ExpiryDate.After(now) {
		return false
	}
	return true
}

// CouponGrant is one user's claim on a coupon definition. Used and Expired
// are both monotonic: once set they never revert.
type CouponGrant struct {
	ID           int64
	DefinitionID int64
	UserID       string
	Code         string
	Used         bool
	Expired      bool
	ImageRef     string
	CreatedAt    time.Time
	UsedAt       *time.Time
}

// DefinitionStats are derived counts over a definition's grants. They are
// computed on read, never stored on grant rows.
type DefinitionStats struct {
	Total   int64
	Used    int64
	Expired int64
	Open    int64
}

// SweepReport summarizes one sweeper run.
type SweepReport struct {
	DefinitionsExpired int
	GrantsExpired      int64
	Failed             int
}
