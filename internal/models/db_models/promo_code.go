package db_models

import "time"

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFlat    DiscountType = "flat"
)

// ShopPromoCode caps redemptions with max_uses/used_count. The counter is
// only ever advanced through a conditional UPDATE (used_count < max_uses),
// never a read-modify-write.
type ShopPromoCode struct {
	BaseModel
	Code         string       `gorm:"uniqueIndex;size:32"`
	DiscountType DiscountType `gorm:"size:8"`
	Value        int64
	PackageID    string `gorm:"size:64"` // empty = valid for any package
	StartsAt     *int64
	EndsAt       *int64
	MaxUses      *int
	UsedCount    int  `gorm:"default:0"`
	IsActive     bool `gorm:"default:true"`
}

// AppliesTo checks scope, window and (statically) the usage cap.
// The cap is re-checked atomically at redemption time.
func (pc *ShopPromoCode) AppliesTo(packageID string, now time.Time) bool {
	if !pc.IsActive {
		return false
	}
	if pc.PackageID != "" && pc.PackageID != packageID {
		return false
	}
	ts := now.Unix()
	if pc.StartsAt != nil && ts < *pc.StartsAt {
		return false
	}
	if pc.EndsAt != nil && ts > *pc.EndsAt {
		return false
	}
	if pc.MaxUses != nil && pc.UsedCount >= *pc.MaxUses {
		return false
	}
	return true
}

// Discounted applies the promo to price. Percent floors, flat clamps at zero.
func (pc *ShopPromoCode) Discounted(price int64) int64 {
	switch pc.DiscountType {
	case DiscountPercent:
		discounted := price * (100 - pc.Value) / 100
		if discounted < 0 {
			return 0
		}
		return discounted
	case DiscountFlat:
		if pc.Value >= price {
			return 0
		}
		return price - pc.Value
	}
	return price
}
