package db_models

import "time"

// ShopDiscount is a product-scoped, time-windowed catalog discount used
// by the price preview. Only the first active discount applies; stacking
// is deliberately not supported.
type ShopDiscount struct {
	BaseModel
	ProductID    string       `gorm:"size:64;index"`
	DiscountType DiscountType `gorm:"size:8"`
	Value        int64
	StartsAt     *int64
	EndsAt       *int64
	IsActive     bool `gorm:"default:true"`
}

func (d *ShopDiscount) InWindow(now time.Time) bool {
	ts := now.Unix()
	if d.StartsAt != nil && ts < *d.StartsAt {
		return false
	}
	if d.EndsAt != nil && ts > *d.EndsAt {
		return false
	}
	return true
}

func (d *ShopDiscount) Apply(price int64) int64 {
	var discounted int64
	switch d.DiscountType {
	case DiscountPercent:
		discounted = price - price*d.Value/100
	case DiscountFlat:
		discounted = price - d.Value
	default:
		discounted = price
	}
	if discounted < 0 {
		return 0
	}
	return discounted
}
