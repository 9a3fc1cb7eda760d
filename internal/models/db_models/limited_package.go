package db_models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ShopLimitedPackage is a finite-stock, time-windowed offer.
// StockRemaining == nil means unlimited. The stock counter is only ever
// decremented through a conditional UPDATE (stock_remaining > 0), so it
// can never go negative under contention.
type ShopLimitedPackage struct {
	BaseModel
	PackageID         string `gorm:"uniqueIndex;size:64"`
	Name              string
	Description       string
	Price             int64
	StockRemaining    *int
	PerUserLimit      *int
	StartsAt          *int64
	EndsAt            *int64
	IsActive          bool           `gorm:"default:true"`
	EmergencyDisabled bool           `gorm:"default:false"`
	Contents          datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

type PackageContents struct {
	BonusGold int64 `json:"bonus_gold,omitempty"`
}

func (p *ShopLimitedPackage) ParsedContents() PackageContents {
	var contents PackageContents
	if len(p.Contents) > 0 {
		_ = json.Unmarshal(p.Contents, &contents)
	}
	return contents
}

// InWindow reports whether the package is open for sale at now.
// Nil boundaries are open-ended.
func (p *ShopLimitedPackage) InWindow(now time.Time) bool {
	ts := now.Unix()
	if p.StartsAt != nil && ts < *p.StartsAt {
		return false
	}
	if p.EndsAt != nil && ts > *p.EndsAt {
		return false
	}
	return true
}
