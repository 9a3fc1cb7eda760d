package db_models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type ProductCategory string

const (
	CategoryConversion ProductCategory = "conversion"
	CategoryItem       ProductCategory = "item"
)

// ShopProduct is a catalog entry. Category-specific policy lives in Extra:
// conversion products carry gold_out/source_points, item products carry
// effect and an optional limit_once flag. Catalog writes happen elsewhere;
// this service only reads.
type ShopProduct struct {
	BaseModel
	ProductID   string `gorm:"uniqueIndex;size:64"`
	Name        string
	Description string
	Price       int64
	IsActive    bool           `gorm:"default:true"`
	Extra       datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

type ProductExtra struct {
	Category     ProductCategory `json:"category"`
	GoldOut      int64           `json:"gold_out,omitempty"`
	SourcePoints int64           `json:"source_points,omitempty"`
	Effect       string          `json:"effect,omitempty"`
	LimitOnce    bool            `json:"limit_once,omitempty"`
}

// ParsedExtra decodes the policy bag; missing category defaults to item,
// matching how the catalog seeds older rows.
func (p *ShopProduct) ParsedExtra() ProductExtra {
	var extra ProductExtra
	if len(p.Extra) > 0 {
		_ = json.Unmarshal(p.Extra, &extra)
	}
	if extra.Category == "" {
		extra.Category = CategoryItem
	}
	return extra
}
