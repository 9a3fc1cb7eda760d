package db_models

import (
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TxnStatusSuccess  TransactionStatus = "success"
	TxnStatusPending  TransactionStatus = "pending"
	TxnStatusFailed   TransactionStatus = "failed"
	TxnStatusRefunded TransactionStatus = "refunded"
)

type TransactionKind string

const (
	TxnKindGold TransactionKind = "gold"
	TxnKindItem TransactionKind = "item"
)

// ShopTransaction is the append-mostly record of purchase attempts.
// Rows are never deleted; settlement moves pending to success/failed,
// refund moves success to refunded.
//
// The composite unique index over (user_id, product_id, idempotency_key)
// is the last-resort idempotency guard: whichever concurrent writer the
// store commits first wins, everyone else replays its outcome.
type ShopTransaction struct {
	BaseModel
	UserID         string          `gorm:"size:64;index;uniqueIndex:uq_shop_tx_user_product_idem"`
	ProductID      string          `gorm:"size:64;uniqueIndex:uq_shop_tx_user_product_idem"`
	IdempotencyKey *string         `gorm:"size:80;uniqueIndex:uq_shop_tx_user_product_idem"`
	Kind           TransactionKind `gorm:"size:8"`
	Quantity       int             `gorm:"default:1"`
	UnitPrice      int64
	Amount         int64
	PaymentMethod  string            `gorm:"size:16"`
	Status         TransactionStatus `gorm:"size:10;index"`
	ReceiptCode    string            `gorm:"size:32;uniqueIndex"`

	// Conversion receipts only.
	IntegrityHash    string `gorm:"size:64"`
	ReceiptSignature string `gorm:"size:128"`

	// Balance snapshot taken at attempt time, see TransactionExtra.
	Extra         datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	FailureReason string         `gorm:"size:500"`
}

type TransactionExtra struct {
	Category     ProductCategory `json:"category"`
	GoldBefore   int64           `json:"gold_before"`
	GoldDelta    int64           `json:"gold_delta"`
	GrantedGold  int64           `json:"granted_gold,omitempty"`
	SourcePoints int64           `json:"source_points,omitempty"`
	Effect       string          `json:"effect,omitempty"`
	LimitOnce    bool            `json:"limit_once,omitempty"`
	Limited      bool            `json:"limited,omitempty"`
	PromoCode    string          `json:"promo_code,omitempty"`
}
