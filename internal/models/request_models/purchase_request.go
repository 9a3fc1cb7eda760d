package request_models

type PurchaseRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

type LimitedPurchaseRequest struct {
	PackageID string `json:"package_id" binding:"required"`
	PromoCode string `json:"promo_code"`
}

type BuyGoldRequest struct {
	ProductID     string `json:"product_id" binding:"required"`
	PaymentMethod string `json:"payment_method"`
}

type RefundRequest struct {
	ReceiptCode string `json:"receipt_code" binding:"required"`
	Reason      string `json:"reason"`
}

type ForceSettleRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=success failed"`
}

type VerifyReceiptRequest struct {
	ReceiptCode   string `json:"receipt_code" binding:"required"`
	IntegrityHash string `json:"integrity_hash" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}
