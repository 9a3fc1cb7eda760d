package response_models

type PurchaseResponse struct {
	ProductID      string `json:"product_id"`
	Category       string `json:"category"`
	GoldBefore     int64  `json:"gold_before"`
	GoldDelta      int64  `json:"gold_delta"`
	GoldAfter      int64  `json:"gold_after"`
	TransactionID  string `json:"transaction_id"`
	ReceiptCode    string `json:"receipt_code"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Idempotent     bool   `json:"idempotent,omitempty"`
}

type LimitedPurchaseResponse struct {
	PackageID   string `json:"package_id"`
	PricePaid   int64  `json:"price_paid"`
	NewBalance  int64  `json:"new_balance"`
	ReceiptCode string `json:"receipt_code"`
	BonusGold   int64  `json:"bonus_gold,omitempty"`
}

type SettleResponse struct {
	ReceiptCode string `json:"receipt_code"`
	Status      string `json:"status"`
	NewBalance  *int64 `json:"new_balance,omitempty"`
}

type ProductResponse struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
}

type PriceQuoteResponse struct {
	ProductID       string `json:"product_id"`
	BasePrice       int64  `json:"base_price"`
	FinalPrice      int64  `json:"final_price"`
	DiscountType    string `json:"discount_type,omitempty"`
	DiscountValue   int64  `json:"discount_value,omitempty"`
	DiscountApplied bool   `json:"discount_applied"`
}

type LimitedPackageResponse struct {
	PackageID      string `json:"package_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	StockRemaining *int   `json:"stock_remaining"`
	PerUserLimit   *int   `json:"per_user_limit"`
	StartsAt       *int64 `json:"starts_at"`
	EndsAt         *int64 `json:"ends_at"`
}

type TransactionResponse struct {
	UserID        string `json:"user_id,omitempty"`
	ProductID     string `json:"product_id"`
	Kind          string `json:"kind"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	ReceiptCode   string `json:"receipt_code"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

type BalanceResponse struct {
	UserID      string `json:"user_id"`
	GoldBalance int64  `json:"gold_balance"`
}

type VerifyReceiptResponse struct {
	ReceiptCode string `json:"receipt_code"`
	Valid       bool   `json:"valid"`
}
