package db_models

// Wallet is the per-user gold balance owned by the ledger. All mutations
// go through conditional updates in the wallet repository; the balance
// never goes negative.
type Wallet struct {
	BaseModel
	UserID      string `gorm:"uniqueIndex;size:64"`
	GoldBalance int64  `gorm:"default:0"`
}
