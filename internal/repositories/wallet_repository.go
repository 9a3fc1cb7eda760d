package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"goldshop/internal/models/db_models"
)

// WalletRepositoryInterface is the balance ledger. Every mutation is a
// single conditional UPDATE so concurrent callers on the same user are
// serialized by the store, not by application reads.
type WalletRepositoryInterface interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	// Credit adds amount and returns the new balance.
	Credit(ctx context.Context, userID string, amount int64) (int64, error)
	// Debit subtracts amount if the balance covers it; returns the new
	// balance, or (balance, false) when funds are short.
	Debit(ctx context.Context, userID string, amount int64) (int64, bool, error)
	EnsureWallet(ctx context.Context, userID string) error
}

func NewWalletRepository(db *gorm.DB) WalletRepositoryInterface {
	return &WalletRepository{db: db}
}

type WalletRepository struct {
	db *gorm.DB
}

func (w *WalletRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var wallet db_models.Wallet
	err := w.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, err
	}
	return wallet.GoldBalance, nil
}

func (w *WalletRepository) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	res := w.db.WithContext(ctx).Model(&db_models.Wallet{}).
		Where("user_id = ?", userID).
		Update("gold_balance", gorm.Expr("gold_balance + ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return w.GetBalance(ctx, userID)
}

func (w *WalletRepository) Debit(ctx context.Context, userID string, amount int64) (int64, bool, error) {
	res := w.db.WithContext(ctx).Model(&db_models.Wallet{}).
		Where("user_id = ? AND gold_balance >= ?", userID, amount).
		Update("gold_balance", gorm.Expr("gold_balance - ?", amount))
	if res.Error != nil {
		return 0, false, res.Error
	}
	balance, err := w.GetBalance(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if res.RowsAffected == 0 {
		return balance, false, nil
	}
	return balance, true, nil
}

func (w *WalletRepository) EnsureWallet(ctx context.Context, userID string) error {
	wallet := db_models.Wallet{UserID: userID}
	err := w.db.WithContext(ctx).Where("user_id = ?", userID).FirstOrCreate(&wallet).Error
	return err
}
