package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"goldshop/internal/models/db_models"
)

// TransactionSearch are the admin search filters; zero values mean
// "don't filter on this".
type TransactionSearch struct {
	UserID      string
	ProductID   string
	Status      db_models.TransactionStatus
	ReceiptCode string
	Start       *time.Time
	End         *time.Time
	Limit       int
}

type TransactionRepositoryInterface interface {
	// Create inserts the row; a duplicate on the composite idempotency
	// index surfaces as gorm.ErrDuplicatedKey for the caller to resolve.
	Create(ctx context.Context, txn *db_models.ShopTransaction) error
	FindSuccessByIdemKey(ctx context.Context, userID, productID, idemKey string) (*db_models.ShopTransaction, error)
	FindByReceipt(ctx context.Context, receiptCode string) (*db_models.ShopTransaction, error)
	FindByReceiptForUser(ctx context.Context, userID, receiptCode string) (*db_models.ShopTransaction, error)
	HasSuccess(ctx context.Context, userID, productID string) (bool, error)
	CountSuccessPurchases(ctx context.Context, userID, productID string) (int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]db_models.ShopTransaction, error)
	Search(ctx context.Context, filter TransactionSearch) ([]db_models.ShopTransaction, error)
	// MarkSettled flips pending -> status conditionally; false means the
	// row was no longer pending (someone else settled it first).
	MarkSettled(ctx context.Context, receiptCode string, status db_models.TransactionStatus, failureReason string) (bool, error)
	// MarkRefunded flips success -> refunded conditionally.
	MarkRefunded(ctx context.Context, receiptCode string, reason string) (bool, error)
}

func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &TransactionRepository{db: db}
}

type TransactionRepository struct {
	db *gorm.DB
}

func (t *TransactionRepository) Create(ctx context.Context, txn *db_models.ShopTransaction) error {
	return t.db.WithContext(ctx).Create(txn).Error
}

func (t *TransactionRepository) FindSuccessByIdemKey(ctx context.Context, userID, productID, idemKey string) (*db_models.ShopTransaction, error) {
	var txn db_models.ShopTransaction
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND idempotency_key = ? AND status = ?",
			userID, productID, idemKey, db_models.TxnStatusSuccess).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (t *TransactionRepository) FindByReceipt(ctx context.Context, receiptCode string) (*db_models.ShopTransaction, error) {
	var txn db_models.ShopTransaction
	err := t.db.WithContext(ctx).Where("receipt_code = ?", receiptCode).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (t *TransactionRepository) FindByReceiptForUser(ctx context.Context, userID, receiptCode string) (*db_models.ShopTransaction, error) {
	var txn db_models.ShopTransaction
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND receipt_code = ?", userID, receiptCode).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (t *TransactionRepository) HasSuccess(ctx context.Context, userID, productID string) (bool, error) {
	count, err := t.CountSuccessPurchases(ctx, userID, productID)
	return count > 0, err
}

func (t *TransactionRepository) CountSuccessPurchases(ctx context.Context, userID, productID string) (int64, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&db_models.ShopTransaction{}).
		Where("user_id = ? AND product_id = ? AND status = ?",
			userID, productID, db_models.TxnStatusSuccess).
		Count(&count).Error
	return count, err
}

func (t *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db_models.ShopTransaction, error) {
	var txns []db_models.ShopTransaction
	err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (t *TransactionRepository) Search(ctx context.Context, filter TransactionSearch) ([]db_models.ShopTransaction, error) {
	q := t.db.WithContext(ctx).Model(&db_models.ShopTransaction{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ReceiptCode != "" {
		q = q.Where("receipt_code = ?", filter.ReceiptCode)
	}
	if filter.Start != nil {
		q = q.Where("created_at >= ?", filter.Start.Unix())
	}
	if filter.End != nil {
		q = q.Where("created_at <= ?", filter.End.Unix())
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var txns []db_models.ShopTransaction
	err := q.Order("created_at DESC").Limit(limit).Find(&txns).Error
	return txns, err
}

func (t *TransactionRepository) MarkSettled(ctx context.Context, receiptCode string, status db_models.TransactionStatus, failureReason string) (bool, error) {
	res := t.db.WithContext(ctx).Model(&db_models.ShopTransaction{}).
		Where("receipt_code = ? AND status = ?", receiptCode, db_models.TxnStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": failureReason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (t *TransactionRepository) MarkRefunded(ctx context.Context, receiptCode string, reason string) (bool, error) {
	res := t.db.WithContext(ctx).Model(&db_models.ShopTransaction{}).
		Where("receipt_code = ? AND status = ?", receiptCode, db_models.TxnStatusSuccess).
		Updates(map[string]interface{}{
			"status":         db_models.TxnStatusRefunded,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
