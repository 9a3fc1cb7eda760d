package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"goldshop/internal/models/db_models"
)

type ProductRepositoryInterface interface {
	ListActive(ctx context.Context) ([]db_models.ShopProduct, error)
	// FindByProductID returns the row even if inactive; eligibility is
	// the orchestrator's call. Soft-deleted rows are not returned.
	FindByProductID(ctx context.Context, productID string) (*db_models.ShopProduct, error)
	ActiveDiscounts(ctx context.Context, productID string, now time.Time) ([]db_models.ShopDiscount, error)
}

func NewProductRepository(db *gorm.DB) ProductRepositoryInterface {
	return &ProductRepository{db: db}
}

type ProductRepository struct {
	db *gorm.DB
}

func (p *ProductRepository) ListActive(ctx context.Context) ([]db_models.ShopProduct, error) {
	var products []db_models.ShopProduct
	err := p.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&products).Error
	return products, err
}

func (p *ProductRepository) FindByProductID(ctx context.Context, productID string) (*db_models.ShopProduct, error) {
	var product db_models.ShopProduct
	err := p.db.WithContext(ctx).Where("product_id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (p *ProductRepository) ActiveDiscounts(ctx context.Context, productID string, now time.Time) ([]db_models.ShopDiscount, error) {
	ts := now.Unix()
	var discounts []db_models.ShopDiscount
	err := p.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Where("starts_at IS NULL OR starts_at <= ?", ts).
		Where("ends_at IS NULL OR ends_at >= ?", ts).
		Order("created_at ASC").
		Find(&discounts).Error
	return discounts, err
}
