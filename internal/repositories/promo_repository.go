package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"goldshop/internal/models/db_models"
)

type PromoRepositoryInterface interface {
	FindActiveByCode(ctx context.Context, code string) (*db_models.ShopPromoCode, error)
	// IncrementUsage advances used_count only while still under max_uses.
	// False means the cap was raced away.
	IncrementUsage(ctx context.Context, code string) (bool, error)
	// ReleaseUsage undoes an increment when a later step of the purchase
	// fails.
	ReleaseUsage(ctx context.Context, code string) error
}

func NewPromoRepository(db *gorm.DB) PromoRepositoryInterface {
	return &PromoRepository{db: db}
}

type PromoRepository struct {
	db *gorm.DB
}

func (p *PromoRepository) FindActiveByCode(ctx context.Context, code string) (*db_models.ShopPromoCode, error) {
	var promo db_models.ShopPromoCode
	err := p.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

func (p *PromoRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	res := p.db.WithContext(ctx).Model(&db_models.ShopPromoCode{}).
		Where("code = ? AND is_active = ?", code, true).
		Where("max_uses IS NULL OR used_count < max_uses").
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (p *PromoRepository) ReleaseUsage(ctx context.Context, code string) error {
	return p.db.WithContext(ctx).Model(&db_models.ShopPromoCode{}).
		Where("code = ? AND used_count > 0", code).
		Update("used_count", gorm.Expr("used_count - 1")).Error
}
