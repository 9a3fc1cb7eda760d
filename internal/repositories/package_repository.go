package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"goldshop/internal/models/db_models"
)

type PackageRepositoryInterface interface {
	ListAvailable(ctx context.Context, now time.Time) ([]db_models.ShopLimitedPackage, error)
	FindByPackageID(ctx context.Context, packageID string) (*db_models.ShopLimitedPackage, error)
	// DecrementStock performs the conditional decrement. False means the
	// stock was already exhausted when the update ran: the caller lost
	// the race and must not deliver.
	DecrementStock(ctx context.Context, packageID string) (bool, error)
	// RestoreStock undoes a decrement when a later step of the purchase
	// fails. No-op for unlimited packages.
	RestoreStock(ctx context.Context, packageID string) error
}

func NewPackageRepository(db *gorm.DB) PackageRepositoryInterface {
	return &PackageRepository{db: db}
}

type PackageRepository struct {
	db *gorm.DB
}

func (p *PackageRepository) ListAvailable(ctx context.Context, now time.Time) ([]db_models.ShopLimitedPackage, error) {
	ts := now.Unix()
	var packages []db_models.ShopLimitedPackage
	err := p.db.WithContext(ctx).
		Where("is_active = ? AND emergency_disabled = ?", true, false).
		Where("starts_at IS NULL OR starts_at <= ?", ts).
		Where("ends_at IS NULL OR ends_at >= ?", ts).
		Find(&packages).Error
	return packages, err
}

func (p *PackageRepository) FindByPackageID(ctx context.Context, packageID string) (*db_models.ShopLimitedPackage, error) {
	var pkg db_models.ShopLimitedPackage
	err := p.db.WithContext(ctx).Where("package_id = ?", packageID).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (p *PackageRepository) DecrementStock(ctx context.Context, packageID string) (bool, error) {
	res := p.db.WithContext(ctx).Model(&db_models.ShopLimitedPackage{}).
		Where("package_id = ? AND stock_remaining > 0", packageID).
		Update("stock_remaining", gorm.Expr("stock_remaining - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (p *PackageRepository) RestoreStock(ctx context.Context, packageID string) error {
	return p.db.WithContext(ctx).Model(&db_models.ShopLimitedPackage{}).
		Where("package_id = ? AND stock_remaining IS NOT NULL", packageID).
		Update("stock_remaining", gorm.Expr("stock_remaining + 1")).Error
}
