package limited_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"goldshop/internal/repositories"
	"goldshop/internal/services"
)

var Module = fx.Provide(
	providePackageRepository, providePromoRepository, provideLimitedService,
)

func providePackageRepository(db *gorm.DB) repositories.PackageRepositoryInterface {
	return repositories.NewPackageRepository(db)
}

func providePromoRepository(db *gorm.DB) repositories.PromoRepositoryInterface {
	return repositories.NewPromoRepository(db)
}

func provideLimitedService(
	packageRepo repositories.PackageRepositoryInterface,
	promoRepo repositories.PromoRepositoryInterface,
	txnRepo repositories.TransactionRepositoryInterface,
	wallet services.WalletServiceInterface,
	logger *zap.SugaredLogger,
) services.LimitedServiceInterface {
	return services.NewLimitedService(packageRepo, promoRepo, txnRepo, wallet, logger)
}
