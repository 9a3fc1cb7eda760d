package shop_fx

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"goldshop/internal/api/controllers"
	"goldshop/internal/repositories"
	"goldshop/internal/services"
	"goldshop/pkg/lock"
)

var Module = fx.Provide(
	provideProductRepository, provideTransactionRepository,
	provideReceiptService, provideShopService, provideShopController,
)

func provideProductRepository(db *gorm.DB) repositories.ProductRepositoryInterface {
	return repositories.NewProductRepository(db)
}

func provideTransactionRepository(db *gorm.DB) repositories.TransactionRepositoryInterface {
	return repositories.NewTransactionRepository(db)
}

func provideReceiptService() services.ReceiptServiceInterface {
	return services.NewReceiptService(
		os.Getenv("RECEIPT_HMAC_SECRET"),
		os.Getenv("RECEIPT_HMAC_SECRET_NEXT"),
	)
}

func provideShopService(
	productRepo repositories.ProductRepositoryInterface,
	txnRepo repositories.TransactionRepositoryInterface,
	wallet services.WalletServiceInterface,
	receipts services.ReceiptServiceInterface,
	preLock lock.PreLocker,
	logger *zap.SugaredLogger,
) services.ShopServiceInterface {
	return services.NewShopService(productRepo, txnRepo, wallet, receipts, preLock, logger)
}

func provideShopController(
	shopService services.ShopServiceInterface,
	limitedService services.LimitedServiceInterface,
) *controllers.ShopController {
	return controllers.NewShopController(shopService, limitedService)
}
