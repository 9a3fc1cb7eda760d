package wallet_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"goldshop/internal/api/controllers"
	"goldshop/internal/repositories"
	"goldshop/internal/services"
)

var Module = fx.Provide(
	provideWalletRepository, provideWalletService, provideWalletController,
)

func provideWalletRepository(db *gorm.DB) repositories.WalletRepositoryInterface {
	return repositories.NewWalletRepository(db)
}

func provideWalletService(walletRepo repositories.WalletRepositoryInterface) services.WalletServiceInterface {
	return services.NewWalletService(walletRepo)
}

func provideWalletController(
	walletService services.WalletServiceInterface,
	settlementService services.SettlementServiceInterface,
	receiptService services.ReceiptServiceInterface,
) *controllers.WalletController {
	return controllers.NewWalletController(walletService, settlementService, receiptService)
}
