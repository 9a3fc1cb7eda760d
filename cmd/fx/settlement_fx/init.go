package settlement_fx

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"goldshop/internal/api/controllers"
	"goldshop/internal/repositories"
	"goldshop/internal/services"
)

var Module = fx.Provide(
	providePaymentGateway, provideSettlementService, provideAdminController,
)

func providePaymentGateway() services.PaymentGateway {
	return services.NewStubPaymentGateway(os.Getenv("PAYMENT_GATEWAY_MODE"))
}

func provideSettlementService(
	txnRepo repositories.TransactionRepositoryInterface,
	wallet services.WalletServiceInterface,
	gateway services.PaymentGateway,
	logger *zap.SugaredLogger,
) services.SettlementServiceInterface {
	return services.NewSettlementService(txnRepo, wallet, gateway, logger)
}

func provideAdminController(
	shopService services.ShopServiceInterface,
	settlementService services.SettlementServiceInterface,
) *controllers.AdminController {
	return controllers.NewAdminController(shopService, settlementService)
}
