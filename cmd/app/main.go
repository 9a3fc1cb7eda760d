package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"goldshop/cmd/fx/db_fx"
	"goldshop/cmd/fx/limited_fx"
	"goldshop/cmd/fx/logger_fx"
	"goldshop/cmd/fx/redis_fx"
	"goldshop/cmd/fx/settlement_fx"
	"goldshop/cmd/fx/shop_fx"
	"goldshop/cmd/fx/wallet_fx"
	"goldshop/internal/api/controllers"
	"goldshop/pkg/middleware"
)

func main() {
	_ = godotenv.Load()

	app := fx.New(
		logger_fx.Module,
		db_fx.Module,
		redis_fx.Module,
		wallet_fx.Module,
		shop_fx.Module,
		limited_fx.Module,
		settlement_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Println("Starting HTTP server at ${PORT}")
				if err := engine.Run(":" + os.Getenv("PORT")); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	shopController *controllers.ShopController,
	walletController *controllers.WalletController,
	adminController *controllers.AdminController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, shopController, walletController, adminController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	shopController *controllers.ShopController,
	walletController *controllers.WalletController,
	adminController *controllers.AdminController) {

	shopGroup := r.Group("/shop")
	shopGroup.GET("/products", shopController.ListProductsHandler)
	shopGroup.GET("/products/:productId/price", shopController.PriceQuoteHandler)
	shopGroup.GET("/limited", shopController.ListLimitedHandler)

	authed := shopGroup.Group("")
	authed.Use(middleware.JWTAuthMiddleware())
	authed.POST("/purchase", shopController.PurchaseHandler)
	authed.POST("/limited/purchase", shopController.PurchaseLimitedHandler)
	authed.POST("/gold/buy", shopController.BuyGoldHandler)
	authed.GET("/transactions", shopController.ListTransactionsHandler)

	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware())
	walletGroup.GET("/balance", walletController.BalanceHandler)
	walletGroup.POST("/settle/:receiptCode", walletController.SettleHandler)

	r.POST("/receipts/verify", walletController.VerifyReceiptHandler)

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	adminGroup.GET("/transactions", adminController.SearchTransactionsHandler)
	adminGroup.POST("/refund", adminController.RefundHandler)
	adminGroup.POST("/settle/:receiptCode/force", adminController.ForceSettleHandler)
}
