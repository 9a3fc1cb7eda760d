package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"goldshop/internal/models/request_models"
	"goldshop/internal/services"
	"goldshop/pkg/utils"
)

type ShopController struct {
	shopService    services.ShopServiceInterface
	limitedService services.LimitedServiceInterface
}

func NewShopController(
	shopService services.ShopServiceInterface,
	limitedService services.LimitedServiceInterface,
) *ShopController {
	return &ShopController{
		shopService:    shopService,
		limitedService: limitedService,
	}
}

func (sc *ShopController) ListProductsHandler(c *gin.Context) {
	products, err := sc.shopService.ListProducts(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, products, "Fetched products successfully")
}

func (sc *ShopController) PriceQuoteHandler(c *gin.Context) {
	productID := c.Param("productId")
	quote, err := sc.shopService.ComputePrice(c.Request.Context(), productID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, quote, "Price computed")
}

func (sc *ShopController) PurchaseHandler(c *gin.Context) {
	var req request_models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid purchase request")
		return
	}

	userID := c.GetString("user_id")
	result, err := sc.shopService.PurchaseProduct(c.Request.Context(), userID, req.ProductID, req.IdempotencyKey)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Purchase completed")
}

func (sc *ShopController) BuyGoldHandler(c *gin.Context) {
	var req request_models.BuyGoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid gold purchase request")
		return
	}

	userID := c.GetString("user_id")
	result, err := sc.shopService.BuyGoldPending(c.Request.Context(), userID, req.ProductID, req.PaymentMethod)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Gold purchase recorded, settlement pending")
}

func (sc *ShopController) ListLimitedHandler(c *gin.Context) {
	packages, err := sc.limitedService.ListAvailable(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, packages, "Fetched limited packages successfully")
}

func (sc *ShopController) PurchaseLimitedHandler(c *gin.Context) {
	var req request_models.LimitedPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid limited purchase request")
		return
	}

	userID := c.GetString("user_id")
	result, err := sc.limitedService.PurchaseLimited(c.Request.Context(), userID, req.PackageID, req.PromoCode)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Limited package purchased")
}

func (sc *ShopController) ListTransactionsHandler(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	userID := c.GetString("user_id")
	txns, err := sc.shopService.ListTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, txns, "Fetched transactions successfully")
}
