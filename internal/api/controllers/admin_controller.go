package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"goldshop/internal/models/db_models"
	"goldshop/internal/models/request_models"
	"goldshop/internal/repositories"
	"goldshop/internal/services"
	"goldshop/pkg/utils"
)

type AdminController struct {
	shopService       services.ShopServiceInterface
	settlementService services.SettlementServiceInterface
}

func NewAdminController(
	shopService services.ShopServiceInterface,
	settlementService services.SettlementServiceInterface,
) *AdminController {
	return &AdminController{
		shopService:       shopService,
		settlementService: settlementService,
	}
}

func (ac *AdminController) SearchTransactionsHandler(c *gin.Context) {
	filter := repositories.TransactionSearch{
		UserID:      c.Query("user_id"),
		ProductID:   c.Query("product_id"),
		Status:      db_models.TransactionStatus(c.Query("status")),
		ReceiptCode: c.Query("receipt_code"),
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			utils.RespondError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}
	if startStr := c.Query("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid start time")
			return
		}
		filter.Start = &start
	}
	if endStr := c.Query("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid end time")
			return
		}
		filter.End = &end
	}

	txns, err := ac.shopService.SearchTransactions(c.Request.Context(), filter)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, txns, "Fetched transactions")
}

func (ac *AdminController) RefundHandler(c *gin.Context) {
	var req request_models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid refund request")
		return
	}

	if err := ac.shopService.Refund(c.Request.Context(), req.ReceiptCode, req.Reason); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Refund completed")
}

func (ac *AdminController) ForceSettleHandler(c *gin.Context) {
	receiptCode := c.Param("receiptCode")
	var req request_models.ForceSettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid force settle request")
		return
	}

	result, err := ac.settlementService.ForceSettle(c.Request.Context(), receiptCode, db_models.TransactionStatus(req.Outcome))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Force settle applied")
}
