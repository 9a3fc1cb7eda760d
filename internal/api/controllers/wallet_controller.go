package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"goldshop/internal/models/request_models"
	"goldshop/internal/models/response_models"
	"goldshop/internal/services"
	"goldshop/pkg/utils"
)

type WalletController struct {
	walletService     services.WalletServiceInterface
	settlementService services.SettlementServiceInterface
	receiptService    services.ReceiptServiceInterface
}

func NewWalletController(
	walletService services.WalletServiceInterface,
	settlementService services.SettlementServiceInterface,
	receiptService services.ReceiptServiceInterface,
) *WalletController {
	return &WalletController{
		walletService:     walletService,
		settlementService: settlementService,
		receiptService:    receiptService,
	}
}

func (wc *WalletController) BalanceHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := wc.walletService.EnsureWallet(c.Request.Context(), userID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	balance, err := wc.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.BalanceResponse{
		UserID:      userID,
		GoldBalance: balance,
	}, "Fetched balance")
}

func (wc *WalletController) SettleHandler(c *gin.Context) {
	receiptCode := c.Param("receiptCode")
	if receiptCode == "" {
		utils.RespondError(c, http.StatusBadRequest, "Missing receipt code")
		return
	}

	userID := c.GetString("user_id")
	result, err := wc.settlementService.SettlePending(c.Request.Context(), userID, receiptCode)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Settlement polled")
}

func (wc *WalletController) VerifyReceiptHandler(c *gin.Context) {
	var req request_models.VerifyReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid verify request")
		return
	}

	valid := wc.receiptService.Verify(req.ReceiptCode, req.IntegrityHash, req.Signature)
	utils.RespondSuccess(c, response_models.VerifyReceiptResponse{
		ReceiptCode: req.ReceiptCode,
		Valid:       valid,
	}, "Receipt verified")
}
