package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	traceID := c.GetString("trace_id")
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	traceID := c.GetString("trace_id")
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID,
	})
}

// HandleServiceError maps the purchase error taxonomy onto HTTP statuses.
// Validation errors carry no side effects, so 4xx is always safe to retry
// with a fixed request; ErrPurchaseInProgress is the one retry-as-is case.
func HandleServiceError(c *gin.Context, err error) {
	var short *InsufficientGoldError
	switch {
	case errors.Is(err, ErrInvalidProduct),
		errors.Is(err, ErrInvalidPromo),
		errors.Is(err, ErrPackageUnavailable):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyPurchased),
		errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrPerUserLimit),
		errors.Is(err, ErrNotRefundable),
		errors.Is(err, ErrNotSettleable):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPurchaseInProgress):
		RespondError(c, http.StatusConflict, "purchase in progress, retry later")
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrWalletNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &short):
		RespondError(c, http.StatusPaymentRequired, short.Error())
	case errors.Is(err, ErrDatabaseError):
		log.Printf("Database error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.Printf("Unknown error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
