// internal/handlers/payment.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/i18n"
	"github.com/javajoker/inkwell-backend/internal/services"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

// gatewayRetryAfter is the Retry-After hint, in seconds, sent when the
// payment gateway could not open an order.
const gatewayRetryAfter = 5

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

type CreateOrderRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required,gateway_ref"`
	PaymentID      string `json:"payment_id" validate:"required,gateway_ref"`
	// Stripe checkout returns no signature; the gateway is asked instead.
	Signature      string `json:"signature" validate:"omitempty,hexadecimal,len=64"`
}

// POST /payments/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	buyerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	order, err := h.paymentService.CreateOrder(c.Request.Context(), buyerID, uuid.MustParse(req.ItemID))
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// POST /payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	buyerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	receipt, err := h.paymentService.VerifyPayment(c.Request.Context(), buyerID, services.VerifyRequest{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentVerified),
		"receipt": receipt,
	})
}

// GET /payments/history
func (h *PaymentHandler) GetHistory(c *gin.Context) {
	buyerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	purchases, total, err := h.paymentService.GetHistory(c.Request.Context(), buyerID, params)
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /payments/earnings
func (h *PaymentHandler) GetEarnings(c *gin.Context) {
	sellerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	earnings, err := h.paymentService.GetEarnings(c.Request.Context(), sellerID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, earnings)
}

// handleError renders a service error with the status its class calls for.
// Internal failures are logged and never leak their cause to the client.
func (h *PaymentHandler) handleError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	status, code, key := errorResponseFor(err)

	switch services.Classify(err) {
	case services.ClassUpstream:
		utils.ServiceUnavailableResponse(c, code, i18n.T(lang, key), gatewayRetryAfter)
		return
	case services.ClassInternal:
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": utils.GetRequestIDFromContext(c),
			"path":       c.Request.URL.Path,
		}).Error("Payment request failed")
		if !errors.Is(err, services.ErrLedgerFailure) {
			utils.InternalErrorResponse(c, "")
			return
		}
	}

	utils.ErrorResponse(c, status, code, i18n.T(lang, key), nil)
}

func errorResponseFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound, "ITEM_NOT_FOUND", i18n.KeyItemNotFound
	case errors.Is(err, services.ErrItemNotPurchasable):
		return http.StatusUnprocessableEntity, "ITEM_NOT_PURCHASABLE", i18n.KeyItemNotPurchasable
	case errors.Is(err, services.ErrOwnItem):
		return http.StatusUnprocessableEntity, "OWN_ITEM", i18n.KeyItemOwnedByBuyer
	case errors.Is(err, services.ErrAlreadyPurchased):
		return http.StatusConflict, "ALREADY_PURCHASED", i18n.KeyItemAlreadyPurchase
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound, "ORDER_NOT_FOUND", i18n.KeyOrderNotFound
	case errors.Is(err, services.ErrOrderOwnershipMismatch):
		return http.StatusForbidden, "ORDER_OWNERSHIP_MISMATCH", i18n.KeyOrderOwnershipMismatch
	case errors.Is(err, services.ErrOrderClosed):
		return http.StatusConflict, "ORDER_CLOSED", i18n.KeyOrderClosed
	case errors.Is(err, services.ErrPaymentIncomplete):
		return http.StatusConflict, "PAYMENT_INCOMPLETE", i18n.KeyPaymentIncomplete
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusBadRequest, "INVALID_SIGNATURE", i18n.KeyPaymentInvalidSignature
	case errors.Is(err, services.ErrPaymentGatewayUnavailable):
		return http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", i18n.KeyPaymentGatewayUnavailable
	case errors.Is(err, services.ErrLedgerFailure):
		return http.StatusInternalServerError, "LEDGER_FAILURE", i18n.KeyPaymentLedgerFailure
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", i18n.KeyInternalError
	}
}
