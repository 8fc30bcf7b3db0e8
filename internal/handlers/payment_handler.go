package handlers

import (
	"net/http"

	"chapacerto/internal/middleware"
	"chapacerto/internal/services"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	payments services.PaymentService
}

func NewPaymentHandler(payments services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateIntent starts (or resumes) the Pix charge for an order's contact fee.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	intent, err := h.payments.CreateIntent(c.Request.Context(), middleware.UserID(c), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

// Poll checks the charge with the processor. Clients call this every few
// seconds while the QR code is displayed.
func (h *PaymentHandler) Poll(c *gin.Context) {
	intentID := c.Param("intent_id")
	if intentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intent_id"})
		return
	}
	result, err := h.payments.PollStatus(c.Request.Context(), middleware.UserID(c), intentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Receipt returns the structured record of the settled contact fee.
func (h *PaymentHandler) Receipt(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	receipt, err := h.payments.Receipt(middleware.UserID(c), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
