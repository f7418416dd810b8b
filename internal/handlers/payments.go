package handlers

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

// PaymentService is the payment behaviour the handlers depend on.
type PaymentService interface {
	Pay(ctx context.Context, ident services.Identity, appointmentID string, in services.PayInput) (*models.Payment, error)
	Receipt(ctx context.Context, ident services.Identity, appointmentID string) ([]byte, error)
}

// PaymentHandler handles payment related requests.
type PaymentHandler struct {
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// PayRequest represents the request body for paying an appointment.
// Amount accepts a JSON number or string.
type PayRequest struct {
	PaymentMethod string           `json:"payment_method" validate:"required"`
	PhoneNumber   string           `json:"phone_number" validate:"max=15"`
	Amount        *decimal.Decimal `json:"amount"`
}

// PayAppointment records the payment of one of the caller's appointments.
func (h *PaymentHandler) PayAppointment(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}
	var req PayRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	payment, err := h.payments.Pay(c.Request.Context(), ident, c.Param("id"), services.PayInput{
		Method:      req.PaymentMethod,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Payment successful", gin.H{
		"transaction_id": payment.TransactionID,
		"amount":         payment.Amount.StringFixed(2),
		"payment_method": payment.Method,
	})
}

// GetReceipt streams the PDF receipt of an appointment's payment.
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}

	id := c.Param("id")
	doc, err := h.payments.Receipt(c.Request.Context(), ident, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "receipt-" + id + ".pdf",
	}))
	c.Data(http.StatusOK, "application/pdf", doc)
}
