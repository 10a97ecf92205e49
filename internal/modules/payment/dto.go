package payment

import (
	"time"

	"subpay/internal/domain"
)

type CreateOrderRequest struct {
	Plan string `json:"plan" binding:"required" example:"premium"`
}

// OrderDescriptor is what the caller needs to open checkout.
type OrderDescriptor struct {
	ID       string `json:"id" example:"order_NXhJ2oRmXh3EXa"`
	Amount   int64  `json:"amount" example:"2999"`
	Currency string `json:"currency" example:"INR"`
	Receipt  string `json:"receipt" example:"rcpt_1700000000000000000_42"`
}

type CreateOrderResponse struct {
	Order OrderDescriptor `json:"order"`
	KeyID string          `json:"key_id" example:"rzp_test_abc123"`
	Plan  PlanDetails     `json:"plan"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// PaymentSummary is the redacted projection returned to clients. The stored
// signature is never part of any client-facing payload.
type PaymentSummary struct {
	ID               int64      `json:"id"`
	GatewayOrderID   string     `json:"gateway_order_id"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

type HistoryResponse struct {
	Count    int              `json:"count"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Payments []domain.Payment `json:"payments"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"invalid request"`
}

func summaryFromPayment(p *domain.Payment) *PaymentSummary {
	return &PaymentSummary{
		ID:               p.ID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Plan:             string(p.Plan),
		Status:           string(p.Status),
		PaidAt:           p.PaidAt,
	}
}
