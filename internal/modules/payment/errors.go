package payment

import "errors"

var (
	ErrInvalidPlan             = errors.New("invalid plan selected")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrPaymentNotFound         = errors.New("payment record not found")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
)
