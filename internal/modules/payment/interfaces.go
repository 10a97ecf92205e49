package payment

import (
	"context"
	"time"

	"subpay/internal/domain"
	"subpay/internal/gateway"
)

type paymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error)
	GetByGatewayOrderIDForUser(ctx context.Context, gatewayOrderID string, userID int64) (*domain.Payment, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]domain.Payment, int64, error)
	MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, gatewayOrderID, reason string) (bool, error)
}

type webhookEventRepo interface {
	Create(ctx context.Context, e *domain.WebhookEvent) error
	MarkProcessed(ctx context.Context, id int64, processingError string) error
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
}

type subscriptionActivator interface {
	Activate(ctx context.Context, userID int64, plan domain.Plan) error
}

type eventPublisher interface {
	PublishStatus(userID int64, gatewayOrderID string, status domain.PaymentStatus, plan domain.Plan)
}
