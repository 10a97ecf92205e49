package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"subpay/internal/config"
	"subpay/internal/domain"
	"subpay/internal/gateway"
	"subpay/internal/repository"
)

const maxCreateAttempts = 3

// Service owns the order lifecycle: issuing orders against the gateway,
// reconciling the client verification call and the asynchronous webhook, and
// firing subscription activation exactly once per order. The two paths race;
// the repository's conditional transitions decide the single winner.
type Service struct {
	payments  paymentRepo
	events    webhookEventRepo
	users     userReader
	gateway   orderCreator
	activator subscriptionActivator
	publisher eventPublisher
	cfg       *config.PaymentConfig
	loggerf   func(format string, args ...interface{})
}

func NewService(
	payments paymentRepo,
	events webhookEventRepo,
	users userReader,
	gw orderCreator,
	activator subscriptionActivator,
	publisher eventPublisher,
	cfg *config.PaymentConfig,
	loggerf func(format string, args ...interface{}),
) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		payments:  payments,
		events:    events,
		users:     users,
		gateway:   gw,
		activator: activator,
		publisher: publisher,
		cfg:       cfg,
		loggerf:   loggerf,
	}
}

// CreateOrder validates the plan, creates the remote order, then persists the
// local record in state created. The remote call comes first: a gateway
// failure leaves no local record, and a local unique-constraint collision
// retries with a fresh receipt and a fresh remote order.
func (s *Service) CreateOrder(ctx context.Context, userID int64, planKey string) (*CreateOrderResponse, error) {
	details, ok := LookupPlan(planKey)
	if !ok {
		return nil, ErrInvalidPlan
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	notes := map[string]string{
		"user_id":    strconv.FormatInt(userID, 10),
		"plan":       string(details.Key),
		"user_email": user.Email,
	}
	notesRaw, _ := json.Marshal(notes)

	var lastErr error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		receipt := fmt.Sprintf("rcpt_%d_%d", time.Now().UnixNano(), userID)

		order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
			Amount:   details.Price,
			Currency: details.Currency,
			Receipt:  receipt,
			Notes:    notes,
		})
		if err != nil {
			s.loggerf("level=error msg=gateway order creation failed user_id=%d plan=%s err=%v", userID, planKey, err)
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		p := &domain.Payment{
			UserID:         userID,
			GatewayOrderID: order.ID,
			Amount:         details.Price,
			Currency:       details.Currency,
			Status:         domain.PaymentStatusCreated,
			Plan:           details.Key,
			Description:    "Payment for " + details.Name,
			Receipt:        receipt,
			Notes:          string(notesRaw),
		}
		if err := s.payments.Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				lastErr = err
				s.loggerf("level=warn msg=receipt collision on order create user_id=%d attempt=%d", userID, attempt)
				continue
			}
			return nil, fmt.Errorf("save payment: %w", err)
		}

		s.loggerf("level=info msg=order created user_id=%d plan=%s gateway_order_id=%s amount=%d", userID, planKey, order.ID, details.Price)
		return &CreateOrderResponse{
			Order: OrderDescriptor{
				ID:       order.ID,
				Amount:   order.Amount,
				Currency: order.Currency,
				Receipt:  order.Receipt,
			},
			KeyID: s.cfg.KeyID,
			Plan:  details,
		}, nil
	}
	return nil, fmt.Errorf("create order: %w", lastErr)
}

// VerifyPayment processes the client-returned confirmation triple. A valid
// checkout signature transitions the record to paid; an invalid one
// transitions it to failed unless the record already reached a terminal
// state — a paid record is never downgraded by a late verification attempt.
func (s *Service) VerifyPayment(ctx context.Context, userID int64, req VerifyRequest) (*PaymentSummary, error) {
	p, err := s.payments.GetByGatewayOrderIDForUser(ctx, req.OrderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if !VerifyCheckoutSignature(s.cfg.KeySecret, req.OrderID, req.PaymentID, req.Signature) {
		s.loggerf("level=warn msg=checkout signature mismatch gateway_order_id=%s user_id=%d", req.OrderID, userID)
		changed, ferr := s.payments.MarkFailed(ctx, req.OrderID, "invalid signature")
		if ferr != nil {
			s.loggerf("level=error msg=failed to mark payment failed gateway_order_id=%s err=%v", req.OrderID, ferr)
		}
		if changed {
			s.publish(p.UserID, req.OrderID, domain.PaymentStatusFailed, p.Plan)
		}
		return nil, ErrInvalidSignature
	}

	changed, err := s.payments.MarkPaid(ctx, req.OrderID, req.PaymentID, req.Signature, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if changed {
		s.activate(ctx, p.UserID, p.Plan)
		s.publish(p.UserID, req.OrderID, domain.PaymentStatusPaid, p.Plan)
	} else {
		s.loggerf("level=info msg=verification arrived after terminal state gateway_order_id=%s status=%s", req.OrderID, p.Status)
	}

	p, err = s.payments.GetByGatewayOrderIDForUser(ctx, req.OrderID, userID)
	if err != nil {
		return nil, err
	}
	return summaryFromPayment(p), nil
}

type webhookPaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	ErrorDescription string `json:"error_description"`
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook reconciles an asynchronous gateway delivery. The signature is
// checked over the raw bytes before anything is parsed; after that point
// every outcome is acknowledged — the gateway redelivers on error responses,
// and redelivering a malformed or unknown-order event cannot succeed either.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !VerifyWebhookSignature(s.cfg.WebhookSecret, rawBody, signature) {
		s.loggerf("level=warn msg=webhook signature mismatch body_len=%d", len(rawBody))
		return ErrInvalidWebhookSignature
	}

	var env webhookEnvelope
	parseErr := json.Unmarshal(rawBody, &env)

	event := &domain.WebhookEvent{EventType: env.Event, Payload: string(rawBody)}
	if err := s.events.Create(ctx, event); err != nil {
		s.loggerf("level=error msg=failed to record webhook event event=%s err=%v", env.Event, err)
	}

	if parseErr != nil {
		s.loggerf("level=error msg=malformed webhook body err=%v", parseErr)
		s.markEvent(ctx, event.ID, "malformed body: "+parseErr.Error())
		return nil
	}

	var procErr string
	switch env.Event {
	case "payment.captured":
		procErr = s.reconcileCaptured(ctx, env.Payload.Payment.Entity)
	case "payment.failed":
		procErr = s.reconcileFailed(ctx, env.Payload.Payment.Entity)
	default:
		s.loggerf("level=info msg=unhandled webhook event event=%s", env.Event)
	}
	s.markEvent(ctx, event.ID, procErr)
	return nil
}

func (s *Service) reconcileCaptured(ctx context.Context, entity webhookPaymentEntity) string {
	p, err := s.payments.GetByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.loggerf("level=warn msg=captured webhook for unknown order gateway_order_id=%s", entity.OrderID)
			return "unknown gateway order id"
		}
		s.loggerf("level=error msg=captured webhook lookup failed gateway_order_id=%s err=%v", entity.OrderID, err)
		return err.Error()
	}

	// The webhook path has no client-supplied signature to store.
	changed, err := s.payments.MarkPaid(ctx, entity.OrderID, entity.ID, "", time.Now().UTC())
	if err != nil {
		s.loggerf("level=error msg=captured webhook transition failed gateway_order_id=%s err=%v", entity.OrderID, err)
		return err.Error()
	}
	if !changed {
		s.loggerf("level=info msg=duplicate captured webhook gateway_order_id=%s", entity.OrderID)
		return ""
	}

	s.activate(ctx, p.UserID, p.Plan)
	s.publish(p.UserID, entity.OrderID, domain.PaymentStatusPaid, p.Plan)
	return ""
}

func (s *Service) reconcileFailed(ctx context.Context, entity webhookPaymentEntity) string {
	p, err := s.payments.GetByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.loggerf("level=warn msg=failed webhook for unknown order gateway_order_id=%s", entity.OrderID)
			return "unknown gateway order id"
		}
		s.loggerf("level=error msg=failed webhook lookup failed gateway_order_id=%s err=%v", entity.OrderID, err)
		return err.Error()
	}

	reason := entity.ErrorDescription
	if reason == "" {
		reason = "payment failed"
	}
	changed, err := s.payments.MarkFailed(ctx, entity.OrderID, reason)
	if err != nil {
		s.loggerf("level=error msg=failed webhook transition failed gateway_order_id=%s err=%v", entity.OrderID, err)
		return err.Error()
	}
	if !changed {
		s.loggerf("level=info msg=failed webhook after terminal state gateway_order_id=%s", entity.OrderID)
		return ""
	}
	s.publish(p.UserID, entity.OrderID, domain.PaymentStatusFailed, p.Plan)
	return ""
}

// History returns the user's payments, newest first. The stored signature is
// excluded from serialization at the entity level.
func (s *Service) History(ctx context.Context, userID int64, page, limit int) (*HistoryResponse, error) {
	payments, total, err := s.payments.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &HistoryResponse{
		Count:    len(payments),
		Total:    total,
		Page:     page,
		Pages:    pages,
		Payments: payments,
	}, nil
}

func (s *Service) GetPayment(ctx context.Context, userID, id int64) (*domain.Payment, error) {
	p, err := s.payments.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// activate fires the entitlement projection. The payment transition is
// already committed at this point, so an activation error is logged rather
// than surfaced — the projection is last-write-wins and can be replayed.
func (s *Service) activate(ctx context.Context, userID int64, plan domain.Plan) {
	if err := s.activator.Activate(ctx, userID, plan); err != nil {
		s.loggerf("level=error msg=subscription activation failed user_id=%d plan=%s err=%v", userID, plan, err)
	}
}

func (s *Service) publish(userID int64, gatewayOrderID string, status domain.PaymentStatus, plan domain.Plan) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishStatus(userID, gatewayOrderID, status, plan)
}

func (s *Service) markEvent(ctx context.Context, id int64, procErr string) {
	if id == 0 {
		return
	}
	if err := s.events.MarkProcessed(ctx, id, procErr); err != nil {
		s.loggerf("level=error msg=failed to mark webhook event processed event_id=%d err=%v", id, err)
	}
}
