package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"subpay/internal/config"
	"subpay/internal/domain"
	"subpay/internal/gateway"
	"subpay/internal/repository"
)

type fakePaymentRepo struct {
	byOrderID  map[string]*domain.Payment
	createErrs []error
	nextID     int64

	createCalls     int
	markPaidCalls   int
	markFailedCalls int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byOrderID: map[string]*domain.Payment{}}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.byOrderID[p.GatewayOrderID] = &cp
	return nil
}

func (f *fakePaymentRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	p, ok := f.byOrderID[gatewayOrderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByGatewayOrderIDForUser(ctx context.Context, gatewayOrderID string, userID int64) (*domain.Payment, error) {
	p, ok := f.byOrderID[gatewayOrderID]
	if !ok || p.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Payment, error) {
	for _, p := range f.byOrderID {
		if p.ID == id && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) ListByUser(ctx context.Context, userID int64, page, limit int) ([]domain.Payment, int64, error) {
	var out []domain.Payment
	for _, p := range f.byOrderID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string, paidAt time.Time) (bool, error) {
	f.markPaidCalls++
	p, ok := f.byOrderID[gatewayOrderID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if p.Status.Terminal() {
		return false, nil
	}
	p.Status = domain.PaymentStatusPaid
	p.GatewayPaymentID = gatewayPaymentID
	if gatewaySignature != "" {
		p.GatewaySignature = gatewaySignature
	}
	t := paidAt
	p.PaidAt = &t
	return true, nil
}

func (f *fakePaymentRepo) MarkFailed(ctx context.Context, gatewayOrderID, reason string) (bool, error) {
	f.markFailedCalls++
	p, ok := f.byOrderID[gatewayOrderID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if p.Status.Terminal() {
		return false, nil
	}
	p.Status = domain.PaymentStatusFailed
	p.FailureReason = reason
	return true, nil
}

type fakeEventRepo struct {
	events    []*domain.WebhookEvent
	processed map[int64]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{processed: map[int64]string{}}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.WebhookEvent) error {
	e.ID = int64(len(f.events) + 1)
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) MarkProcessed(ctx context.Context, id int64, processingError string) error {
	f.processed[id] = processingError
	return nil
}

type fakeUserReader struct{}

func (f *fakeUserReader) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}, nil
}

type fakeGateway struct {
	err      error
	calls    int
	lastReq  gateway.OrderRequest
	orderSeq int
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	f.orderSeq++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_fake%d", f.orderSeq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

type fakeActivator struct {
	calls []string
}

func (f *fakeActivator) Activate(ctx context.Context, userID int64, plan domain.Plan) error {
	f.calls = append(f.calls, fmt.Sprintf("%d:%s", userID, plan))
	return nil
}

func testConfig() *config.PaymentConfig {
	return &config.PaymentConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "checkout-secret",
		WebhookSecret: "webhook-secret",
	}
}

func newTestService(repo *fakePaymentRepo, events *fakeEventRepo, gw *fakeGateway, activator *fakeActivator) *Service {
	return NewService(repo, events, &fakeUserReader{}, gw, activator, nil, testConfig(), nil)
}

func seedPayment(repo *fakePaymentRepo, orderID string, userID int64, status domain.PaymentStatus) *domain.Payment {
	repo.nextID++
	p := &domain.Payment{
		ID:             repo.nextID,
		UserID:         userID,
		GatewayOrderID: orderID,
		Amount:         2999,
		Currency:       "INR",
		Status:         status,
		Plan:           domain.PlanPremium,
		Receipt:        fmt.Sprintf("rcpt_test_%s", orderID),
	}
	repo.byOrderID[orderID] = p
	return p
}

func TestCreateOrder_UnknownPlan(t *testing.T) {
	repo := newFakePaymentRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, newFakeEventRepo(), gw, &fakeActivator{})

	_, err := svc.CreateOrder(context.Background(), 1, "gold")
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Zero(t, gw.calls, "gateway must not be called for an unknown plan")
	assert.Zero(t, repo.createCalls, "no record must be persisted for an unknown plan")
}

func TestCreateOrder_GatewayFailureLeavesNoRecord(t *testing.T) {
	repo := newFakePaymentRepo()
	gw := &fakeGateway{err: errors.New("connection refused")}
	svc := newTestService(repo, newFakeEventRepo(), gw, &fakeActivator{})

	_, err := svc.CreateOrder(context.Background(), 1, "basic")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Zero(t, repo.createCalls)
}

func TestCreateOrder_Success(t *testing.T) {
	repo := newFakePaymentRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, newFakeEventRepo(), gw, &fakeActivator{})

	resp, err := svc.CreateOrder(context.Background(), 42, "premium")
	require.NoError(t, err)
	assert.Equal(t, int64(2999), resp.Order.Amount)
	assert.Equal(t, "INR", resp.Order.Currency)
	assert.Equal(t, "rzp_test_key", resp.KeyID)
	assert.Equal(t, domain.PlanPremium, resp.Plan.Key)

	p := repo.byOrderID[resp.Order.ID]
	require.NotNil(t, p)
	assert.Equal(t, domain.PaymentStatusCreated, p.Status)
	assert.Equal(t, int64(42), p.UserID)
	assert.Contains(t, p.Notes, "user42@example.com")
	assert.Equal(t, gw.lastReq.Notes["plan"], "premium")
}

func TestCreateOrder_RetriesOnDuplicateReceipt(t *testing.T) {
	repo := newFakePaymentRepo()
	repo.createErrs = []error{repository.ErrDuplicateKey}
	gw := &fakeGateway{}
	svc := newTestService(repo, newFakeEventRepo(), gw, &fakeActivator{})

	resp, err := svc.CreateOrder(context.Background(), 7, "basic")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.createCalls, "a receipt collision must be retried internally")
	assert.Equal(t, 2, gw.calls, "each retry needs a fresh remote order")
	assert.NotNil(t, repo.byOrderID[resp.Order.ID])
}

func TestVerifyPayment_Success(t *testing.T) {
	repo := newFakePaymentRepo()
	activator := &fakeActivator{}
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, activator)
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	sig := hmacHex("checkout-secret", []byte("order_1|pay_1"))
	summary, err := svc.VerifyPayment(context.Background(), 42, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)

	assert.Equal(t, "paid", summary.Status)
	assert.NotNil(t, summary.PaidAt)
	p := repo.byOrderID["order_1"]
	assert.Equal(t, domain.PaymentStatusPaid, p.Status)
	assert.Equal(t, "pay_1", p.GatewayPaymentID)
	assert.Equal(t, sig, p.GatewaySignature)
	assert.Equal(t, []string{"42:premium"}, activator.calls)
}

func TestVerifyPayment_NotFound(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, &fakeActivator{})

	_, err := svc.VerifyPayment(context.Background(), 42, VerifyRequest{OrderID: "order_missing", PaymentID: "pay_1", Signature: "sig"})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestVerifyPayment_WrongOwnerIsNotFound(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, &fakeActivator{})
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	_, err := svc.VerifyPayment(context.Background(), 43, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestVerifyPayment_InvalidSignatureMarksFailed(t *testing.T) {
	repo := newFakePaymentRepo()
	activator := &fakeActivator{}
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, activator)
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	_, err := svc.VerifyPayment(context.Background(), 42, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	p := repo.byOrderID["order_1"]
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
	assert.Equal(t, "invalid signature", p.FailureReason)
	assert.Empty(t, activator.calls)
}

func TestVerifyPayment_LateInvalidSignatureDoesNotDowngradePaid(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, &fakeActivator{})
	seedPayment(repo, "order_1", 42, domain.PaymentStatusPaid)

	_, err := svc.VerifyPayment(context.Background(), 42, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, domain.PaymentStatusPaid, repo.byOrderID["order_1"].Status)
	assert.Empty(t, repo.byOrderID["order_1"].FailureReason)
}

func TestVerifyPayment_AlreadyPaidDoesNotActivateAgain(t *testing.T) {
	repo := newFakePaymentRepo()
	activator := &fakeActivator{}
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, activator)
	seedPayment(repo, "order_1", 42, domain.PaymentStatusPaid)

	sig := hmacHex("checkout-secret", []byte("order_1|pay_1"))
	summary, err := svc.VerifyPayment(context.Background(), 42, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	assert.Equal(t, "paid", summary.Status)
	assert.Empty(t, activator.calls, "a verification losing the race must not re-activate")
}

func webhookBody(event, orderID, paymentID, errDesc string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"error_description":%q}}}}`,
		event, paymentID, orderID, errDesc,
	))
}

func TestHandleWebhook_InvalidSignatureRejectedBeforeParsing(t *testing.T) {
	repo := newFakePaymentRepo()
	events := newFakeEventRepo()
	svc := newTestService(repo, events, &fakeGateway{}, &fakeActivator{})
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	body := webhookBody("payment.captured", "order_1", "pay_1", "")
	err := svc.HandleWebhook(context.Background(), body, "bogus")
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
	assert.Equal(t, domain.PaymentStatusCreated, repo.byOrderID["order_1"].Status)
	assert.Empty(t, events.events, "unauthenticated deliveries are not recorded")
}

func TestHandleWebhook_CapturedIsIdempotent(t *testing.T) {
	repo := newFakePaymentRepo()
	activator := &fakeActivator{}
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, activator)
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	body := webhookBody("payment.captured", "order_1", "pay_1", "")
	sig := hmacHex("webhook-secret", body)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))

	p := repo.byOrderID["order_1"]
	assert.Equal(t, domain.PaymentStatusPaid, p.Status)
	assert.Equal(t, "pay_1", p.GatewayPaymentID)
	assert.Empty(t, p.GatewaySignature, "the webhook path has no client signature to store")
	assert.Len(t, activator.calls, 1, "duplicate delivery must not re-activate")
}

func TestHandleWebhook_FailedAfterPaidIsNoOp(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, &fakeActivator{})
	seedPayment(repo, "order_1", 42, domain.PaymentStatusPaid)

	body := webhookBody("payment.failed", "order_1", "pay_1", "card declined")
	sig := hmacHex("webhook-secret", body)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	p := repo.byOrderID["order_1"]
	assert.Equal(t, domain.PaymentStatusPaid, p.Status)
	assert.Empty(t, p.FailureReason)
}

func TestHandleWebhook_FailedSetsProviderReason(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, &fakeActivator{})
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	body := webhookBody("payment.failed", "order_1", "pay_1", "card declined")
	sig := hmacHex("webhook-secret", body)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	p := repo.byOrderID["order_1"]
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
	assert.Equal(t, "card declined", p.FailureReason)
}

func TestHandleWebhook_UnknownEventAcknowledged(t *testing.T) {
	repo := newFakePaymentRepo()
	activator := &fakeActivator{}
	svc := newTestService(repo, newFakeEventRepo(), &fakeGateway{}, activator)
	seedPayment(repo, "order_1", 42, domain.PaymentStatusCreated)

	body := webhookBody("payment.authorized", "order_1", "pay_1", "")
	sig := hmacHex("webhook-secret", body)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	assert.Equal(t, domain.PaymentStatusCreated, repo.byOrderID["order_1"].Status)
	assert.Empty(t, activator.calls)
}

func TestHandleWebhook_UnknownOrderAcknowledged(t *testing.T) {
	repo := newFakePaymentRepo()
	events := newFakeEventRepo()
	svc := newTestService(repo, events, &fakeGateway{}, &fakeActivator{})

	body := webhookBody("payment.captured", "order_ghost", "pay_1", "")
	sig := hmacHex("webhook-secret", body)

	assert.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	require.Len(t, events.events, 1)
	assert.Equal(t, "unknown gateway order id", events.processed[events.events[0].ID])
}

func TestHandleWebhook_MalformedBodyAcknowledged(t *testing.T) {
	repo := newFakePaymentRepo()
	events := newFakeEventRepo()
	svc := newTestService(repo, events, &fakeGateway{}, &fakeActivator{})

	body := []byte(`{"event": not-json`)
	sig := hmacHex("webhook-secret", body)

	assert.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	assert.Zero(t, repo.markPaidCalls)
	assert.Zero(t, repo.markFailedCalls)
	require.Len(t, events.events, 1)
	assert.Contains(t, events.processed[events.events[0].ID], "malformed body")
}
