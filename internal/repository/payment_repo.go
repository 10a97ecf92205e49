package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"subpay/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned by Create when a unique constraint
// (gateway_order_id or receipt) is violated. Callers treat it as a
// retryable condition, not a user error.
var ErrDuplicateKey = errors.New("duplicate key")

var terminalStatuses = []domain.PaymentStatus{
	domain.PaymentStatusPaid,
	domain.PaymentStatusFailed,
	domain.PaymentStatusCancelled,
	domain.PaymentStatusRefunded,
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayOrderIDForUser(ctx context.Context, gatewayOrderID string, userID int64) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ? AND user_id = ?", gatewayOrderID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the user's payments newest first plus the total count.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64, page, limit int) ([]domain.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []domain.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// MarkPaid transitions the record to paid if and only if its current status
// is not terminal. The guard and the write are a single UPDATE, so two racing
// callers cannot both win; the loser sees changed=false and must not repeat
// the paid side effects.
func (r *PaymentRepository) MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string, paidAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":             domain.PaymentStatusPaid,
		"gateway_payment_id": gatewayPaymentID,
		"paid_at":            paidAt,
	}
	if gatewaySignature != "" {
		updates["gateway_signature"] = gatewaySignature
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("gateway_order_id = ? AND status NOT IN ?", gatewayOrderID, terminalStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("gateway_order_id = ?", gatewayOrderID).Count(&existing).Error; err != nil {
		return false, err
	}
	if existing == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

// MarkFailed transitions the record to failed under the same terminal guard
// as MarkPaid. A record that already reached paid is never downgraded.
func (r *PaymentRepository) MarkFailed(ctx context.Context, gatewayOrderID, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("gateway_order_id = ? AND status NOT IN ?", gatewayOrderID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":         domain.PaymentStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("gateway_order_id = ?", gatewayOrderID).Count(&existing).Error; err != nil {
		return false, err
	}
	if existing == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
