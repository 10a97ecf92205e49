package domain

import "time"

// PaymentStatus mirrors the gateway order lifecycle.
type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "created"
	PaymentStatusAttempted PaymentStatus = "attempted"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether no further paid/failed transition may be applied.
// Only paid -> refunded leaves a terminal state, and that is driven by the
// refund flow, never by verification or webhooks.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// Plan identifies a subscription tier from the fixed catalog.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// Payment is the locally tracked order record, tied 1:1 to a gateway order.
// Amount, currency, plan, user and receipt are write-once; status moves only
// forward through the conditional transitions on the repository. Records are
// never deleted — they are the audit trail.
type Payment struct {
	ID               int64         `gorm:"primaryKey" json:"id"`
	UserID           int64         `gorm:"index;not null" json:"user_id"`
	GatewayOrderID   string        `gorm:"uniqueIndex;not null" json:"gateway_order_id"`
	GatewayPaymentID string        `gorm:"index" json:"gateway_payment_id,omitempty"`
	GatewaySignature string        `gorm:"type:varchar(128)" json:"-"`
	Amount           int64         `gorm:"not null" json:"amount"`
	Currency         string        `gorm:"type:varchar(3);not null" json:"currency"`
	Status           PaymentStatus `gorm:"type:varchar(20);default:'created';index" json:"status"`
	Plan             Plan          `gorm:"type:varchar(20);not null;index" json:"plan"`
	Description      string        `gorm:"type:text" json:"description"`
	Receipt          string        `gorm:"uniqueIndex;not null" json:"receipt"`
	Notes            string        `gorm:"type:text" json:"notes,omitempty"`
	FailureReason    string        `gorm:"type:text" json:"failure_reason,omitempty"`
	RefundAmount     int64         `gorm:"default:0" json:"refund_amount"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
