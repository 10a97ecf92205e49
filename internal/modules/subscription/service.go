package subscription

import (
	"context"
	"time"

	"subpay/internal/domain"
)

type userDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	SetSubscription(ctx context.Context, userID int64, plan domain.Plan, status domain.SubscriptionStatus, activatedAt time.Time) error
}

// Service maintains the user's entitlement projection. Activate is invoked
// by the payment engine exactly when an order first becomes paid; it is a
// last-write-wins projection, so repeated activations for the same user and
// plan are harmless.
type Service struct {
	users   userDirectory
	loggerf func(format string, args ...interface{})
}

func NewService(users userDirectory, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{users: users, loggerf: loggerf}
}

func (s *Service) Activate(ctx context.Context, userID int64, plan domain.Plan) error {
	if err := s.users.SetSubscription(ctx, userID, plan, domain.SubscriptionActive, time.Now().UTC()); err != nil {
		return err
	}
	s.loggerf("level=info msg=subscription activated user_id=%d plan=%s", userID, plan)
	return nil
}

// Current returns the user's subscription projection.
func (s *Service) Current(ctx context.Context, userID int64) (*SubscriptionView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{
		Plan:        string(user.SubscriptionPlan),
		Status:      string(user.SubscriptionStatus),
		ActivatedAt: user.SubscriptionDate,
	}, nil
}

// SubscriptionView is the client-facing projection of the entitlement fields.
type SubscriptionView struct {
	Plan        string     `json:"plan,omitempty"`
	Status      string     `json:"status"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}
