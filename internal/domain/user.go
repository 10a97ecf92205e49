package domain

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// SubscriptionStatus of a user's entitlement, updated by the activator.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// User is the directory record for a paying account. The subscription
// fields are a last-write-wins projection maintained by the subscription
// activator when an order first becomes paid.
type User struct {
	ID                 int64              `gorm:"primaryKey" json:"id"`
	Email              string             `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash       string             `gorm:"not null" json:"-"`
	Name               string             `json:"name"`
	Role               UserRole           `gorm:"type:varchar(20);default:'user'" json:"role"`
	SubscriptionPlan   Plan               `gorm:"type:varchar(20)" json:"subscription_plan,omitempty"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);default:'inactive'" json:"subscription_status"`
	SubscriptionDate   *time.Time         `json:"subscription_date,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a plaintext password against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
