package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BillingSubscription is the local mirror of a Stripe subscription.
type BillingSubscription struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID *uuid.UUID `gorm:"type:uuid;index" json:"owner_user_id,omitempty"`

	StripeCustomerID     string `gorm:"column:stripe_customer_id;not null;index" json:"stripe_customer_id"`
	StripeSubscriptionID string `gorm:"column:stripe_subscription_id;not null;uniqueIndex" json:"stripe_subscription_id"`

	Status            string     `gorm:"column:status;not null;index" json:"status"`
	PriceID           string     `gorm:"column:price_id" json:"price_id,omitempty"`
	Plan              string     `gorm:"column:plan" json:"plan,omitempty"`
	CurrentPeriodEnd  *time.Time `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BillingSubscription) TableName() string { return "billing_subscription" }

func (s *BillingSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
