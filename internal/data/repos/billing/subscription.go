package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type BillingSubscriptionRepo interface {
	GetByStripeID(dbc dbctx.Context, stripeSubscriptionID string) (*types.BillingSubscription, error)
	// Upsert reports whether the row was newly created.
	Upsert(dbc dbctx.Context, sub *types.BillingSubscription) (bool, error)
	GetActiveByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.BillingSubscription, error)
}

type billingSubscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBillingSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) BillingSubscriptionRepo {
	return &billingSubscriptionRepo{
		db:  db,
		log: baseLog.With("repo", "BillingSubscriptionRepo"),
	}
}

func (r *billingSubscriptionRepo) GetByStripeID(dbc dbctx.Context, stripeSubscriptionID string) (*types.BillingSubscription, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var sub types.BillingSubscription
	if err := transaction.WithContext(dbc.Ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Limit(1).
		Find(&sub).Error; err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, nil
	}
	return &sub, nil
}

func (r *billingSubscriptionRepo) Upsert(dbc dbctx.Context, sub *types.BillingSubscription) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	created := false
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.BillingSubscription
		if err := txx.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID == uuid.Nil {
			created = true
			return txx.Create(sub).Error
		}
		sub.ID = existing.ID
		return txx.Model(&types.BillingSubscription{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"owner_user_id":        sub.OwnerUserID,
				"stripe_customer_id":   sub.StripeCustomerID,
				"status":               sub.Status,
				"price_id":             sub.PriceID,
				"plan":                 sub.Plan,
				"current_period_end":   sub.CurrentPeriodEnd,
				"cancel_at_period_end": sub.CancelAtPeriodEnd,
				"updated_at":           time.Now().UTC(),
			}).Error
	})
	return created, err
}

func (r *billingSubscriptionRepo) GetActiveByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.BillingSubscription, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var sub types.BillingSubscription
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND status IN ?", ownerUserID, []string{"active", "trialing", "past_due"}).
		Order("current_period_end DESC").
		Limit(1).
		Find(&sub).Error; err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, nil
	}
	return &sub, nil
}
