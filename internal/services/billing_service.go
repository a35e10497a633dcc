package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/platform/stripeapi"
)

// PlatformRoleAdmin is the JWT role allowed to run administrative functions.
const PlatformRoleAdmin = "admin"

type BillingSyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	// Unowned counts subscriptions whose customer has no user_id metadata.
	Unowned int `json:"unowned"`
}

type BillingService interface {
	// AdminSync requires the caller to hold the admin role.
	AdminSync(dbc dbctx.Context) (*BillingSyncResult, error)
	Sync(ctx context.Context) (*BillingSyncResult, error)
}

type billingService struct {
	log    *logger.Logger
	stripe stripeapi.Client
	subs   repos.BillingSubscriptionRepo
}

func NewBillingService(baseLog *logger.Logger, client stripeapi.Client, subs repos.BillingSubscriptionRepo) BillingService {
	return &billingService{
		log:    baseLog.With("service", "BillingService"),
		stripe: client,
		subs:   subs,
	}
}

func (s *billingService) AdminSync(dbc dbctx.Context) (*BillingSyncResult, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	if rd.Role != PlatformRoleAdmin {
		return nil, apierr.Forbidden("forbidden", "admin role required")
	}
	return s.Sync(dbc.Ctx)
}

func (s *billingService) Sync(ctx context.Context) (*BillingSyncResult, error) {
	if s.stripe == nil {
		return nil, apierr.Unavailable("stripe")
	}
	out := &BillingSyncResult{}
	err := s.stripe.EachSubscription(ctx, func(sub *stripe.Subscription) error {
		row := subscriptionRow(sub)
		if row.OwnerUserID == nil {
			out.Unowned++
		}
		created, err := s.subs.Upsert(dbctx.Of(ctx), row)
		if err != nil {
			return err
		}
		out.Synced++
		if created {
			out.Created++
		} else {
			out.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Billing synced", "synced", out.Synced, "created", out.Created, "updated", out.Updated)
	return out, nil
}

func subscriptionRow(sub *stripe.Subscription) *types.BillingSubscription {
	row := &types.BillingSubscription{
		StripeSubscriptionID: sub.ID,
		Status:               string(sub.Status),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		row.StripeCustomerID = sub.Customer.ID
		if uid, err := uuid.Parse(strings.TrimSpace(sub.Customer.Metadata["user_id"])); err == nil {
			row.OwnerUserID = &uid
		}
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		row.CurrentPeriodEnd = &end
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		row.PriceID = price.ID
		switch {
		case price.Nickname != "":
			row.Plan = price.Nickname
		case price.LookupKey != "":
			row.Plan = price.LookupKey
		case price.Product != nil:
			row.Plan = price.Product.ID
		}
	}
	return row
}
