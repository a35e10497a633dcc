package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/platform/webpush"
)

type SubscribeInput struct {
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

type PushMessage struct {
	UserID uuid.UUID `json:"-"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	URL    string    `json:"url,omitempty"`
	Tag    string    `json:"tag,omitempty"`
}

type PushResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

type PushService interface {
	Subscribe(dbc dbctx.Context, in SubscribeInput) (*types.PushSubscription, error)
	Unsubscribe(dbc dbctx.Context, endpoint string) (bool, error)
	// Notify is the authenticated entry point; callers may only target
	// themselves unless they hold the admin role.
	Notify(dbc dbctx.Context, msg PushMessage) (*PushResult, error)
	SendToUser(ctx context.Context, msg PushMessage) (*PushResult, error)
}

type pushService struct {
	log    *logger.Logger
	subs   repos.PushSubscriptionRepo
	sender webpush.Sender
}

func NewPushService(baseLog *logger.Logger, subs repos.PushSubscriptionRepo, sender webpush.Sender) PushService {
	return &pushService{
		log:    baseLog.With("service", "PushService"),
		subs:   subs,
		sender: sender,
	}
}

func (s *pushService) Subscribe(dbc dbctx.Context, in SubscribeInput) (*types.PushSubscription, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	in.Endpoint = strings.TrimSpace(in.Endpoint)
	if !isHTTPURL(in.Endpoint) {
		return nil, apierr.BadRequest("invalid_endpoint", "endpoint must be an http(s) url")
	}
	if strings.TrimSpace(in.P256dh) == "" || strings.TrimSpace(in.Auth) == "" {
		return nil, apierr.BadRequest("invalid_keys", "keys.p256dh and keys.auth are required")
	}
	return s.subs.Upsert(dbc, &types.PushSubscription{
		UserID:    rd.UserID,
		Endpoint:  in.Endpoint,
		P256dh:    strings.TrimSpace(in.P256dh),
		Auth:      strings.TrimSpace(in.Auth),
		UserAgent: strings.TrimSpace(in.UserAgent),
	})
}

func (s *pushService) Unsubscribe(dbc dbctx.Context, endpoint string) (bool, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return false, err
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return false, apierr.BadRequest("invalid_endpoint", "endpoint is required")
	}
	n, err := s.subs.DeleteByEndpoint(dbc, rd.UserID, endpoint)
	return n > 0, err
}

func (s *pushService) Notify(dbc dbctx.Context, msg PushMessage) (*PushResult, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	if msg.UserID == uuid.Nil {
		msg.UserID = rd.UserID
	}
	if msg.UserID != rd.UserID && rd.Role != PlatformRoleAdmin {
		return nil, apierr.Forbidden("forbidden", "cannot send notifications to another user")
	}
	return s.SendToUser(dbc.Ctx, msg)
}

func (s *pushService) SendToUser(ctx context.Context, msg PushMessage) (*PushResult, error) {
	if strings.TrimSpace(msg.Title) == "" {
		return nil, apierr.BadRequest("missing_title", "title is required")
	}
	if s.sender == nil {
		return nil, apierr.Unavailable("push notifications")
	}
	subs, err := s.subs.ListByUser(dbctx.Of(ctx), msg.UserID)
	if err != nil {
		return nil, err
	}
	out := &PushResult{}
	if len(subs) == 0 {
		return out, nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode push payload: %w", err)
	}

	var (
		mu        sync.Mutex
		delivered []uuid.UUID
		gone      []uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			_, err := s.sender.Send(gctx, webpush.Subscription{Endpoint: sub.Endpoint, P256dh: sub.P256dh, Auth: sub.Auth}, payload)
			mu.Lock()
			defer mu.Unlock()
			var he *webpush.HTTPError
			switch {
			case err == nil:
				out.Sent++
				delivered = append(delivered, sub.ID)
			case errors.As(err, &he) && he.Gone():
				gone = append(gone, sub.ID)
			default:
				out.Failed++
				s.log.Warn("Push delivery failed", "subscription_id", sub.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(gone) > 0 {
		n, err := s.subs.DeleteByIDs(dbctx.Of(ctx), gone)
		if err != nil {
			return nil, fmt.Errorf("remove expired subscriptions: %w", err)
		}
		out.Removed = int(n)
	}
	if len(delivered) > 0 {
		if err := s.subs.TouchLastUsed(dbctx.Of(ctx), delivered, time.Now().UTC()); err != nil {
			s.log.Warn("Failed to touch push subscriptions", "error", err)
		}
	}
	s.log.Debug("Push fan-out finished", "user_id", msg.UserID, "sent", out.Sent, "failed", out.Failed, "removed", out.Removed)
	return out, nil
}
