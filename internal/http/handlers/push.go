package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type PushHandler struct {
	push services.PushService
}

func NewPushHandler(push services.PushService) *PushHandler {
	return &PushHandler{push: push}
}

// browserSubscription is the JSON form of a browser PushSubscription.
type browserSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Clients send either the bare subscription or {subscription: ...}.
type pushSubscribeRequest struct {
	Subscription *browserSubscription `json:"subscription"`
	browserSubscription
}

func (r pushSubscribeRequest) resolve() browserSubscription {
	if r.Subscription != nil {
		return *r.Subscription
	}
	return r.browserSubscription
}

// POST /functions/v1/push-subscribe
func (h *PushHandler) Subscribe(c *gin.Context) {
	var req pushSubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	sub := req.resolve()
	row, err := h.push.Subscribe(dbctx.Of(c.Request.Context()), services.SubscribeInput{
		Endpoint:  sub.Endpoint,
		P256dh:    sub.Keys.P256dh,
		Auth:      sub.Keys.Auth,
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "subscription": row})
}

// POST /functions/v1/push-unsubscribe
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req pushSubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	removed, err := h.push.Unsubscribe(dbctx.Of(c.Request.Context()), req.resolve().Endpoint)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "removed": removed})
}

type sendPushRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	Tag    string `json:"tag"`
}

// POST /functions/v1/send-push-notification
func (h *PushHandler) Send(c *gin.Context) {
	var req sendPushRequest
	if !bindJSON(c, &req) {
		return
	}
	msg := services.PushMessage{Title: req.Title, Body: req.Body, URL: req.URL, Tag: req.Tag}
	if req.UserID != "" {
		id, ok := parseID(c, req.UserID, "invalid_user_id")
		if !ok {
			return
		}
		msg.UserID = id
	}
	res, err := h.push.Notify(dbctx.Of(c.Request.Context()), msg)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

