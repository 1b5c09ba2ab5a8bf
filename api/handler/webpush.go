package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eapayk/quanlitien/notify/webpush"
	"github.com/eapayk/quanlitien/store"
)

// SubscribeRequest is the request body for push notification subscription.
type SubscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
}

// WebPushHandler handles webpush-related API endpoints.
type WebPushHandler struct {
	webpush *webpush.Client
}

// NewWebPushHandler creates a new webpush API handler.
func NewWebPushHandler(webpushClient *webpush.Client) *WebPushHandler {
	return &WebPushHandler{webpush: webpushClient}
}

// GetVAPIDKey returns the VAPID public key for client subscription.
func (h *WebPushHandler) GetVAPIDKey(c *gin.Context) {
	if h.webpush == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webpush is not configured"})
		return
	}

	publicKey := h.webpush.GetPublicKey()
	if publicKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "VAPID public key not available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

// Subscribe registers a push subscription for the active user.
func (h *WebPushHandler) Subscribe(c *gin.Context) {
	if h.webpush == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webpush is not configured"})
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription data"})
		return
	}
	if req.Subscription.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	user := c.MustGet("user").(store.User)

	subscription := &webpush.Subscription{
		Endpoint:  req.Subscription.Endpoint,
		UserAgent: c.GetHeader("User-Agent"),
	}
	subscription.Keys.P256dh = req.Subscription.Keys.P256dh
	subscription.Keys.Auth = req.Subscription.Keys.Auth

	if err := h.webpush.Subscribe(user.ID, subscription); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"subscriptionId": subscription.ID,
	})
}

// Unsubscribe removes push subscriptions for the active user. With an
// endpoint in the body only that registration is dropped, otherwise all of
// them are.
func (h *WebPushHandler) Unsubscribe(c *gin.Context) {
	if h.webpush == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webpush is not configured"})
		return
	}

	user := c.MustGet("user").(store.User)

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request data"})
			return
		}
	}

	var err error
	if req.Endpoint != "" {
		err = h.webpush.UnsubscribeByEndpoint(user.ID, req.Endpoint)
	} else {
		err = h.webpush.Unsubscribe(user.ID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unsubscribe user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
