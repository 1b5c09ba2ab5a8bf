// Package webpush delivers push notifications to subscribed browsers using
// VAPID-signed web push messages.
package webpush

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/eapayk/quanlitien/config"
)

// Config holds the configuration for webpush notifications.
type Config = config.WebPushConfig

// Client manages push subscriptions per user and sends notifications to
// every registered endpoint.
type Client struct {
	config        *Config
	subscriptions map[string]map[string]*Subscription // userID -> subscriptionID
	mu            sync.RWMutex
}

// Subscription is a browser push subscription.
type Subscription struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// NotificationPayload is the JSON payload delivered to the client.
type NotificationPayload struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon"`
	Badge   string               `json:"badge"`
	Data    map[string]any       `json:"data,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// NotificationAction is an action button attached to a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// DefaultPayload builds the standard notification shell with the open and
// close actions. An empty title or body falls back to the app defaults.
func DefaultPayload(title, body string) *NotificationPayload {
	if title == "" {
		title = "Quản Lý Chi Tiêu"
	}
	if body == "" {
		body = "Có thông báo mới từ Quản Lý Chi Tiêu"
	}
	return &NotificationPayload{
		Title: title,
		Body:  body,
		Icon:  "/icon-192x192.png",
		Badge: "/icon-192x192.png",
		Data: map[string]any{
			"dateOfArrival": time.Now().UnixMilli(),
		},
		Actions: []NotificationAction{
			{Action: "open", Title: "Mở ứng dụng"},
			{Action: "close", Title: "Đóng"},
		},
	}
}

// NewClient creates a new webpush client.
func NewClient(config *Config) *Client {
	return &Client{
		config:        config,
		subscriptions: make(map[string]map[string]*Subscription),
	}
}

// GenerateVAPIDKeys generates a new VAPID key pair.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}

// GetPublicKey returns the VAPID public key for client subscription.
func (c *Client) GetPublicKey() string {
	return c.config.PublicKey
}

// Subscribe registers a push subscription for a user. Re-subscribing the
// same endpoint replaces the old registration.
func (c *Client) Subscribe(userID string, subscription *Subscription) error {
	if !c.config.Enabled {
		return fmt.Errorf("webpush notifications are disabled")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.subscriptions[userID]; ok {
		for id, sub := range existing {
			if sub.Endpoint == subscription.Endpoint {
				delete(existing, id)
			}
		}
	}

	subscription.ID = uuid.NewString()
	subscription.UserID = userID
	subscription.CreatedAt = time.Now()

	if c.subscriptions[userID] == nil {
		c.subscriptions[userID] = make(map[string]*Subscription)
	}
	c.subscriptions[userID][subscription.ID] = subscription

	log.Info("added push subscription", "subscription", subscription.ID, "user", userID)
	return nil
}

// Unsubscribe removes all push subscriptions for a user.
func (c *Client) Unsubscribe(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subscriptions, userID)
	log.Info("removed push subscriptions", "user", userID)
	return nil
}

// UnsubscribeByEndpoint removes a single subscription by endpoint.
func (c *Client) UnsubscribeByEndpoint(userID, endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs, ok := c.subscriptions[userID]
	if !ok {
		return nil
	}
	for id, sub := range subs {
		if sub.Endpoint == endpoint {
			delete(subs, id)
			log.Info("removed push subscription", "subscription", id, "user", userID)
			break
		}
	}
	if len(subs) == 0 {
		delete(c.subscriptions, userID)
	}
	return nil
}

// Subscriptions returns all subscriptions for a user.
func (c *Client) Subscriptions(userID string) []*Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]*Subscription, 0, len(c.subscriptions[userID]))
	for _, sub := range c.subscriptions[userID] {
		subs = append(subs, sub)
	}
	return subs
}

// SendNotification pushes the payload to every subscription of a user.
// Endpoints answering 404 or 410 are dropped.
func (c *Client) SendNotification(ctx context.Context, userID string, payload *NotificationPayload) error {
	if !c.config.Enabled {
		return fmt.Errorf("webpush notifications are disabled")
	}

	c.mu.RLock()
	subs := make([]*Subscription, 0, len(c.subscriptions[userID]))
	for _, sub := range c.subscriptions[userID] {
		subs = append(subs, sub)
	}
	c.mu.RUnlock()

	if len(subs) == 0 {
		return fmt.Errorf("no push subscriptions found for user %s", userID)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	var lastErr error
	sent := 0
	for _, sub := range subs {
		webpushSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.Keys.P256dh,
				Auth:   sub.Keys.Auth,
			},
		}

		resp, err := webpush.SendNotification(payloadBytes, webpushSub, &webpush.Options{
			Subscriber:      c.config.VAPIDEmail,
			VAPIDPublicKey:  c.config.PublicKey,
			VAPIDPrivateKey: c.config.PrivateKey,
			TTL:             30,
		})
		if err != nil {
			log.Error("failed to send push notification", "subscription", sub.ID, "user", userID, "error", err)
			lastErr = err
			continue
		}
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			sent++
		case resp.StatusCode == 404 || resp.StatusCode == 410:
			log.Info("pruning expired push subscription", "subscription", sub.ID, "user", userID)
			_ = c.UnsubscribeByEndpoint(userID, sub.Endpoint)
			lastErr = fmt.Errorf("subscription expired (status %d)", resp.StatusCode)
		default:
			lastErr = fmt.Errorf("push notification failed with status %d", resp.StatusCode)
		}
	}

	if sent == 0 {
		return fmt.Errorf("failed to push to any subscription for user %s: %w", userID, lastErr)
	}
	log.Debug("sent push notification", "user", userID, "delivered", sent, "total", len(subs))
	return nil
}

// ValidateConfig validates the webpush configuration.
func (c *Client) ValidateConfig() error {
	if !c.config.Enabled {
		return nil
	}

	if c.config.VAPIDEmail == "" {
		return fmt.Errorf("vapid_email is required when webpush is enabled")
	}
	if c.config.PublicKey == "" || c.config.PrivateKey == "" {
		return fmt.Errorf("both public_key and private_key are required when webpush is enabled")
	}

	if _, err := base64.RawURLEncoding.DecodeString(c.config.PublicKey); err != nil {
		return fmt.Errorf("invalid public key format: %w", err)
	}
	if _, err := base64.RawURLEncoding.DecodeString(c.config.PrivateKey); err != nil {
		return fmt.Errorf("invalid private key format: %w", err)
	}

	return nil
}
