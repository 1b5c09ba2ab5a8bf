package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledConfig(t *testing.T) *Config {
	t.Helper()
	private, public, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	return &Config{
		Enabled:    true,
		VAPIDEmail: "admin@example.com",
		PublicKey:  public,
		PrivateKey: private,
	}
}

// browserKeys builds a valid client key pair the way a browser hands it to
// PushManager.subscribe, so the payload encryption path really runs.
func browserKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	authBytes := make([]byte, 16)
	_, err = rand.Read(authBytes)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(authBytes)
}

func newSubscription(t *testing.T, endpoint string) *Subscription {
	t.Helper()
	sub := &Subscription{Endpoint: endpoint}
	sub.Keys.P256dh, sub.Keys.Auth = browserKeys(t)
	return sub
}

func TestDefaultPayloadFallbacks(t *testing.T) {
	p := DefaultPayload("", "")
	assert.Equal(t, "Quản Lý Chi Tiêu", p.Title)
	assert.Equal(t, "Có thông báo mới từ Quản Lý Chi Tiêu", p.Body)
	require.Len(t, p.Actions, 2)
	assert.Equal(t, "Mở ứng dụng", p.Actions[0].Title)
	assert.Equal(t, "Đóng", p.Actions[1].Title)

	p = DefaultPayload("Hạn mức", "Chi tiết")
	assert.Equal(t, "Hạn mức", p.Title)
	assert.Equal(t, "Chi tiết", p.Body)
}

func TestSubscribeReplacesSameEndpoint(t *testing.T) {
	c := NewClient(enabledConfig(t))

	first := newSubscription(t, "https://push.example.com/ep1")
	require.NoError(t, c.Subscribe("demo123", first))

	second := newSubscription(t, "https://push.example.com/ep1")
	require.NoError(t, c.Subscribe("demo123", second))

	subs := c.Subscriptions("demo123")
	require.Len(t, subs, 1)
	assert.Equal(t, second.ID, subs[0].ID)
}

func TestSubscribeRejectedWhenDisabled(t *testing.T) {
	c := NewClient(&Config{Enabled: false})
	err := c.Subscribe("demo123", newSubscription(t, "https://push.example.com/ep1"))
	assert.Error(t, err)
}

func TestUnsubscribeByEndpointRemovesSingleRegistration(t *testing.T) {
	c := NewClient(enabledConfig(t))
	require.NoError(t, c.Subscribe("demo123", newSubscription(t, "https://push.example.com/ep1")))
	require.NoError(t, c.Subscribe("demo123", newSubscription(t, "https://push.example.com/ep2")))

	require.NoError(t, c.UnsubscribeByEndpoint("demo123", "https://push.example.com/ep1"))
	subs := c.Subscriptions("demo123")
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example.com/ep2", subs[0].Endpoint)

	require.NoError(t, c.Unsubscribe("demo123"))
	assert.Empty(t, c.Subscriptions("demo123"))
}

func TestSendNotificationDelivers(t *testing.T) {
	received := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received++
		assert.Equal(t, "30", r.Header.Get("TTL"))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(enabledConfig(t))
	require.NoError(t, c.Subscribe("demo123", newSubscription(t, srv.URL)))

	err := c.SendNotification(context.Background(), "demo123", DefaultPayload("", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, received)
	assert.Len(t, c.Subscriptions("demo123"), 1, "a delivered subscription must be kept")
}

func TestSendNotificationPrunesExpiredEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(enabledConfig(t))
	require.NoError(t, c.Subscribe("demo123", newSubscription(t, srv.URL)))

	err := c.SendNotification(context.Background(), "demo123", DefaultPayload("", ""))
	assert.Error(t, err, "nothing was delivered")
	assert.Empty(t, c.Subscriptions("demo123"), "a gone endpoint must be pruned")
}

func TestSendNotificationWithoutSubscriptions(t *testing.T) {
	c := NewClient(enabledConfig(t))
	err := c.SendNotification(context.Background(), "demo123", DefaultPayload("", ""))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	c := NewClient(enabledConfig(t))
	assert.NoError(t, c.ValidateConfig())

	c = NewClient(&Config{Enabled: false})
	assert.NoError(t, c.ValidateConfig(), "disabled config needs no keys")

	cfg := enabledConfig(t)
	cfg.VAPIDEmail = ""
	assert.Error(t, NewClient(cfg).ValidateConfig())

	cfg = enabledConfig(t)
	cfg.PublicKey = "not/base64url!"
	assert.Error(t, NewClient(cfg).ValidateConfig())
}
