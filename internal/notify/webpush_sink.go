package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/hmuroya/taskward/internal/subscription"
)

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Contact    string
}

type webPushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// WebPushSink delivers the direct-message target over Web Push to every
// registered subscription. Expired subscriptions are removed on the fly.
type WebPushSink struct {
	vapid VAPIDConfig
	repo  subscription.Repository
}

func NewWebPushSink(vapid VAPIDConfig, repo subscription.Repository) *WebPushSink {
	return &WebPushSink{
		vapid: vapid,
		repo:  repo,
	}
}

func (s *WebPushSink) Deliver(ctx context.Context, event *Event) error {
	if s.vapid.PrivateKey == "" || s.vapid.PublicKey == "" {
		slog.Warn("web push: VAPID keys not configured, skipping")
		return nil
	}

	subs, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("web push: failed to list subscriptions: %w", err)
	}

	data, err := json.Marshal(webPushPayload{
		Title: fmt.Sprintf("taskward: %s", event.Kind),
		Body:  event.Message,
		Tag:   event.Task.ID,
	})
	if err != nil {
		return fmt.Errorf("web push: failed to marshal payload: %w", err)
	}

	for _, sub := range subs {
		s.sendToSubscription(ctx, sub, data)
	}
	return nil
}

func (s *WebPushSink) sendToSubscription(ctx context.Context, sub *subscription.Subscription, data []byte) {
	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.vapid.PublicKey,
		VAPIDPrivateKey: s.vapid.PrivateKey,
		Subscriber:      s.vapid.Contact,
		TTL:             86400,
	})
	if err != nil {
		slog.Error("web push: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		slog.Info("web push: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			slog.Error("web push: failed to remove expired subscription", "id", sub.ID, "error", err)
		}
	}
}
