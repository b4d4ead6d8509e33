// Package notify delivers post-commit coupon events to an external
// sink. Delivery is best-effort: a failing sink never fails or rolls
// back the API call that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Event identifies a mutation on the coupon resource.
type Event string

const (
	EventCouponCreated Event = "coupon.created"
	EventCouponUpdated Event = "coupon.updated"
	EventCouponDeleted Event = "coupon.deleted"
)

// Sink receives post-commit notifications. Implementations must not
// block the caller and must swallow their own failures.
type Sink interface {
	Notify(ctx context.Context, event Event, couponID int64, payload map[string]any)
}

// LogSink writes events to the structured log. It is the default sink
// when no webhook is configured.
type LogSink struct{}

// Notify logs the event.
func (LogSink) Notify(_ context.Context, event Event, couponID int64, _ map[string]any) {
	log.Info().
		Str("event", string(event)).
		Int64("coupon_id", couponID).
		Msg("coupon event")
}

// WebhookSink POSTs events as JSON to a configured URL in the
// background. Delivery errors are logged and dropped.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a WebhookSink delivering to url with the
// given per-request timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookBody struct {
	Event    Event          `json:"event"`
	CouponID int64          `json:"coupon_id"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Notify dispatches the event asynchronously. The request does not
// inherit the caller's context so an already-finished request cannot
// cancel delivery.
func (s *WebhookSink) Notify(_ context.Context, event Event, couponID int64, payload map[string]any) {
	go func() {
		body, err := json.Marshal(webhookBody{Event: event, CouponID: couponID, Payload: payload})
		if err != nil {
			log.Warn().Err(err).Str("event", string(event)).Msg("failed to encode webhook event")
			return
		}

		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Warn().Err(err).Str("event", string(event)).Msg("failed to deliver webhook event")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			log.Warn().
				Int("status", resp.StatusCode).
				Str("event", string(event)).
				Msg("webhook endpoint rejected event")
		}
	}()
}
