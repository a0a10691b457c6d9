package service

import (
	"context"
	"encoding/json"

	"github.com/vibast-solutions/ms-go-donations/app/jobs"
)

// WebhookJobPayload defers webhook verification and reconciliation to the
// worker; the HTTP handler stores the raw body and signature untouched.
type WebhookJobPayload struct {
	Body      string `json:"body"`
	Signature string `json:"signature"`
}

func (s *ReconcileService) HandleBraintreeJob(ctx context.Context, payloadJSON string) error {
	var payload WebhookJobPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return err
	}
	return s.ProcessBraintreeWebhook(ctx, []byte(payload.Body), payload.Signature)
}

func (s *ReconcileService) HandleStripeJob(ctx context.Context, payloadJSON string) error {
	var payload WebhookJobPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return err
	}
	return s.ProcessStripeWebhook(ctx, []byte(payload.Body), payload.Signature)
}

// RecordJobHandler replays a stored canonical record into the CRM queue.
func RecordJobHandler(basket recordSender) jobs.Handler {
	return func(ctx context.Context, payloadJSON string) error {
		return basket.Send(ctx, json.RawMessage(payloadJSON))
	}
}

// NewsletterJobHandler posts a stored signup to the basket API.
func NewsletterJobHandler(client *NewsletterClient) jobs.Handler {
	return func(ctx context.Context, payloadJSON string) error {
		var payload NewsletterSignupPayload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return err
		}
		return client.Subscribe(ctx, &payload)
	}
}
