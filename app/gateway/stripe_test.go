package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

func stripeSignatureHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, string(payload))))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	header := stripeSignatureHeader(payload, secret)

	if !verifyStripeSignature(payload, header, secret, 300) {
		t.Fatal("expected signature to validate")
	}
	if verifyStripeSignature(payload, header, "wrong-secret", 300) {
		t.Fatal("expected signature with wrong secret to fail")
	}
}

func TestVerifyStripeSignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	ts := time.Now().Add(-time.Hour).Unix()

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, string(payload))))
	header := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	if verifyStripeSignature(payload, header, secret, 300) {
		t.Fatal("expected stale signature to fail")
	}
}

func TestStripeVerifyAndParseWebhookChargeSucceeded(t *testing.T) {
	g := NewStripeGateway(StripeConfig{APIKey: "sk_test", WebhookSecret: "whsec_test"})

	payload := []byte(`{
		"type": "charge.succeeded",
		"data": {"object": {
			"id": "ch_1",
			"invoice": "in_1",
			"amount": 1000,
			"currency": "usd",
			"created": 1467225605,
			"description": "Mozilla Foundation Donation",
			"balance_transaction": "txn_1",
			"metadata": {"locale": "en-US"},
			"billing_details": {"name": "Jane Doe", "email": "jane@example.com"},
			"payment_method_details": {"card": {"last4": "4242"}}
		}}
	}`)
	header := stripeSignatureHeader(payload, "whsec_test")

	event, err := g.VerifyAndParseWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != entity.WebhookChargeSucceeded {
		t.Fatalf("unexpected kind: %s", event.Kind)
	}

	charge := event.Stripe
	if charge == nil {
		t.Fatal("expected charge payload")
	}
	if charge.ID != "ch_1" || charge.InvoiceID != "in_1" || charge.BalanceTransactionID != "txn_1" {
		t.Fatalf("unexpected charge ids: %+v", charge)
	}
	if charge.Amount != 1000 || charge.Currency != "usd" || charge.Created != 1467225605 {
		t.Fatalf("unexpected charge fields: %+v", charge)
	}
	if charge.Name != "Jane Doe" || charge.Email != "jane@example.com" || charge.Last4 != "4242" {
		t.Fatalf("unexpected donor identity: %+v", charge)
	}
	if charge.Metadata["locale"] != "en-US" {
		t.Fatalf("unexpected metadata: %+v", charge.Metadata)
	}
}

func TestStripeVerifyAndParseWebhookExpandedInvoice(t *testing.T) {
	g := NewStripeGateway(StripeConfig{APIKey: "sk_test", WebhookSecret: "whsec_test"})

	payload := []byte(`{
		"type": "charge.succeeded",
		"data": {"object": {
			"id": "ch_2",
			"invoice": {"id": "in_2"},
			"amount": 500,
			"currency": "jpy",
			"balance_transaction": null
		}}
	}`)
	header := stripeSignatureHeader(payload, "whsec_test")

	event, err := g.VerifyAndParseWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Stripe.InvoiceID != "in_2" {
		t.Fatalf("unexpected invoice id: %s", event.Stripe.InvoiceID)
	}
	if event.Stripe.BalanceTransactionID != "" {
		t.Fatalf("expected empty balance transaction id, got %s", event.Stripe.BalanceTransactionID)
	}
}

func TestStripeVerifyAndParseWebhookUnsupportedType(t *testing.T) {
	g := NewStripeGateway(StripeConfig{APIKey: "sk_test", WebhookSecret: "whsec_test"})

	payload := []byte(`{"type": "customer.created", "data": {"object": {}}}`)
	header := stripeSignatureHeader(payload, "whsec_test")

	event, err := g.VerifyAndParseWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != entity.WebhookUnsupported {
		t.Fatalf("unexpected kind: %s", event.Kind)
	}
}

func TestStripeVerifyAndParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway(StripeConfig{APIKey: "sk_test", WebhookSecret: "whsec_test"})

	_, err := g.VerifyAndParseWebhook(context.Background(), []byte(`{}`), "t=1,v1=deadbeef")
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestStripeCreateOperationsNotSupported(t *testing.T) {
	g := NewStripeGateway(StripeConfig{APIKey: "sk_test"})

	if _, err := g.CreateCustomer(context.Background(), &CustomerPayload{}); !errors.Is(err, ErrGatewayNotSupported) {
		t.Fatalf("expected ErrGatewayNotSupported, got %v", err)
	}
	if _, err := g.CreateSubscription(context.Background(), &SubscriptionPayload{}); !errors.Is(err, ErrGatewayNotSupported) {
		t.Fatalf("expected ErrGatewayNotSupported, got %v", err)
	}
}
