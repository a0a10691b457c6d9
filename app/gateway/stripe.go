package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

const NameStripe = "stripe"

type StripeConfig struct {
	APIKey                    string
	WebhookSecret             string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

// StripeGateway covers the hosted-checkout processor. Donations are
// collected on the hosted page outside this service, so only the webhook
// side and the lookups behind it are implemented here.
type StripeGateway struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tolerance := cfg.SignatureToleranceSeconds
	if tolerance <= 0 {
		tolerance = 300
	}
	cfg.SignatureToleranceSeconds = tolerance

	return &StripeGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *StripeGateway) Name() string {
	return NameStripe
}

func (g *StripeGateway) CreateCustomer(_ context.Context, _ *CustomerPayload) (*entity.GatewayResult, error) {
	return nil, fmt.Errorf("%w: stripe donations are collected on the hosted page", ErrGatewayNotSupported)
}

func (g *StripeGateway) CreateTransaction(_ context.Context, _ *TransactionPayload) (*entity.GatewayResult, error) {
	return nil, fmt.Errorf("%w: stripe donations are collected on the hosted page", ErrGatewayNotSupported)
}

func (g *StripeGateway) CreateSubscription(_ context.Context, _ *SubscriptionPayload) (*entity.GatewayResult, error) {
	return nil, fmt.Errorf("%w: stripe donations are collected on the hosted page", ErrGatewayNotSupported)
}

// VerifyAndParseWebhook checks the Stripe-Signature header (t=..,v1=..
// scheme, HMAC-SHA256 over "<t>.<payload>" with a timestamp tolerance
// window) and parses charge.succeeded events.
func (g *StripeGateway) VerifyAndParseWebhook(_ context.Context, body []byte, signature string) (*entity.WebhookEvent, error) {
	if strings.TrimSpace(g.cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret is not configured", ErrSignatureInvalid)
	}
	if !verifyStripeSignature(body, signature, g.cfg.WebhookSecret, g.cfg.SignatureToleranceSeconds) {
		return nil, ErrSignatureInvalid
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	result := &entity.WebhookEvent{
		Gateway: NameStripe,
		RawKind: event.Type,
	}

	if event.Type != "charge.succeeded" {
		result.Kind = entity.WebhookUnsupported
		return result, nil
	}

	var charge struct {
		ID                 string            `json:"id"`
		Invoice            interface{}       `json:"invoice"`
		Amount             int64             `json:"amount"`
		Currency           string            `json:"currency"`
		Created            int64             `json:"created"`
		Description        string            `json:"description"`
		BalanceTransaction interface{}       `json:"balance_transaction"`
		Metadata           map[string]string `json:"metadata"`
		BillingDetails     *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"billing_details"`
		PaymentMethodDetails *struct {
			Card *struct {
				Last4 string `json:"last4"`
			} `json:"card"`
		} `json:"payment_method_details"`
	}
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	result.Kind = entity.WebhookChargeSucceeded
	result.Stripe = &entity.StripeCharge{
		ID:                   charge.ID,
		InvoiceID:            stringish(charge.Invoice),
		Amount:               charge.Amount,
		Currency:             charge.Currency,
		Created:              charge.Created,
		Description:          charge.Description,
		BalanceTransactionID: stringish(charge.BalanceTransaction),
		Metadata:             charge.Metadata,
	}
	if charge.BillingDetails != nil {
		result.Stripe.Name = charge.BillingDetails.Name
		result.Stripe.Email = charge.BillingDetails.Email
	}
	if charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
		result.Stripe.Last4 = charge.PaymentMethodDetails.Card.Last4
	}

	return result, nil
}

// StripeInvoice links a charge back to the subscription that raised it.
type StripeInvoice struct {
	ID             string
	SubscriptionID string
}

func (g *StripeGateway) GetInvoice(ctx context.Context, id string) (*StripeInvoice, error) {
	body, err := g.getJSON(ctx, "/v1/invoices/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID           string      `json:"id"`
		Subscription interface{} `json:"subscription"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &StripeInvoice{
		ID:             payload.ID,
		SubscriptionID: stringish(payload.Subscription),
	}, nil
}

// StripeSubscription carries the donor metadata set when the hosted
// checkout created the subscription.
type StripeSubscription struct {
	ID       string
	Metadata map[string]string
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*StripeSubscription, error) {
	body, err := g.getJSON(ctx, "/v1/subscriptions/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &StripeSubscription{ID: payload.ID, Metadata: payload.Metadata}, nil
}

// StripeBalanceTransaction reports settlement amounts in integer minor
// units, always, regardless of the currency's zero-decimal status.
type StripeBalanceTransaction struct {
	ID       string
	Amount   int64
	Net      int64
	Fee      int64
	Currency string
}

func (g *StripeGateway) GetBalanceTransaction(ctx context.Context, id string) (*StripeBalanceTransaction, error) {
	body, err := g.getJSON(ctx, "/v1/balance_transactions/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Net      int64  `json:"net"`
		Fee      int64  `json:"fee"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &StripeBalanceTransaction{
		ID:       payload.ID,
		Amount:   payload.Amount,
		Net:      payload.Net,
		Fee:      payload.Fee,
		Currency: payload.Currency,
	}, nil
}

// UpdateCharge patches a charge's description and metadata in place.
func (g *StripeGateway) UpdateCharge(ctx context.Context, id string, description string, metadata map[string]string) error {
	values := url.Values{}
	values.Set("description", description)
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}

	_, err := g.postForm(ctx, "/v1/charges/"+url.PathEscape(id), values)
	return err
}

func (g *StripeGateway) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.stripe.com"+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

func (g *StripeGateway) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.stripe.com"+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

func verifyStripeSignature(payload []byte, signatureHeader string, webhookSecret string, toleranceSeconds int64) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return false
	}

	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now().Unix()
	if now-tsUnix > toleranceSeconds || tsUnix-now > toleranceSeconds {
		return false
	}

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}

// stringish unwraps fields Stripe returns either as a bare id string or as
// an expanded object with an "id" key.
func stringish(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if id, ok := v["id"].(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}
