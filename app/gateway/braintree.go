package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

const NameBraintree = "braintree"

type BraintreeConfig struct {
	MerchantID  string
	PublicKey   string
	PrivateKey  string
	UseSandbox  bool
	HTTPTimeout time.Duration
}

// BraintreeGateway talks to the vault-based processor: customers carry the
// vaulted payment methods and the custom fields, transactions and
// subscriptions reference them by token.
type BraintreeGateway struct {
	cfg     BraintreeConfig
	baseURL string
	client  *http.Client
}

func NewBraintreeGateway(cfg BraintreeConfig) *BraintreeGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := "https://api.braintreegateway.com"
	if cfg.UseSandbox {
		baseURL = "https://api.sandbox.braintreegateway.com"
	}

	return &BraintreeGateway{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *BraintreeGateway) Name() string {
	return NameBraintree
}

type braintreeCustomer struct {
	ID           string            `json:"id"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	Email        string            `json:"email"`
	CustomFields map[string]string `json:"custom_fields"`

	PaymentMethods []braintreePaymentMethod `json:"payment_methods"`
}

type braintreePaymentMethod struct {
	Token      string `json:"token"`
	CustomerID string `json:"customer_id"`
	Last4      string `json:"last_4"`
	CardType   string `json:"card_type"`
	Email      string `json:"email"`
	PayerInfo  *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"payer_info"`
}

func (g *BraintreeGateway) CreateCustomer(ctx context.Context, payload *CustomerPayload) (*entity.GatewayResult, error) {
	body := map[string]interface{}{
		"first_name":           payload.FirstName,
		"last_name":            payload.LastName,
		"email":                payload.Email,
		"payment_method_nonce": payload.PaymentMethodNonce,
		"custom_fields":        payload.CustomFields,
	}
	if payload.DeviceData != "" {
		body["device_data"] = payload.DeviceData
	}
	if payload.BillingAddress != nil {
		body["credit_card"] = map[string]interface{}{
			"billing_address": addressFields(payload.BillingAddress),
		}
	}

	raw, declined, err := g.post(ctx, "/customers", body)
	if err != nil {
		return nil, err
	}
	if declined != nil {
		return declined, nil
	}

	var parsed struct {
		Customer braintreeCustomer `json:"customer"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Customer.PaymentMethods) == 0 {
		return nil, errors.New("braintree customer has no payment methods")
	}

	method := parsed.Customer.PaymentMethods[0]
	summary := &entity.CustomerSummary{
		PaymentMethodToken: method.Token,
		Last4:              method.Last4,
		CardType:           method.CardType,
		Email:              firstNonEmpty(method.Email, parsed.Customer.Email),
		FirstName:          parsed.Customer.FirstName,
		LastName:           parsed.Customer.LastName,
	}
	if method.PayerInfo != nil {
		summary.FirstName = method.PayerInfo.FirstName
		summary.LastName = method.PayerInfo.LastName
	}

	return &entity.GatewayResult{
		Success:  true,
		Customer: summary,
		Last4:    method.Last4,
		CardType: method.CardType,
	}, nil
}

func (g *BraintreeGateway) CreateTransaction(ctx context.Context, payload *TransactionPayload) (*entity.GatewayResult, error) {
	body := map[string]interface{}{
		"amount": payload.Amount.String(),
		"options": map[string]interface{}{
			"submit_for_settlement": payload.SubmitForSettlement,
		},
	}
	if payload.MerchantAccountID != "" {
		body["merchant_account_id"] = payload.MerchantAccountID
	}
	if payload.PaymentMethodToken != "" {
		body["payment_method_token"] = payload.PaymentMethodToken
	} else {
		body["payment_method_nonce"] = payload.PaymentMethodNonce
	}
	if len(payload.CustomFields) > 0 {
		body["custom_fields"] = payload.CustomFields
	}
	if payload.DeviceData != "" {
		body["device_data"] = payload.DeviceData
	}
	if payload.Customer != nil {
		body["customer"] = map[string]interface{}{
			"first_name": payload.Customer.FirstName,
			"last_name":  payload.Customer.LastName,
			"email":      payload.Customer.Email,
		}
	}
	if payload.BillingAddress != nil {
		body["billing"] = addressFields(payload.BillingAddress)
	}

	raw, declined, err := g.post(ctx, "/transactions", body)
	if err != nil {
		return nil, err
	}
	if declined != nil {
		return declined, nil
	}

	var parsed struct {
		Transaction struct {
			ID          string `json:"id"`
			CardDetails *struct {
				Last4    string `json:"last_4"`
				CardType string `json:"card_type"`
			} `json:"credit_card_details"`
			DisbursementDetails *struct {
				SettlementAmount *entity.Amount `json:"settlement_amount"`
			} `json:"disbursement_details"`
		} `json:"transaction"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	result := &entity.GatewayResult{
		Success:       true,
		TransactionID: parsed.Transaction.ID,
	}
	if parsed.Transaction.CardDetails != nil {
		result.Last4 = parsed.Transaction.CardDetails.Last4
		result.CardType = parsed.Transaction.CardDetails.CardType
	}
	if parsed.Transaction.DisbursementDetails != nil {
		result.SettlementAmount = parsed.Transaction.DisbursementDetails.SettlementAmount
	}

	return result, nil
}

func (g *BraintreeGateway) CreateSubscription(ctx context.Context, payload *SubscriptionPayload) (*entity.GatewayResult, error) {
	body := map[string]interface{}{
		"plan_id":              payload.PlanID,
		"payment_method_token": payload.PaymentMethodToken,
		"price":                payload.Price.String(),
	}
	if payload.MerchantAccountID != "" {
		body["merchant_account_id"] = payload.MerchantAccountID
	}
	if payload.FirstBillingDate != "" {
		body["first_billing_date"] = payload.FirstBillingDate
	}

	raw, declined, err := g.post(ctx, "/subscriptions", body)
	if err != nil {
		return nil, err
	}
	if declined != nil {
		return declined, nil
	}

	var parsed struct {
		Subscription struct {
			ID string `json:"id"`
		} `json:"subscription"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	return &entity.GatewayResult{
		Success:        true,
		SubscriptionID: parsed.Subscription.ID,
	}, nil
}

// PaymentMethod is the vault lookup used to recover the customer that owns
// a subscription's payment method.
type PaymentMethod struct {
	Token      string
	CustomerID string
	Last4      string
	CardType   string
}

func (g *BraintreeGateway) FindPaymentMethod(ctx context.Context, token string) (*PaymentMethod, error) {
	raw, err := g.get(ctx, "/payment_methods/"+url.PathEscape(token))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		PaymentMethod braintreePaymentMethod `json:"payment_method"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	return &PaymentMethod{
		Token:      parsed.PaymentMethod.Token,
		CustomerID: parsed.PaymentMethod.CustomerID,
		Last4:      parsed.PaymentMethod.Last4,
		CardType:   parsed.PaymentMethod.CardType,
	}, nil
}

// Customer is the vault customer record, read back for the custom fields
// set at creation time.
type Customer struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	CustomFields map[string]string
}

func (g *BraintreeGateway) FindCustomer(ctx context.Context, id string) (*Customer, error) {
	raw, err := g.get(ctx, "/customers/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Customer braintreeCustomer `json:"customer"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	return &Customer{
		ID:           parsed.Customer.ID,
		FirstName:    parsed.Customer.FirstName,
		LastName:     parsed.Customer.LastName,
		Email:        parsed.Customer.Email,
		CustomFields: parsed.Customer.CustomFields,
	}, nil
}

// VerifyAndParseWebhook checks the bt_signature value against the
// base64-encoded bt_payload and maps the notification kind onto the
// canonical event model.
func (g *BraintreeGateway) VerifyAndParseWebhook(_ context.Context, body []byte, signature string) (*entity.WebhookEvent, error) {
	if !g.verifySignature(body, signature) {
		return nil, ErrSignatureInvalid
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not valid base64", ErrPayloadInvalid)
	}

	var notification struct {
		Kind         string `json:"kind"`
		Subscription *struct {
			ID                 string                 `json:"id"`
			PaymentMethodToken string                 `json:"payment_method_token"`
			Transactions       []braintreeTransaction `json:"transactions"`
		} `json:"subscription"`
		Dispute *struct {
			Reason      string `json:"reason"`
			Transaction struct {
				ID string `json:"id"`
			} `json:"transaction"`
		} `json:"dispute"`
	}
	if err := json.Unmarshal(decoded, &notification); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	event := &entity.WebhookEvent{
		Gateway:   NameBraintree,
		Kind:      braintreeKind(notification.Kind),
		RawKind:   notification.Kind,
		Braintree: &entity.BraintreeNotification{},
	}

	if notification.Subscription != nil {
		sub := &entity.BraintreeSubscription{
			ID:                 notification.Subscription.ID,
			PaymentMethodToken: notification.Subscription.PaymentMethodToken,
		}
		for _, tx := range notification.Subscription.Transactions {
			sub.Transactions = append(sub.Transactions, tx.toEntity())
		}
		event.Braintree.Subscription = sub
	}
	if notification.Dispute != nil {
		event.Braintree.Dispute = &entity.BraintreeDispute{
			TransactionID: notification.Dispute.Transaction.ID,
			Reason:        notification.Dispute.Reason,
		}
	}

	return event, nil
}

type braintreeTransaction struct {
	ID                    string         `json:"id"`
	Amount                entity.Amount  `json:"amount"`
	CurrencyISOCode       string         `json:"currency_iso_code"`
	Status                string         `json:"status"`
	PaymentInstrumentType string         `json:"payment_instrument_type"`
	CustomerDetails       *payerIdentity `json:"customer_details"`
	PaypalDetails         *struct {
		PayerFirstName string `json:"payer_first_name"`
		PayerLastName  string `json:"payer_last_name"`
		PayerEmail     string `json:"payer_email"`
	} `json:"paypal_details"`
	CardDetails *struct {
		Last4    string `json:"last_4"`
		CardType string `json:"card_type"`
	} `json:"credit_card_details"`
	DisbursementDetails *struct {
		SettlementAmount *entity.Amount `json:"settlement_amount"`
	} `json:"disbursement_details"`
}

type payerIdentity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (tx braintreeTransaction) toEntity() entity.BraintreeTransaction {
	out := entity.BraintreeTransaction{
		ID:              tx.ID,
		Amount:          tx.Amount,
		CurrencyISOCode: tx.CurrencyISOCode,
		Status:          tx.Status,
	}

	if tx.PaymentInstrumentType == "paypal_account" {
		payer := &entity.PayerDetails{}
		if tx.PaypalDetails != nil {
			payer.FirstName = tx.PaypalDetails.PayerFirstName
			payer.LastName = tx.PaypalDetails.PayerLastName
			payer.Email = tx.PaypalDetails.PayerEmail
		}
		out.Paypal = payer
	} else {
		payer := &entity.PayerDetails{}
		if tx.CustomerDetails != nil {
			payer.FirstName = tx.CustomerDetails.FirstName
			payer.LastName = tx.CustomerDetails.LastName
			payer.Email = tx.CustomerDetails.Email
		}
		if tx.CardDetails != nil {
			payer.Last4 = tx.CardDetails.Last4
			payer.CardType = tx.CardDetails.CardType
		}
		out.Card = payer
	}

	if tx.DisbursementDetails != nil {
		out.SettlementAmount = tx.DisbursementDetails.SettlementAmount
	}

	return out
}

func braintreeKind(kind string) entity.WebhookKind {
	switch kind {
	case "subscription_charged_successfully":
		return entity.WebhookSubscriptionCharged
	case "subscription_charged_unsuccessfully":
		return entity.WebhookSubscriptionChargeFailed
	case "dispute_lost":
		return entity.WebhookDisputeLost
	default:
		return entity.WebhookUnsupported
	}
}

// verifySignature checks "publicKey|hexdigest" pairs (multiple pairs are
// ampersand-separated) against an HMAC-SHA1 of the payload. The digest
// comparison is timing safe.
func (g *BraintreeGateway) verifySignature(payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || g.cfg.PrivateKey == "" {
		return false
	}

	mac := hmac.New(sha1.New, []byte(g.cfg.PrivateKey))
	_, _ = mac.Write(payload)
	expected := mac.Sum(nil)

	for _, pair := range strings.Split(signature, "&") {
		publicKey, digest, found := strings.Cut(strings.TrimSpace(pair), "|")
		if !found || publicKey != g.cfg.PublicKey {
			continue
		}
		candidate, err := hex.DecodeString(digest)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}

// post submits a gateway call. A 422 response is a processor decline: it
// is returned as an unsuccessful result with the structured error list
// rather than as a transport error.
func (g *BraintreeGateway) post(ctx context.Context, path string, body map[string]interface{}) (json.RawMessage, *entity.GatewayResult, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(path), bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.PublicKey, g.cfg.PrivateKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		declined, err := parseDecline(raw)
		if err != nil {
			return nil, nil, err
		}
		return nil, declined, nil
	}
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("braintree request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(raw))
	}

	return raw, nil, nil
}

func (g *BraintreeGateway) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(path), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.cfg.PublicKey, g.cfg.PrivateKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("braintree request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(raw))
	}

	return raw, nil
}

func (g *BraintreeGateway) endpoint(path string) string {
	return g.baseURL + "/merchants/" + url.PathEscape(g.cfg.MerchantID) + path
}

func parseDecline(raw []byte) (*entity.GatewayResult, error) {
	var parsed struct {
		Message string `json:"message"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	result := &entity.GatewayResult{
		Success: false,
		Message: parsed.Message,
	}
	for _, item := range parsed.Errors {
		result.Errors = append(result.Errors, entity.GatewayError{Code: item.Code, Message: item.Message})
	}
	return result, nil
}

func addressFields(address *entity.Address) map[string]interface{} {
	fields := map[string]interface{}{
		"street_address":      address.StreetAddress,
		"locality":            address.Locality,
		"postal_code":         address.PostalCode,
		"country_code_alpha2": address.CountryCode,
	}
	if address.Region != "" {
		fields["region"] = address.Region
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
