package gateway

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

// Distinguished webhook failure kinds. Signature failures and malformed
// payloads are logged differently but both abort processing.
var (
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrPayloadInvalid   = errors.New("webhook payload invalid")

	ErrGatewayNotSupported = errors.New("gateway is not supported")
)

// CustomerPayload vaults a payment method against a new customer record.
// Custom fields are attached here, never at subscription time, since the
// gateway associates metadata with the customer.
type CustomerPayload struct {
	FirstName string
	LastName  string
	Email     string

	PaymentMethodNonce string
	DeviceData         string

	CustomFields   map[string]string
	BillingAddress *entity.Address
}

// TransactionPayload is a one-time charge submission.
type TransactionPayload struct {
	Amount            entity.Amount
	MerchantAccountID string

	// Exactly one of PaymentMethodToken (vaulted) or PaymentMethodNonce
	// (direct) is set.
	PaymentMethodToken string
	PaymentMethodNonce string

	DeviceData   string
	CustomFields map[string]string

	Customer       *entity.CustomerSummary
	BillingAddress *entity.Address

	SubmitForSettlement bool
}

// SubscriptionPayload creates a recurring subscription against a vaulted
// payment method.
type SubscriptionPayload struct {
	PlanID             string
	MerchantAccountID  string
	PaymentMethodToken string
	Price              entity.Amount
	FirstBillingDate   string // YYYY-MM-DD, empty for immediate billing
}

// Gateway is the uniform capability set both payment processors expose.
type Gateway interface {
	Name() string
	CreateCustomer(ctx context.Context, payload *CustomerPayload) (*entity.GatewayResult, error)
	CreateTransaction(ctx context.Context, payload *TransactionPayload) (*entity.GatewayResult, error)
	CreateSubscription(ctx context.Context, payload *SubscriptionPayload) (*entity.GatewayResult, error)
	VerifyAndParseWebhook(ctx context.Context, body []byte, signature string) (*entity.WebhookEvent, error)
}

var (
	_ Gateway = (*BraintreeGateway)(nil)
	_ Gateway = (*StripeGateway)(nil)
)

// Registry resolves a gateway by name, used to route queued webhook
// deliveries to the adapter that can verify them.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	items := make(map[string]Gateway, len(gateways))
	for _, g := range gateways {
		items[g.Name()] = g
	}
	return &Registry{gateways: items}
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, ErrGatewayNotSupported
	}
	return g, nil
}
