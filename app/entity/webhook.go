package entity

// WebhookKind is the canonical classification of an inbound gateway
// notification. Gateway-specific event names are mapped onto this enum by
// the adapters; anything unrecognized becomes WebhookUnsupported and is
// dropped without error.
type WebhookKind int

const (
	WebhookUnsupported WebhookKind = iota
	WebhookSubscriptionCharged
	WebhookSubscriptionChargeFailed
	WebhookDisputeLost
	WebhookChargeSucceeded
)

func (k WebhookKind) String() string {
	switch k {
	case WebhookSubscriptionCharged:
		return "subscription_charged_successfully"
	case WebhookSubscriptionChargeFailed:
		return "subscription_charged_unsuccessfully"
	case WebhookDisputeLost:
		return "dispute_lost"
	case WebhookChargeSucceeded:
		return "charge.succeeded"
	default:
		return "unsupported"
	}
}

// WebhookEvent is a verified, parsed gateway notification. It is processed
// once and discarded; nothing here is persisted.
type WebhookEvent struct {
	Gateway string
	Kind    WebhookKind
	RawKind string

	Braintree *BraintreeNotification
	Stripe    *StripeCharge
}

// BraintreeNotification carries the parts of a vault-gateway webhook this
// service reads.
type BraintreeNotification struct {
	Subscription *BraintreeSubscription
	Dispute      *BraintreeDispute
}

type BraintreeSubscription struct {
	ID                 string
	PaymentMethodToken string
	// Transactions are ordered newest first; the head is the charge that
	// triggered the notification.
	Transactions []BraintreeTransaction
}

type BraintreeTransaction struct {
	ID              string
	Amount          Amount
	CurrencyISOCode string
	Status          string

	// Exactly one of Card or Paypal is set, selected by the payload's
	// payment_instrument_type.
	Card   *PayerDetails
	Paypal *PayerDetails

	SettlementAmount *Amount
}

// PayerDetails is the donor identity attached to a payment instrument.
type PayerDetails struct {
	FirstName string
	LastName  string
	Email     string
	Last4     string
	CardType  string
}

type BraintreeDispute struct {
	TransactionID string
	Reason        string
}

// StripeCharge is the charge object delivered inside a charge.succeeded
// event. Monetary fields are integer minor units regardless of the
// currency's zero-decimal status.
type StripeCharge struct {
	ID                   string
	InvoiceID            string
	Amount               int64
	Currency             string
	Created              int64
	Description          string
	BalanceTransactionID string
	Name                 string
	Email                string
	Last4                string
	Metadata             map[string]string
}
