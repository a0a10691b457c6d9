package entity

// Event types carried by canonical records.
const (
	RecordEventDonation     = "donation"
	RecordEventChargeFailed = "charge.failed"
	RecordEventDisputeLost  = "charge.dispute.closed"
)

// Gateway names as reported in the canonical record's service field.
const (
	ServiceStripe = "stripe"
)

// DonationRecord is the gateway-agnostic transaction record forwarded to
// the CRM queue. Amounts are always major-unit decimals; webhook paths are
// responsible for converting minor-unit gateway amounts before building one
// of these.
type DonationRecord struct {
	EventType        string  `json:"event_type"`
	FirstName        string  `json:"first_name,omitempty"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	DonationAmount   Amount  `json:"donation_amount"`
	Currency         string  `json:"currency"`
	Created          int64   `json:"created"`
	Recurring        bool    `json:"recurring"`
	Service          string  `json:"service"`
	TransactionID    string  `json:"transaction_id"`
	SubscriptionID   string  `json:"subscription_id,omitempty"`
	Project          string  `json:"project"`
	Last4            *string `json:"last_4"`
	DonationURL      string  `json:"donation_url"`
	Locale           string  `json:"locale"`
	ConversionAmount *Amount `json:"conversion_amount"`
	NetAmount        *Amount `json:"net_amount,omitempty"`
	TransactionFee   *Amount `json:"transaction_fee,omitempty"`
}

// FailureRecord reports a failed renewal or a lost dispute downstream.
type FailureRecord struct {
	EventType     string `json:"event_type"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status,omitempty"`
	FailureCode   string `json:"failure_code"`
}
