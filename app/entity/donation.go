package entity

const (
	FrequencySingle  = "single"
	FrequencyMonthly = "monthly"
)

// Payment method names as reported downstream to the CRM.
const (
	MethodCard   = "Braintree_Card"
	MethodPaypal = "Braintree_Paypal"
)

// Address is the donor billing address submitted with card donations.
type Address struct {
	StreetAddress string
	Locality      string
	PostalCode    string
	Region        string
	CountryCode   string
}

// DonationRequest is a validated donor submission. It is immutable once
// built from the HTTP payload and lives only for the duration of the
// request that created it.
type DonationRequest struct {
	FirstName string
	LastName  string
	Email     string
	Address   Address

	Amount    Amount
	Currency  string // 3-letter lower-case code
	Frequency string
	Method    string

	Nonce      string // single-use payment method nonce from the client SDK
	DeviceData string

	CampaignID string
	Project    string
	LandingURL string
	Locale     string
}

// GatewayError is a structured error returned by a gateway call.
type GatewayError struct {
	Code    string
	Message string
}

// CustomerSummary is the slice of a vaulted customer record this service
// reads back after customer creation.
type CustomerSummary struct {
	PaymentMethodToken string
	Last4              string
	CardType           string
	Email              string
	FirstName          string
	LastName           string
}

// GatewayResult is the outcome of a gateway call. It is never persisted
// beyond the HTTP response or session cycle that produced it.
type GatewayResult struct {
	Success bool
	Message string

	TransactionID  string
	SubscriptionID string

	SettlementAmount *Amount
	Last4            string
	CardType         string

	Customer *CustomerSummary

	Errors []GatewayError
}

// TransactionDetails is the flat completed-transaction blob written to the
// session after a successful donation, and the input for building the
// canonical record shipped downstream.
type TransactionDetails struct {
	FirstName string
	LastName  string
	Email     string

	Amount    Amount
	Currency  string
	Frequency string
	Method    string

	TransactionID      string
	PaymentMethodToken string
	Last4              string
	CardType           string
	SettlementAmount   *Amount

	Project    string
	CampaignID string
	LandingURL string
	Locale     string
}
