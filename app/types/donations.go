package types

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-donations/app/currency"
	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// DonationErrorResponse carries the donor-facing messages for a declined
// or invalid donation; AddressInvalid marks postal-code failures so the
// client can highlight the address field.
type DonationErrorResponse struct {
	Errors         []string `json:"errors"`
	AddressInvalid bool     `json:"address_invalid,omitempty"`
}

type AddressPayload struct {
	StreetAddress string `json:"street_address"`
	Town          string `json:"town"`
	PostalCode    string `json:"post_code"`
	Region        string `json:"region"`
	Country       string `json:"country"`
}

type DonationRequest struct {
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
	Address   AddressPayload `json:"address"`

	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency"`
	Frequency string      `json:"frequency"`

	BraintreeNonce string `json:"braintree_nonce"`
	DeviceData     string `json:"device_data"`

	CampaignID string `json:"campaign_id"`
	Project    string `json:"project"`
	LandingURL string `json:"landing_url"`
	Locale     string `json:"locale"`
}

func NewDonationRequestFromContext(ctx echo.Context) (*DonationRequest, error) {
	var body DonationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.FirstName = strings.TrimSpace(body.FirstName)
	body.LastName = strings.TrimSpace(body.LastName)
	body.Email = strings.TrimSpace(body.Email)
	body.Currency = strings.ToLower(strings.TrimSpace(body.Currency))
	body.Frequency = strings.ToLower(strings.TrimSpace(body.Frequency))
	body.BraintreeNonce = strings.TrimSpace(body.BraintreeNonce)
	body.Project = strings.TrimSpace(body.Project)
	body.Locale = strings.TrimSpace(body.Locale)

	if body.Currency == "" {
		body.Currency = currency.DefaultCurrency(ctx.Request().Header.Get("Accept-Language"))
	}
	if body.Project == "" {
		body.Project = "mozillafoundation"
	}

	return &body, nil
}

func (r *DonationRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return errors.New("first_name and last_name are required")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	if r.Frequency != entity.FrequencySingle && r.Frequency != entity.FrequencyMonthly {
		return errors.New("frequency must be single or monthly")
	}
	if r.BraintreeNonce == "" {
		return errors.New("braintree_nonce is required")
	}

	profile, ok := currency.Info(r.Currency)
	if !ok {
		return errors.New("currency is not supported")
	}
	amount, err := entity.AmountFromString(r.Amount.String())
	if err != nil {
		return errors.New("amount must be a decimal number")
	}
	if amount.LessThan(profile.MinAmount) {
		return errors.New("amount is below the minimum for this currency")
	}

	return nil
}

// ToEntity converts the validated payload. The amount is guaranteed to
// parse once Validate has passed.
func (r *DonationRequest) ToEntity(method string) (*entity.DonationRequest, error) {
	amount, err := entity.AmountFromString(r.Amount.String())
	if err != nil {
		return nil, err
	}

	return &entity.DonationRequest{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Address: entity.Address{
			StreetAddress: r.Address.StreetAddress,
			Locality:      r.Address.Town,
			PostalCode:    r.Address.PostalCode,
			Region:        r.Address.Region,
			CountryCode:   r.Address.Country,
		},
		Amount:     amount,
		Currency:   r.Currency,
		Frequency:  r.Frequency,
		Method:     method,
		Nonce:      r.BraintreeNonce,
		DeviceData: r.DeviceData,
		CampaignID: r.CampaignID,
		Project:    r.Project,
		LandingURL: r.LandingURL,
		Locale:     r.Locale,
	}, nil
}

type UpsellRequest struct {
	Amount json.Number `json:"amount"`
}

func NewUpsellRequestFromContext(ctx echo.Context) (*UpsellRequest, error) {
	var body UpsellRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *UpsellRequest) Validate() error {
	amount, err := entity.AmountFromString(r.Amount.String())
	if err != nil {
		return errors.New("amount must be a decimal number")
	}
	if amount.Sign() <= 0 {
		return errors.New("amount must be > 0")
	}
	return nil
}

type NewsletterSignupRequest struct {
	Email     string `json:"email"`
	Lang      string `json:"lang"`
	SourceURL string `json:"source_url"`
}

func NewNewsletterSignupRequestFromContext(ctx echo.Context) (*NewsletterSignupRequest, error) {
	var body NewsletterSignupRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)
	body.Lang = strings.TrimSpace(body.Lang)
	if body.Lang == "" {
		body.Lang = "en"
	}

	return &body, nil
}

func (r *NewsletterSignupRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	return nil
}

// CompletedResponse is the thank-you page payload.
type CompletedResponse struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	Frequency        string `json:"frequency"`
	Method           string `json:"method"`
	TransactionID    string `json:"transaction_id"`
	Last4            string `json:"last_4,omitempty"`
	CardType         string `json:"card_type,omitempty"`
	UpgradeSuggested string `json:"upgrade_suggested,omitempty"`
}
