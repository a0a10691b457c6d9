package service

import (
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/currency"
	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/gateway"
	"github.com/vibast-solutions/ms-go-donations/config"
)

// TransactionBuilder assembles gateway submission payloads from a
// validated donation request. Custom fields always travel on the customer
// record (or on the transaction for unvaulted paypal sales), never on the
// subscription: the gateway associates metadata with the customer.
type TransactionBuilder struct {
	cfg config.BraintreeConfig
}

func NewTransactionBuilder(cfg config.BraintreeConfig) *TransactionBuilder {
	return &TransactionBuilder{cfg: cfg}
}

func (b *TransactionBuilder) CustomFields(req *entity.DonationRequest) map[string]string {
	fields := map[string]string{
		"project":       req.Project,
		"campaign_id":   req.CampaignID,
		"locale":        req.Locale,
		"fraud_site_id": b.cfg.FraudSiteID,
		"landing_url":   req.LandingURL,
	}
	return fields
}

// CustomerPayload vaults the submitted payment method. The billing address
// rides along for card donations only; paypal accounts carry no address.
func (b *TransactionBuilder) CustomerPayload(req *entity.DonationRequest) *gateway.CustomerPayload {
	payload := &gateway.CustomerPayload{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		PaymentMethodNonce: req.Nonce,
		DeviceData:         req.DeviceData,
		CustomFields:       b.CustomFields(req),
	}
	if req.Method == entity.MethodCard {
		payload.BillingAddress = &req.Address
	}
	return payload
}

// SalePayload charges a vaulted payment method.
func (b *TransactionBuilder) SalePayload(req *entity.DonationRequest, paymentMethodToken string) *gateway.TransactionPayload {
	return &gateway.TransactionPayload{
		Amount:              req.Amount,
		MerchantAccountID:   b.cfg.MerchantAccounts[req.Currency],
		PaymentMethodToken:  paymentMethodToken,
		DeviceData:          req.DeviceData,
		SubmitForSettlement: true,
	}
}

// PaypalSalePayload charges a single paypal donation directly by nonce,
// without vaulting. The merchant account follows the micro/macro fee
// schedule for the amount.
func (b *TransactionBuilder) PaypalSalePayload(req *entity.DonationRequest) *gateway.TransactionPayload {
	return &gateway.TransactionPayload{
		Amount: req.Amount,
		MerchantAccountID: currency.MerchantAccountForPaypal(
			b.cfg.MerchantAccounts, b.cfg.PaypalMicroAccounts, req.Currency, req.Amount.Decimal,
		),
		PaymentMethodNonce: req.Nonce,
		DeviceData:         req.DeviceData,
		CustomFields:       b.CustomFields(req),
		Customer: &entity.CustomerSummary{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		},
		SubmitForSettlement: true,
	}
}

// SubscriptionPayload bills a vaulted payment method monthly. A zero
// firstBillingDate bills immediately; the upsell path passes one month out
// so the donor is not double charged in the first cycle.
func (b *TransactionBuilder) SubscriptionPayload(
	req *entity.DonationRequest,
	paymentMethodToken string,
	firstBillingDate time.Time,
) *gateway.SubscriptionPayload {
	payload := &gateway.SubscriptionPayload{
		PlanID:             b.cfg.Plans[req.Currency],
		PaymentMethodToken: paymentMethodToken,
		Price:              req.Amount,
	}
	if req.Method == entity.MethodPaypal {
		payload.MerchantAccountID = currency.MerchantAccountForPaypal(
			b.cfg.MerchantAccounts, b.cfg.PaypalMicroAccounts, req.Currency, req.Amount.Decimal,
		)
	} else {
		payload.MerchantAccountID = b.cfg.MerchantAccounts[req.Currency]
	}
	if !firstBillingDate.IsZero() {
		payload.FirstBillingDate = firstBillingDate.Format("2006-01-02")
	}
	return payload
}
