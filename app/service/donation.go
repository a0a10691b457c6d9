package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/currency"
	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/gateway"
	"github.com/vibast-solutions/ms-go-donations/app/jobs"
	"github.com/vibast-solutions/ms-go-donations/app/mapper"
	"github.com/vibast-solutions/ms-go-donations/app/session"
)

type vaultGateway interface {
	CreateCustomer(ctx context.Context, payload *gateway.CustomerPayload) (*entity.GatewayResult, error)
	CreateTransaction(ctx context.Context, payload *gateway.TransactionPayload) (*entity.GatewayResult, error)
	CreateSubscription(ctx context.Context, payload *gateway.SubscriptionPayload) (*entity.GatewayResult, error)
}

type sessionStore interface {
	Write(ctx context.Context, sessionKey string, details *entity.TransactionDetails) error
	Read(ctx context.Context, sessionKey string) (*entity.TransactionDetails, error)
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, queue string, jobType string, payload interface{}) error
	EnqueueLatest(ctx context.Context, queue string, jobType string, dedupeKey string, payload interface{}) error
}

// DonationService runs the synchronous donation flows: vault, charge or
// subscribe, persist the outcome to the donor's session, and hand the
// record off to the background queue. Gateway failures are recovered into
// donor-facing errors here; nothing below this layer shapes user messages.
type DonationService struct {
	vault      vaultGateway
	builder    *TransactionBuilder
	sessions   sessionStore
	dispatcher jobEnqueuer
	logger     logrus.FieldLogger

	now func() time.Time
}

func NewDonationService(
	vault vaultGateway,
	builder *TransactionBuilder,
	sessions sessionStore,
	dispatcher jobEnqueuer,
	logger logrus.FieldLogger,
) *DonationService {
	return &DonationService{
		vault:      vault,
		builder:    builder,
		sessions:   sessions,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Donate runs a validated donation request against the vault gateway and
// returns the completed transaction details. Single donations enqueue a
// record immediately; monthly ones are recorded webhook-side when the
// first charge lands.
func (s *DonationService) Donate(ctx context.Context, req *entity.DonationRequest, sessionKey string) (*entity.TransactionDetails, error) {
	profile, ok := currency.Info(req.Currency)
	if !ok {
		return nil, ErrCurrencyUnsupported
	}
	if req.Amount.LessThan(profile.MinAmount) {
		return nil, ErrInvalidRequest
	}
	if req.Method == entity.MethodPaypal && profile.MethodDisabled("paypal") {
		return nil, ErrInvalidRequest
	}

	var details *entity.TransactionDetails
	var err error
	switch {
	case req.Frequency == entity.FrequencySingle && req.Method == entity.MethodPaypal:
		details, err = s.paypalSale(ctx, req)
	case req.Frequency == entity.FrequencySingle:
		details, err = s.vaultAndSale(ctx, req)
	case req.Frequency == entity.FrequencyMonthly:
		details, err = s.vaultAndSubscribe(ctx, req)
	default:
		return nil, ErrInvalidRequest
	}
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Write(ctx, sessionKey, details); err != nil {
		return nil, err
	}

	if req.Frequency == entity.FrequencySingle {
		record := mapper.RecordFromTransactionDetails(details, s.now().Unix())
		if err := s.dispatcher.Enqueue(ctx, jobs.QueueBasket, jobs.TypeSendRecord, record); err != nil {
			// The charge already settled; losing the record must not fail
			// the donation.
			s.logger.WithError(err).Error("enqueue donation record failed")
		}
	}

	return details, nil
}

// vaultAndSale vaults the card first so the payment method token is
// available for the upsell flow, then charges it.
func (s *DonationService) vaultAndSale(ctx context.Context, req *entity.DonationRequest) (*entity.TransactionDetails, error) {
	customerResult, err := s.vault.CreateCustomer(ctx, s.builder.CustomerPayload(req))
	if err != nil {
		return nil, err
	}
	if !customerResult.Success {
		s.logger.WithField("message", customerResult.Message).Error("braintree customer create failed")
		return nil, mapGatewayFailure(customerResult)
	}

	customer := customerResult.Customer
	saleResult, err := s.vault.CreateTransaction(ctx, s.builder.SalePayload(req, customer.PaymentMethodToken))
	if err != nil {
		return nil, err
	}
	if !saleResult.Success {
		s.logger.WithField("message", saleResult.Message).Error("braintree transaction failed")
		return nil, mapGatewayFailure(saleResult)
	}

	details := detailsFromRequest(req)
	details.TransactionID = saleResult.TransactionID
	details.PaymentMethodToken = customer.PaymentMethodToken
	details.Last4 = customer.Last4
	details.CardType = customer.CardType
	details.SettlementAmount = saleResult.SettlementAmount
	return details, nil
}

// paypalSale charges a single paypal donation directly by nonce; nothing
// is vaulted, so the session carries no token and the upsell flow will
// refuse it.
func (s *DonationService) paypalSale(ctx context.Context, req *entity.DonationRequest) (*entity.TransactionDetails, error) {
	saleResult, err := s.vault.CreateTransaction(ctx, s.builder.PaypalSalePayload(req))
	if err != nil {
		return nil, err
	}
	if !saleResult.Success {
		s.logger.WithField("message", saleResult.Message).Error("braintree paypal transaction failed")
		return nil, mapGatewayFailure(saleResult)
	}

	details := detailsFromRequest(req)
	details.TransactionID = saleResult.TransactionID
	details.SettlementAmount = saleResult.SettlementAmount
	return details, nil
}

// vaultAndSubscribe creates the customer (custom fields attach here) and,
// only if that succeeded, the subscription against the vaulted token. A
// customer-create failure returns immediately with the structured error
// list intact.
func (s *DonationService) vaultAndSubscribe(ctx context.Context, req *entity.DonationRequest) (*entity.TransactionDetails, error) {
	customerResult, err := s.vault.CreateCustomer(ctx, s.builder.CustomerPayload(req))
	if err != nil {
		return nil, err
	}
	if !customerResult.Success {
		s.logger.WithField("message", customerResult.Message).Error("braintree customer create failed")
		return nil, mapGatewayFailure(customerResult)
	}

	customer := customerResult.Customer
	subResult, err := s.vault.CreateSubscription(ctx, s.builder.SubscriptionPayload(req, customer.PaymentMethodToken, time.Time{}))
	if err != nil {
		return nil, err
	}
	if !subResult.Success {
		s.logger.WithField("message", subResult.Message).Error("braintree subscription failed")
		return nil, mapGatewayFailure(subResult)
	}

	details := detailsFromRequest(req)
	details.TransactionID = subResult.SubscriptionID
	details.PaymentMethodToken = customer.PaymentMethodToken
	details.Last4 = customer.Last4
	details.CardType = customer.CardType
	return details, nil
}

// Upsell upgrades the session's completed single card donation into a
// monthly subscription billed one month out, reusing the vaulted token.
func (s *DonationService) Upsell(ctx context.Context, sessionKey string, amount entity.Amount) (*entity.TransactionDetails, error) {
	details, err := s.sessions.Read(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionRequired
		}
		return nil, err
	}

	if details.Frequency != entity.FrequencySingle || details.Method != entity.MethodCard || details.PaymentMethodToken == "" {
		return nil, ErrUpsellNotEligible
	}

	profile, ok := currency.Info(details.Currency)
	if !ok {
		return nil, ErrCurrencyUnsupported
	}
	if amount.LessThan(profile.MinAmount) {
		return nil, ErrUpsellNotEligible
	}

	req := &entity.DonationRequest{
		FirstName: details.FirstName,
		LastName:  details.LastName,
		Email:     details.Email,
		Amount:    amount,
		Currency:  details.Currency,
		Frequency: entity.FrequencyMonthly,
		Method:    entity.MethodCard,
		Project:   details.Project,
		Locale:    details.Locale,
	}

	payload := s.builder.SubscriptionPayload(req, details.PaymentMethodToken, s.now().AddDate(0, 1, 0))
	subResult, err := s.vault.CreateSubscription(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !subResult.Success {
		s.logger.WithField("message", subResult.Message).Error("braintree upsell subscription failed")
		return nil, mapGatewayFailure(subResult)
	}

	upgraded := *details
	upgraded.Amount = amount
	upgraded.Frequency = entity.FrequencyMonthly
	upgraded.TransactionID = subResult.SubscriptionID
	upgraded.SettlementAmount = nil
	if err := s.sessions.Write(ctx, sessionKey, &upgraded); err != nil {
		return nil, err
	}

	return &upgraded, nil
}

// Completed returns the thank-you data for the donor's session.
func (s *DonationService) Completed(ctx context.Context, sessionKey string) (*entity.TransactionDetails, error) {
	details, err := s.sessions.Read(ctx, sessionKey)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionRequired
	}
	return details, err
}

// NewsletterSignup defers the basket subscription call to the worker.
// Repeat submissions for the same email collapse to the latest one.
func (s *DonationService) NewsletterSignup(ctx context.Context, payload *NewsletterSignupPayload) error {
	return s.dispatcher.EnqueueLatest(ctx, jobs.QueueBasket, jobs.TypeNewsletterSignup, payload.Email, payload)
}

func detailsFromRequest(req *entity.DonationRequest) *entity.TransactionDetails {
	return &entity.TransactionDetails{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Frequency:  req.Frequency,
		Method:     req.Method,
		Project:    req.Project,
		CampaignID: req.CampaignID,
		LandingURL: req.LandingURL,
		Locale:     req.Locale,
	}
}

// mapGatewayFailure folds a structured gateway error list into the donor
// error taxonomy: postal-code errors first, then the curated card-decline
// set, then the generic message.
func mapGatewayFailure(result *entity.GatewayResult) error {
	addressMessages := make([]string, 0, 1)
	for _, item := range result.Errors {
		if msg, ok := addressErrorMessages[item.Code]; ok {
			addressMessages = appendUnique(addressMessages, msg)
		}
	}
	if len(addressMessages) > 0 {
		return &AddressError{Messages: addressMessages}
	}

	declineTexts := make([]string, 0, 1)
	for _, item := range result.Errors {
		if msg, ok := declineMessages[item.Code]; ok {
			declineTexts = appendUnique(declineTexts, msg)
		}
	}
	if len(declineTexts) > 0 {
		return &DeclinedError{Messages: declineTexts}
	}

	return &DeclinedError{Messages: []string{defaultDeclineMessage}}
}

func appendUnique(items []string, candidate string) []string {
	for _, item := range items {
		if item == candidate {
			return items
		}
	}
	return append(items, candidate)
}
