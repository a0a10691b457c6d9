package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/gateway"
)

// The registry answers "who can verify this delivery"; the backend
// interfaces carry the gateway-specific lookups the uniform Gateway
// capability set does not cover.
type braintreeBackend interface {
	FindPaymentMethod(ctx context.Context, token string) (*gateway.PaymentMethod, error)
	FindCustomer(ctx context.Context, id string) (*gateway.Customer, error)
}

type stripeBackend interface {
	GetInvoice(ctx context.Context, id string) (*gateway.StripeInvoice, error)
	GetSubscription(ctx context.Context, id string) (*gateway.StripeSubscription, error)
	GetBalanceTransaction(ctx context.Context, id string) (*gateway.StripeBalanceTransaction, error)
	UpdateCharge(ctx context.Context, id string, description string, metadata map[string]string) error
}

type recordSender interface {
	Send(ctx context.Context, record interface{}) error
}

// Project discriminators patched onto hosted-checkout charges before they
// are forwarded, checked in fixed priority order.
const (
	projectThunderbird  = "thunderbird"
	projectGlassRoomNYC = "glassroomnyc"
	projectDefault      = "mozillafoundation"

	descriptionThunderbird  = "Thunderbird Monthly Donation"
	descriptionGlassRoomNYC = "Glass Room NYC Monthly Donation"
	descriptionDefault      = "Mozilla Foundation Monthly Donation"
)

// ReconcileService turns verified webhook events into canonical records.
// Each event moves Received -> Verified -> Classified and ends Forwarded,
// Dropped, or Rejected; rejection is logged and swallowed so gateways see
// HTTP success and do not redeliver in a storm.
type ReconcileService struct {
	registry  *gateway.Registry
	braintree braintreeBackend
	stripe    stripeBackend
	basket    recordSender
	siteURL   string
	logger    logrus.FieldLogger

	now      func() time.Time
	handlers map[entity.WebhookKind]func(ctx context.Context, event *entity.WebhookEvent) error
}

func NewReconcileService(
	registry *gateway.Registry,
	braintree braintreeBackend,
	stripe stripeBackend,
	basket recordSender,
	siteURL string,
	logger logrus.FieldLogger,
) *ReconcileService {
	s := &ReconcileService{
		registry:  registry,
		braintree: braintree,
		stripe:    stripe,
		basket:    basket,
		siteURL:   siteURL,
		logger:    logger,
		now:       time.Now,
	}
	s.handlers = map[entity.WebhookKind]func(ctx context.Context, event *entity.WebhookEvent) error{
		entity.WebhookSubscriptionCharged:      s.handleSubscriptionCharged,
		entity.WebhookSubscriptionChargeFailed: s.handleSubscriptionChargeFailed,
		entity.WebhookDisputeLost:              s.handleDisputeLost,
		entity.WebhookChargeSucceeded:          s.handleChargeSucceeded,
	}
	return s
}

func (s *ReconcileService) ProcessBraintreeWebhook(ctx context.Context, body []byte, signature string) error {
	return s.processWebhook(ctx, gateway.NameBraintree, body, signature)
}

func (s *ReconcileService) ProcessStripeWebhook(ctx context.Context, body []byte, signature string) error {
	return s.processWebhook(ctx, gateway.NameStripe, body, signature)
}

func (s *ReconcileService) processWebhook(ctx context.Context, name string, body []byte, signature string) error {
	gw, err := s.registry.Get(name)
	if err != nil {
		return s.reject(err)
	}
	event, err := gw.VerifyAndParseWebhook(ctx, body, signature)
	if err != nil {
		return s.reject(err)
	}
	return s.dispatch(ctx, event)
}

// reject logs a verification or parse failure and swallows it.
func (s *ReconcileService) reject(err error) error {
	switch {
	case errors.Is(err, gateway.ErrSignatureInvalid):
		s.logger.WithError(err).Error("webhook_signature_invalid")
	case errors.Is(err, gateway.ErrPayloadInvalid):
		s.logger.WithError(err).Error("webhook_payload_invalid")
	default:
		s.logger.WithError(err).Error("webhook_rejected")
	}
	return nil
}

func (s *ReconcileService) dispatch(ctx context.Context, event *entity.WebhookEvent) error {
	handler, ok := s.handlers[event.Kind]
	if !ok {
		s.logger.WithField("gateway", event.Gateway).WithField("kind", event.RawKind).Info("webhook_unsupported")
		return nil
	}
	return handler(ctx, event)
}

// handleSubscriptionCharged forwards one donation record per renewal. The
// webhook carries no donor PII beyond the payment instrument, so the
// custom fields set at customer creation are recovered by the
// token -> payment method -> customer round-trip.
func (s *ReconcileService) handleSubscriptionCharged(ctx context.Context, event *entity.WebhookEvent) error {
	sub := event.Braintree.Subscription
	if sub == nil || len(sub.Transactions) == 0 {
		return fmt.Errorf("subscription charge notification without transactions")
	}
	tx := sub.Transactions[0]

	paymentMethod, err := s.braintree.FindPaymentMethod(ctx, sub.PaymentMethodToken)
	if err != nil {
		return err
	}
	customer, err := s.braintree.FindCustomer(ctx, paymentMethod.CustomerID)
	if err != nil {
		return err
	}

	payer := tx.Card
	service := entity.MethodCard
	if tx.Paypal != nil {
		payer = tx.Paypal
		service = entity.MethodPaypal
	}
	if payer == nil {
		return fmt.Errorf("transaction %s carries no payment instrument details", tx.ID)
	}

	record := &entity.DonationRecord{
		EventType:        entity.RecordEventDonation,
		FirstName:        payer.FirstName,
		LastName:         payer.LastName,
		Email:            payer.Email,
		DonationAmount:   tx.Amount,
		Currency:         strings.ToLower(tx.CurrencyISOCode),
		Created:          s.now().Unix(),
		Recurring:        true,
		Service:          service,
		TransactionID:    tx.ID,
		SubscriptionID:   sub.ID,
		Project:          customer.CustomFields["project"],
		DonationURL:      s.siteURL,
		Locale:           customer.CustomFields["locale"],
		ConversionAmount: tx.SettlementAmount,
	}
	if payer.Last4 != "" {
		last4 := payer.Last4
		record.Last4 = &last4
	}

	return s.basket.Send(ctx, record)
}

func (s *ReconcileService) handleSubscriptionChargeFailed(ctx context.Context, event *entity.WebhookEvent) error {
	sub := event.Braintree.Subscription
	if sub == nil {
		return fmt.Errorf("subscription charge failure notification without subscription")
	}

	// Failed renewals are reported against the subscription itself; the
	// last transaction only contributes its status as the failure code.
	record := &entity.FailureRecord{
		EventType:     entity.RecordEventChargeFailed,
		TransactionID: sub.ID,
	}
	if len(sub.Transactions) > 0 {
		record.FailureCode = sub.Transactions[0].Status
	}

	return s.basket.Send(ctx, record)
}

func (s *ReconcileService) handleDisputeLost(ctx context.Context, event *entity.WebhookEvent) error {
	dispute := event.Braintree.Dispute
	if dispute == nil {
		return fmt.Errorf("dispute notification without dispute")
	}

	return s.basket.Send(ctx, &entity.FailureRecord{
		EventType:     entity.RecordEventDisputeLost,
		Status:        "lost",
		TransactionID: dispute.TransactionID,
		FailureCode:   dispute.Reason,
	})
}

// handleChargeSucceeded processes hosted-checkout renewals. A charge with
// no invoice -> subscription chain is not one of ours and is dropped. The
// gateway reports integer minor units for every currency, zero-decimal or
// not, so all three monetary fields divide by 100.
func (s *ReconcileService) handleChargeSucceeded(ctx context.Context, event *entity.WebhookEvent) error {
	charge := event.Stripe
	if charge == nil {
		return fmt.Errorf("charge notification without charge")
	}
	if charge.InvoiceID == "" {
		s.logger.WithField("charge", charge.ID).Info("charge has no invoice, dropping")
		return nil
	}

	invoice, err := s.stripe.GetInvoice(ctx, charge.InvoiceID)
	if err != nil {
		return err
	}
	if invoice.SubscriptionID == "" {
		s.logger.WithField("charge", charge.ID).Info("charge not linked to a subscription, dropping")
		return nil
	}

	subscription, err := s.stripe.GetSubscription(ctx, invoice.SubscriptionID)
	if err != nil {
		return err
	}

	metadata := mergeMetadata(subscription.Metadata, charge.Metadata)
	project, description := classifyProject(metadata)

	// The charge must be relabeled before the record goes out; a failed
	// patch aborts forwarding and is not retried.
	if err := s.stripe.UpdateCharge(ctx, charge.ID, description, map[string]string{"project": project}); err != nil {
		s.logger.WithError(err).WithField("charge", charge.ID).Error("charge description patch failed, not forwarding")
		return nil
	}

	record := &entity.DonationRecord{
		EventType:      entity.RecordEventDonation,
		FirstName:      metadata["first_name"],
		LastName:       metadata["last_name"],
		Email:          charge.Email,
		DonationAmount: entity.AmountFromMinorUnits(charge.Amount),
		Currency:       strings.ToLower(charge.Currency),
		Created:        charge.Created,
		Recurring:      true,
		Service:        entity.ServiceStripe,
		TransactionID:  charge.ID,
		SubscriptionID: invoice.SubscriptionID,
		Project:        project,
		DonationURL:    s.siteURL,
		Locale:         metadata["locale"],
	}
	if record.LastName == "" {
		record.LastName = charge.Name
	}
	if record.Email == "" {
		record.Email = metadata["email"]
	}
	if charge.Last4 != "" {
		last4 := charge.Last4
		record.Last4 = &last4
	}

	if charge.BalanceTransactionID != "" {
		balance, err := s.stripe.GetBalanceTransaction(ctx, charge.BalanceTransactionID)
		if err != nil {
			return err
		}
		conversion := entity.AmountFromMinorUnits(balance.Amount)
		net := entity.AmountFromMinorUnits(balance.Net)
		fee := entity.AmountFromMinorUnits(balance.Fee)
		record.ConversionAmount = &conversion
		record.NetAmount = &net
		record.TransactionFee = &fee
	}

	return s.basket.Send(ctx, record)
}

func classifyProject(metadata map[string]string) (project string, description string) {
	switch {
	case metadataFlag(metadata, projectThunderbird):
		return projectThunderbird, descriptionThunderbird
	case metadataFlag(metadata, projectGlassRoomNYC):
		return projectGlassRoomNYC, descriptionGlassRoomNYC
	default:
		return projectDefault, descriptionDefault
	}
}

func metadataFlag(metadata map[string]string, key string) bool {
	value := strings.ToLower(strings.TrimSpace(metadata[key]))
	return value != "" && value != "false" && value != "0"
}

func mergeMetadata(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}
