package session

import (
	"context"
	"encoding/json"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/repository"
)

var ErrNotFound = repository.ErrSessionNotFound

type sessionRepository interface {
	Save(ctx context.Context, sessionKey string, payloadJSON string) error
	Find(ctx context.Context, sessionKey string) (string, error)
	Delete(ctx context.Context, sessionKey string) error
}

// Writer persists the completed-transaction blob between the donation
// request and the thank-you/upsell requests that follow it. Amounts are
// frozen as strings so the blob survives serialization without losing
// decimal precision.
type Writer struct {
	repo sessionRepository
}

func NewWriter(repo sessionRepository) *Writer {
	return &Writer{repo: repo}
}

type frozenDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`

	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Frequency string `json:"frequency"`
	Method    string `json:"method"`

	TransactionID      string `json:"transaction_id"`
	PaymentMethodToken string `json:"payment_method_token,omitempty"`
	Last4              string `json:"last_4,omitempty"`
	CardType           string `json:"card_type,omitempty"`
	SettlementAmount   string `json:"settlement_amount,omitempty"`

	Project    string `json:"project"`
	CampaignID string `json:"campaign_id,omitempty"`
	LandingURL string `json:"landing_url,omitempty"`
	Locale     string `json:"locale"`
}

func (w *Writer) Write(ctx context.Context, sessionKey string, details *entity.TransactionDetails) error {
	frozen := frozenDetails{
		FirstName:          details.FirstName,
		LastName:           details.LastName,
		Email:              details.Email,
		Amount:             details.Amount.String(),
		Currency:           details.Currency,
		Frequency:          details.Frequency,
		Method:             details.Method,
		TransactionID:      details.TransactionID,
		PaymentMethodToken: details.PaymentMethodToken,
		Last4:              details.Last4,
		CardType:           details.CardType,
		Project:            details.Project,
		CampaignID:         details.CampaignID,
		LandingURL:         details.LandingURL,
		Locale:             details.Locale,
	}
	if details.SettlementAmount != nil {
		frozen.SettlementAmount = details.SettlementAmount.String()
	}

	payload, err := json.Marshal(frozen)
	if err != nil {
		return err
	}

	return w.repo.Save(ctx, sessionKey, string(payload))
}

func (w *Writer) Read(ctx context.Context, sessionKey string) (*entity.TransactionDetails, error) {
	payload, err := w.repo.Find(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	var frozen frozenDetails
	if err := json.Unmarshal([]byte(payload), &frozen); err != nil {
		return nil, err
	}

	amount, err := entity.AmountFromString(frozen.Amount)
	if err != nil {
		return nil, err
	}

	details := &entity.TransactionDetails{
		FirstName:          frozen.FirstName,
		LastName:           frozen.LastName,
		Email:              frozen.Email,
		Amount:             amount,
		Currency:           frozen.Currency,
		Frequency:          frozen.Frequency,
		Method:             frozen.Method,
		TransactionID:      frozen.TransactionID,
		PaymentMethodToken: frozen.PaymentMethodToken,
		Last4:              frozen.Last4,
		CardType:           frozen.CardType,
		Project:            frozen.Project,
		CampaignID:         frozen.CampaignID,
		LandingURL:         frozen.LandingURL,
		Locale:             frozen.Locale,
	}
	if frozen.SettlementAmount != "" {
		settlement, err := entity.AmountFromString(frozen.SettlementAmount)
		if err != nil {
			return nil, err
		}
		details.SettlementAmount = &settlement
	}

	return details, nil
}

func (w *Writer) Clear(ctx context.Context, sessionKey string) error {
	return w.repo.Delete(ctx, sessionKey)
}
