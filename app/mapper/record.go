package mapper

import (
	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

// RecordFromTransactionDetails builds the canonical record shipped to the
// CRM queue from a completed synchronous donation.
func RecordFromTransactionDetails(details *entity.TransactionDetails, created int64) *entity.DonationRecord {
	if details == nil {
		return nil
	}

	record := &entity.DonationRecord{
		EventType:        entity.RecordEventDonation,
		FirstName:        details.FirstName,
		LastName:         details.LastName,
		Email:            details.Email,
		DonationAmount:   details.Amount,
		Currency:         details.Currency,
		Created:          created,
		Recurring:        details.Frequency == entity.FrequencyMonthly,
		Service:          details.Method,
		TransactionID:    details.TransactionID,
		Project:          details.Project,
		DonationURL:      details.LandingURL,
		Locale:           details.Locale,
		ConversionAmount: details.SettlementAmount,
	}
	if details.Last4 != "" {
		last4 := details.Last4
		record.Last4 = &last4
	}

	return record
}
