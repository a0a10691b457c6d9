package mapper

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

func TestRecordFromTransactionDetails(t *testing.T) {
	amount, _ := entity.AmountFromString("10.00")
	details := &entity.TransactionDetails{
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		Amount:        amount,
		Currency:      "usd",
		Frequency:     entity.FrequencySingle,
		Method:        entity.MethodCard,
		TransactionID: "tx_1",
		Last4:         "4242",
		Project:       "mozillafoundation",
		LandingURL:    "https://donate.example.com/ways-to-give/",
		Locale:        "en-US",
	}

	record := RecordFromTransactionDetails(details, 1467225605)
	if record.Recurring {
		t.Fatal("single donation must not be recurring")
	}
	if record.Service != entity.MethodCard {
		t.Fatalf("unexpected service: %s", record.Service)
	}
	if record.Last4 == nil || *record.Last4 != "4242" {
		t.Fatalf("unexpected last_4: %v", record.Last4)
	}
	if record.ConversionAmount != nil {
		t.Fatal("expected nil conversion amount")
	}
	if record.DonationURL != details.LandingURL {
		t.Fatalf("unexpected donation url: %s", record.DonationURL)
	}
}

func TestRecordAmountKeepsDecimalPrecision(t *testing.T) {
	amount := entity.AmountFromInt(10)
	record := RecordFromTransactionDetails(&entity.TransactionDetails{
		Amount:    amount,
		Frequency: entity.FrequencyMonthly,
		Method:    entity.MethodPaypal,
	}, 1)

	if !record.Recurring {
		t.Fatal("monthly donation must be recurring")
	}
	if record.Last4 != nil {
		t.Fatal("paypal donation has no last_4")
	}

	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), `"donation_amount":10,`) {
		t.Fatalf("amount must serialize as a bare integer: %s", raw)
	}
}
