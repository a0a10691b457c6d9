package entity

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a currency amount in major units. It serializes to JSON as a
// bare number so that decimal precision survives the trip to the CRM queue:
// an amount of 10 encodes as 10, never 10.0 or "10".
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func AmountFromInt(n int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(n)}
}

// AmountFromMinorUnits converts an integer minor-unit value (e.g. cents)
// into a major-unit amount by shifting two decimal places.
func AmountFromMinorUnits(n int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(n).Shift(-2)}
}

func AmountFromString(raw string) (Amount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return Amount{Decimal: d}, nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}
