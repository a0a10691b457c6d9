// Package currency holds the static per-currency donation configuration
// and the pure fee/amount rules derived from it.
package currency

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	PaypalAccountMicro = "micro"
	PaypalAccountMacro = "macro"
)

const fallbackCurrency = "usd"

// PayPal percentage rates per merchant account tier.
var (
	paypalMicroRate = decimal.RequireFromString("0.05")
	paypalMacroRate = decimal.RequireFromString("0.029")
)

// Donations below this many major units route to the micro merchant
// account and its fee schedule.
var paypalMicroCutoff = decimal.NewFromInt(10)

// Info returns the static profile for a currency code.
func Info(code string) (Profile, bool) {
	profile, ok := profiles[strings.ToLower(strings.TrimSpace(code))]
	return profile, ok
}

// Codes returns every supported currency code.
func Codes() []string {
	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DefaultCurrency resolves an Accept-Language style preference list to a
// currency code. Tags are tried in descending weight order; a tag with no
// exact entry falls back to its base language. Every input resolves to a
// valid code, defaulting to usd.
func DefaultCurrency(acceptLanguage string) string {
	for _, tag := range parseAcceptLanguage(acceptLanguage) {
		if code, ok := localeCurrency[tag]; ok {
			return code
		}
		if base, _, found := strings.Cut(tag, "-"); found {
			if code, ok := localeCurrency[base]; ok {
				return code
			}
		}
	}
	return fallbackCurrency
}

type weightedTag struct {
	tag    string
	weight float64
}

// parseAcceptLanguage returns the header's language tags in descending
// weight order. The sort is stable: tags with equal weights keep the order
// they were given in. Malformed entries are skipped.
func parseAcceptLanguage(header string) []string {
	var parsed []weightedTag
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, params, _ := strings.Cut(part, ";")
		tag = normalizeTag(strings.TrimSpace(tag))
		if tag == "" || tag == "*" {
			continue
		}
		weight := 1.0
		if params != "" {
			raw := strings.TrimSpace(params)
			if !strings.HasPrefix(raw, "q=") {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimPrefix(raw, "q="), 64)
			if err != nil || q < 0 || q > 1 {
				continue
			}
			weight = q
		}
		parsed = append(parsed, weightedTag{tag: tag, weight: weight})
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].weight > parsed[j].weight
	})

	tags := make([]string, 0, len(parsed))
	for _, item := range parsed {
		tags = append(tags, item.tag)
	}
	return tags
}

// normalizeTag turns a language tag into the lang-REGION form used by the
// locale table, e.g. "en-us" -> "en-US".
func normalizeTag(tag string) string {
	lang, region, found := strings.Cut(strings.ToLower(tag), "-")
	if !found {
		return lang
	}
	return lang + "-" + strings.ToUpper(region)
}

// SuggestedMonthlyUpgrade returns the monthly amount to suggest after a
// single donation. Manual tiers are consulted first in stored (descending
// threshold) order; with no matching tier the suggestion is a tenth of the
// single amount rounded up to the currency's precision. Returns nil when
// even the fallback would land below the currency's minimum, so that tiny
// single gifts never produce an upsell.
func SuggestedMonthlyUpgrade(code string, single decimal.Decimal) *decimal.Decimal {
	profile, known := Info(code)
	for _, tier := range profile.MonthlyUpgrade {
		if single.GreaterThanOrEqual(tier.Min) {
			value := tier.Value
			return &value
		}
	}

	minAmount := profile.MinAmount
	if !known {
		minAmount = profiles[fallbackCurrency].MinAmount
	}
	fallback := single.Div(decimal.NewFromInt(10)).RoundUp(minorUnitPlaces(profile))
	if fallback.LessThan(minAmount) || !fallback.IsPositive() {
		return nil
	}
	return &fallback
}

// PaypalMicroFee computes the PayPal processing fee under the micro
// (small-donation) fee schedule.
func PaypalMicroFee(code string, amount decimal.Decimal) decimal.Decimal {
	return paypalFee(code, amount, paypalMicroRate, func(fees PaypalFees) decimal.Decimal {
		return fees.Micro
	})
}

// PaypalMacroFee computes the PayPal processing fee under the standard fee
// schedule.
func PaypalMacroFee(code string, amount decimal.Decimal) decimal.Decimal {
	return paypalFee(code, amount, paypalMacroRate, func(fees PaypalFees) decimal.Decimal {
		return fees.Macro
	})
}

func paypalFee(code string, amount, rate decimal.Decimal, fixed func(PaypalFees) decimal.Decimal) decimal.Decimal {
	profile, _ := Info(code)
	fee := amount.Mul(rate)
	if profile.PaypalFees != nil {
		fee = fee.Add(fixed(*profile.PaypalFees))
	}
	return fee.Round(minorUnitPlaces(profile))
}

// PaypalAccountFor selects the merchant account tier for a PayPal
// donation: amounts under the cutoff use the micro account.
func PaypalAccountFor(amount decimal.Decimal) string {
	if amount.LessThan(paypalMicroCutoff) {
		return PaypalAccountMicro
	}
	return PaypalAccountMacro
}

// MerchantAccountForPaypal resolves the merchant account id for a PayPal
// donation. Micro-tier donations prefer the micro-specific mapping and
// fall back to the general mapping when the currency has no micro account
// configured.
func MerchantAccountForPaypal(accounts, microAccounts map[string]string, code string, amount decimal.Decimal) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if PaypalAccountFor(amount) == PaypalAccountMicro {
		if id, ok := microAccounts[code]; ok && id != "" {
			return id
		}
	}
	return accounts[code]
}

func minorUnitPlaces(profile Profile) int32 {
	if profile.ZeroDecimal {
		return 0
	}
	return 2
}
