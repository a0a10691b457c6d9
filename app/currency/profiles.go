package currency

import "github.com/shopspring/decimal"

// UpgradeTier maps a single-donation threshold to the monthly amount
// suggested on the upsell step. Tiers are stored descending by Min; the
// first tier whose Min is <= the single amount wins.
type UpgradeTier struct {
	Min   decimal.Decimal
	Value decimal.Decimal
}

// PaypalFees are the fixed per-transaction fees for the micro and macro
// merchant accounts, in the currency's major unit.
type PaypalFees struct {
	Micro decimal.Decimal
	Macro decimal.Decimal
}

// Profile is the static per-currency configuration.
type Profile struct {
	Code      string
	Symbol    string
	MinAmount decimal.Decimal

	PaypalFees *PaypalFees

	MonthlyUpgrade []UpgradeTier

	PresetsSingle  []int64
	PresetsMonthly []int64

	// Disabled payment methods for the currency (e.g. amex, paypal).
	Disabled []string

	// ZeroDecimal marks currencies whose PayPal amounts carry no
	// fractional subdivision.
	ZeroDecimal bool
}

// MethodDisabled reports whether the payment method is switched off for
// the currency.
func (p Profile) MethodDisabled(method string) bool {
	for _, item := range p.Disabled {
		if item == method {
			return true
		}
	}
	return false
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func tier(min, value int64) UpgradeTier {
	return UpgradeTier{Min: decimal.NewFromInt(min), Value: decimal.NewFromInt(value)}
}

var profiles = map[string]Profile{
	"usd": {
		Code:      "usd",
		Symbol:    "$",
		MinAmount: decimal.NewFromInt(2),
		PaypalFees: &PaypalFees{
			Macro: d("0.30"),
			Micro: d("0.05"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(300, 30), tier(200, 20), tier(100, 10),
			tier(70, 7), tier(35, 5), tier(15, 3),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"aud": {
		Code:      "aud",
		Symbol:    "$",
		MinAmount: decimal.NewFromInt(3),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.30"),
			Micro: d("0.05"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(432, 40), tier(288, 30), tier(144, 15),
			tier(99, 10), tier(50, 7), tier(22, 4),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"brl": {
		Code:      "brl",
		Symbol:    "R$",
		MinAmount: decimal.NewFromInt(8),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.60"),
			Micro: d("0.10"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(1137, 100), tier(758, 75), tier(379, 35),
			tier(265, 25), tier(133, 20), tier(57, 10),
		},
		PresetsSingle:  []int64{80, 40, 20, 10},
		PresetsMonthly: []int64{40, 20, 10, 8},
	},
	"cad": {
		Code:      "cad",
		Symbol:    "$",
		MinAmount: decimal.NewFromInt(3),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.30"),
			Micro: d("0.05"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(393, 40), tier(262, 25), tier(131, 12),
			tier(92, 9), tier(46, 6), tier(20, 4),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"chf": {
		Code:      "chf",
		Symbol:    "Fr.",
		MinAmount: decimal.NewFromInt(2),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.55"),
			Micro: d("0.09"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(297, 30), tier(198, 20), tier(99, 10),
			tier(69, 7), tier(35, 5), tier(15, 3),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"czk": {
		Code:      "czk",
		Symbol:    "Kč",
		MinAmount: decimal.NewFromInt(45),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("10.00"),
			Micro: d("1.67"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(6870, 700), tier(4580, 450), tier(2290, 225),
			tier(1603, 150), tier(802, 100), tier(344, 65),
		},
		PresetsSingle:  []int64{450, 220, 110, 70},
		PresetsMonthly: []int64{220, 110, 70, 45},
	},
	"dkk": {
		Code:      "dkk",
		Symbol:    "kr",
		MinAmount: decimal.NewFromInt(13),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("2.60"),
			Micro: d("0.43"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(2007, 200), tier(1338, 125), tier(669, 60),
			tier(468, 45), tier(234, 30), tier(100, 20),
		},
		PresetsSingle:  []int64{130, 60, 30, 20},
		PresetsMonthly: []int64{60, 30, 20, 15},
	},
	"eur": {
		Code:      "eur",
		Symbol:    "€",
		MinAmount: decimal.NewFromInt(2),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.35"),
			Micro: d("0.05"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(270, 25), tier(180, 20), tier(90, 10),
			tier(63, 6), tier(32, 5),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"gbp": {
		Code:      "gbp",
		Symbol:    "£",
		MinAmount: decimal.NewFromInt(2),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.20"),
			Micro: d("0.05"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(240, 25), tier(160, 15), tier(80, 10),
			tier(56, 5), tier(28, 4), tier(12, 3),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"hkd": {
		Code:      "hkd",
		Symbol:    "$",
		MinAmount: decimal.NewFromInt(15),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("2.35"),
			Micro: d("0.39"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(2343, 200), tier(1562, 150), tier(781, 75),
			tier(547, 50), tier(273, 40), tier(117, 25),
		},
		PresetsSingle:  []int64{100, 50, 25, 18},
		PresetsMonthly: []int64{70, 30, 20, 15},
	},
	"huf": {
		Code:        "huf",
		Symbol:      "Ft",
		MinAmount:   decimal.NewFromInt(570),
		Disabled:    []string{"amex"},
		ZeroDecimal: true,
		PaypalFees: &PaypalFees{
			Macro: d("90"),
			Micro: d("15"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(87600, 8000), tier(58400, 5000), tier(29200, 3000),
			tier(20400, 2000), tier(10200, 1500), tier(4380, 900),
		},
		PresetsSingle:  []int64{5600, 2800, 1400, 850},
		PresetsMonthly: []int64{2800, 1400, 850, 600},
	},
	"inr": {
		Code:      "inr",
		Symbol:    "₹",
		MinAmount: decimal.NewFromInt(145),
		Disabled:  []string{"paypal", "amex"},
		MonthlyUpgrade: []UpgradeTier{
			tier(20700, 2000), tier(13800, 1000), tier(6900, 700),
			tier(4830, 500), tier(2415, 350), tier(1035, 200),
		},
		PresetsSingle:  []int64{1000, 500, 350, 200},
		PresetsMonthly: []int64{650, 350, 200, 130},
	},
	"jpy": {
		Code:        "jpy",
		Symbol:      "¥",
		MinAmount:   decimal.NewFromInt(230),
		Disabled:    []string{"amex"},
		ZeroDecimal: true,
		PaypalFees: &PaypalFees{
			Macro: d("40"),
			Micro: d("7"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(32580, 3000), tier(21720, 2000), tier(10860, 1000),
			tier(7602, 750), tier(3801, 500), tier(1629, 300),
		},
		PresetsSingle:  []int64{2240, 1120, 560, 340},
		PresetsMonthly: []int64{1120, 560, 340, 230},
	},
	"mxn": {
		Code:      "mxn",
		Symbol:    "$",
		MinAmount: decimal.NewFromInt(40),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("4.00"),
			Micro: d("0.55"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(5700, 500), tier(3800, 350), tier(1900, 200),
			tier(1330, 125), tier(665, 100), tier(285, 50),
		},
		PresetsSingle:  []int64{400, 200, 100, 60},
		PresetsMonthly: []int64{200, 100, 60, 40},
	},
	"nok": {
		Code:      "nok",
		Symbol:    "kr",
		MinAmount: decimal.NewFromInt(17),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("2.80"),
			Micro: d("0.47"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(2598, 250), tier(1732, 175), tier(866, 80),
			tier(606, 60), tier(303, 40), tier(130, 25),
		},
		PresetsSingle:  []int64{160, 80, 40, 20},
		PresetsMonthly: []int64{100, 60, 30, 20},
	},
	"nzd": {
		Code:      "nzd",
		Symbol:    "$",
		MinAmount: decimal.NewFromInt(3),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("0.45"),
			Micro: d("0.08"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(450, 45), tier(300, 30), tier(150, 15),
			tier(105, 10), tier(52, 7), tier(23, 4),
		},
		PresetsSingle:  []int64{10, 20, 30, 60},
		PresetsMonthly: []int64{5, 10, 15, 20},
	},
	"pln": {
		Code:      "pln",
		Symbol:    "zł",
		MinAmount: decimal.NewFromInt(7),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("1.35"),
			Micro: d("0.23"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(1146, 100), tier(764, 75), tier(382, 35),
			tier(267, 25), tier(134, 20), tier(57, 10),
		},
		PresetsSingle:  []int64{80, 40, 20, 10},
		PresetsMonthly: []int64{40, 20, 10, 7},
	},
	"rub": {
		Code:      "rub",
		Symbol:    "₽",
		MinAmount: decimal.NewFromInt(130),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("10"),
			Micro: d("2"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(18960, 2000), tier(12640, 1200), tier(6320, 600),
			tier(4424, 400), tier(2212, 300), tier(948, 200),
		},
		PresetsSingle:  []int64{1300, 800, 500, 200},
		PresetsMonthly: []int64{500, 300, 200, 130},
	},
	"sek": {
		Code:      "sek",
		Symbol:    "kr",
		MinAmount: decimal.NewFromInt(18),
		Disabled:  []string{"amex"},
		PaypalFees: &PaypalFees{
			Macro: d("3.25"),
			Micro: d("0.54"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(2832, 250), tier(1888, 175), tier(944, 90),
			tier(661, 65), tier(330, 50), tier(142, 25),
		},
		PresetsSingle:  []int64{180, 90, 45, 30},
		PresetsMonthly: []int64{90, 45, 30, 18},
	},
	"twd": {
		Code:        "twd",
		Symbol:      "NT$",
		MinAmount:   decimal.NewFromInt(62),
		Disabled:    []string{"amex"},
		ZeroDecimal: true,
		PaypalFees: &PaypalFees{
			Macro: d("10.00"),
			Micro: d("2.00"),
		},
		MonthlyUpgrade: []UpgradeTier{
			tier(9300, 900), tier(6200, 600), tier(3100, 300),
			tier(2170, 200), tier(1085, 150), tier(465, 100),
		},
		PresetsSingle:  []int64{480, 240, 150, 70},
		PresetsMonthly: []int64{250, 150, 100, 62},
	},
}

// localeCurrency maps locale tags to a default currency code. Lookups fall
// back to the base language when the full tag has no entry.
var localeCurrency = map[string]string{
	"ast":   "eur",
	"ca":    "eur",
	"cs":    "czk",
	"cy":    "gbp",
	"da":    "dkk",
	"de":    "eur",
	"dsb":   "eur",
	"el":    "eur",
	"en-AU": "aud",
	"en-CA": "cad",
	"en-GB": "gbp",
	"en-IN": "inr",
	"en-NZ": "nzd",
	"en-US": "usd",
	"es":    "eur",
	"es-MX": "mxn",
	"es-XL": "mxn",
	"et":    "eur",
	"fi":    "eur",
	"fr":    "eur",
	"fy-NL": "eur",
	"gu-IN": "inr",
	"hi-IN": "inr",
	"hr":    "eur",
	"hsb":   "eur",
	"hu":    "huf",
	"it":    "eur",
	"ja":    "jpy",
	"kab":   "eur",
	"lv":    "eur",
	"ml":    "inr",
	"mr":    "inr",
	"nb-NO": "nok",
	"nl":    "eur",
	"nn-NO": "nok",
	"pa-IN": "inr",
	"pl":    "pln",
	"pt-BR": "brl",
	"pt-PT": "eur",
	"ru":    "rub",
	"sk":    "eur",
	"sl":    "eur",
	"sv-SE": "sek",
	"ta":    "inr",
	"te":    "inr",
	"zh-TW": "twd",
}
