package paymentplan

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"NGN": "₦",
	"GHS": "GH₵",
	"KES": "KSh",
	"TZS": "TSh",
	"UGX": "USh",
	"RWF": "FRw",
	"CDF": "FC",
	"XAF": "FCFA",
	"XOF": "CFA",
	"ZAR": "R",
	"CAD": "CA$",
	"AUD": "A$",
}

// Symbol returns the display symbol of a currency code.
// Unknown codes fall back to the upper-cased code itself.
func Symbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code
}

// FormatPrice renders `amount` with its currency symbol and two decimals, e.g. "$90.00" or "CHF 12.50".
func FormatPrice(code string, amount float64) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	sym := Symbol(code)
	if sym == strings.ToUpper(strings.TrimSpace(code)) && sym != "" {
		return sym + " " + s
	}
	return sym + s
}
