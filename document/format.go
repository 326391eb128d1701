package document

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

var currencySymbols = map[string]string{
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
	"NGN": "₦",
}

// CurrencySymbol returns the display symbol for an ISO currency code.
// Unknown codes are returned unchanged.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	return code
}

// FormatAmount renders v with two decimals and thousands separators, prefixed by symbol.
func FormatAmount(symbol string, v float64) string {
	return symbol + amountPrinter.Sprintf("%.2f", v)
}

// Money formats v with the document's currency symbol.
func (d Document) Money(v float64) string {
	return FormatAmount(d.CurrencySymbol, v)
}
