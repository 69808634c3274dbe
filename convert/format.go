package convert

import "github.com/instantcurrency/rates/storage/types"

// DefaultNumberFormat is used for currencies without a dedicated pattern
const DefaultNumberFormat = `#,##0.00`

// Spreadsheet number format patterns per currency. Zero-decimal currencies
// (JPY, KRW, HUF, IDR, ISK) drop the fraction digits
var numberFormats = map[types.Currency]string{
	"AUD": `"$"#,##0.00`,
	"BGN": `#,##0.00 "лв"`,
	"BRL": `"R$" #,##0.00`,
	"CAD": `"$"#,##0.00`,
	"CHF": `#'##0.00 "Fr."`,
	"CNY": `"¥"#,##0.00`,
	"CZK": `#,##0.00 "Kč"`,
	"DKK": `#,##0.00 "kr"`,
	"EUR": `"€"#,##0.00`,
	"GBP": `"£"#,##0.00`,
	"HKD": `"HK$"#,##0.00`,
	"HUF": `#,##0 "Ft"`,
	"IDR": `"Rp" #,##0`,
	"ILS": `"₪"#,##0.00`,
	"INR": `"₹"#,##0.00`,
	"ISK": `# ##0 "kr"`,
	"JPY": `"¥"#,##0`,
	"KRW": `"₩"#,##0`,
	"MXN": `"$"#,##0.00`,
	"MYR": `"RM"#,##0.00`,
	"NOK": `#,##0.00 "kr"`,
	"NZD": `"$"#,##0.00`,
	"PHP": `"₱"#,##0.00`,
	"PLN": `#,##0.00 "zł"`,
	"RON": `#,##0.00 "lei"`,
	"SEK": `#,##0.00 "kr"`,
	"SGD": `"$"#,##0.00`,
	"THB": `"฿"#,##0.00`,
	"TRY": `"₺"#,##0.00`,
	"USD": `"$"#,##0.00`,
	"ZAR": `"R"#,##0.00`,
}

// NumberFormat returns the spreadsheet number format for a currency
func NumberFormat(currency types.Currency) string {
	if format, ok := numberFormats[currency]; ok {
		return format
	}

	return DefaultNumberFormat
}
