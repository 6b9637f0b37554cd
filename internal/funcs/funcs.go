package funcs

import (
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var TemplateFuncs = template.FuncMap{
	"now":         time.Now,
	"formatTime":  formatTime,
	"formatNaira": FormatNaira,
	"uppercase":   strings.ToUpper,
	"lowercase":   strings.ToLower,
}

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}

// FormatNaira renders a fiat amount with thousands separators, e.g. ₦1,000,000.
// Amounts in this system are whole Naira, so fractional kobo are dropped.
func FormatNaira(amount float64) string {
	return printer.Sprintf("₦%.0f", amount)
}
