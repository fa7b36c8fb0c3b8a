package utils

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"rhystmorgan/fxTerm/internal/models"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders an amount in a currency or crypto asset. Crypto codes
// and anything x/text cannot format use "<amount to 2dp> <CODE>".
func FormatMoney(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || models.IsCryptoCode(code) {
		return FormatFixed(amount, code)
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return FormatFixed(amount, code)
	}

	scale, _ := currency.Standard.Rounding(unit)
	f, _ := amount.Abs().Round(int32(scale)).Float64()

	sym := printer.Sprint(currency.Symbol(unit))
	if sym == "" {
		return FormatFixed(amount, code)
	}
	if r := []rune(sym); unicode.IsLetter(r[len(r)-1]) {
		sym += " "
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + sym + printer.Sprint(number.Decimal(f, number.Scale(scale)))
}

// FormatFixed is the fallback money format.
func FormatFixed(amount decimal.Decimal, code string) string {
	if code == "" {
		return amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + code
}

// FormatRate shows a conversion rate as "1 USD = 0.9200 EUR".
func FormatRate(rate decimal.Decimal, from, to string) string {
	return fmt.Sprintf("1 %s = %s %s", from, rate.StringFixed(4), to)
}

// FormatAddress truncates an address for display purposes. Hex addresses
// are shown in their checksummed form.
func FormatAddress(address string, prefixLen, suffixLen int) string {
	if common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}
	if len(address) <= prefixLen+suffixLen {
		return address
	}

	return address[:prefixLen] + "..." + address[len(address)-suffixLen:]
}

// FormatRecipient labels a handle with its resolved display name when known.
func FormatRecipient(handle, displayName string) string {
	if displayName == "" || displayName == "Unknown recipient" {
		return FormatAddress(handle, 10, 8)
	}
	return fmt.Sprintf("%s [%s]", displayName, TruncateString(handle, 24))
}

// FormatWalletLabel is the one-line wallet description used by selectors.
func FormatWalletLabel(w models.Wallet) string {
	label := fmt.Sprintf("Wallet #%d • %s • %s", w.ID, FormatMoney(w.Balance(), w.Currency()), w.Currency())
	if w.StablecoinBalance.IsPositive() {
		label += " • " + FormatMoney(w.StablecoinBalance, models.StablecoinCode)
	}
	return label
}

// FormatTransactionID formats a transaction ID for display
func FormatTransactionID(txID string) string {
	if len(txID) <= 16 {
		return txID
	}
	return txID[:8] + "..." + txID[len(txID)-8:]
}

// TruncateString truncates a string to a maximum length with ellipsis
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return s[:maxLen]
	}

	return s[:maxLen-3] + "..."
}

// FormatStepIndicator creates a step indicator string
func FormatStepIndicator(currentStep, totalSteps int, stepNames []string) string {
	var result strings.Builder

	for i := 0; i < totalSteps; i++ {
		if i > 0 {
			result.WriteString(" → ")
		}

		stepName := strconv.Itoa(i + 1)
		if i < len(stepNames) {
			stepName = stepNames[i]
		}

		switch {
		case i == currentStep:
			result.WriteString("[" + stepName + "]")
		case i < currentStep:
			result.WriteString("✓")
		default:
			result.WriteString(stepName)
		}
	}

	return result.String()
}

// FormatFieldErrors renders field errors in a stable order.
func FormatFieldErrors(fields map[string]string, order []string) []string {
	out := make([]string, 0, len(fields))
	for _, k := range order {
		if msg, ok := fields[k]; ok {
			out = append(out, msg)
		}
	}
	return out
}
