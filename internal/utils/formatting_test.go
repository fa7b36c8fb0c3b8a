package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"rhystmorgan/fxTerm/internal/models"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"50.5", "USD", "$50.50"},
		{"1234.5", "usd", "$1,234.50"},
		{"0.5", "EUR", "€0.50"},
		{"10", "GBP", "£10.00"},
		{"1000", "JPY", "¥1,000"},
		{"-5", "USD", "-$5.00"},
		{"5", "USDT", "5.00 USDT"},
		{"0.123", "BTC", "0.12 BTC"},
		{"2", "ETH", "2.00 ETH"},
		{"7.5", "USDC", "7.50 USDC"},
		{"5", "NOPE", "5.00 NOPE"},
		{"5", "", "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.amount, func(t *testing.T) {
			got := FormatMoney(decimal.RequireFromString(tt.amount), tt.code)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatAddress(t *testing.T) {
	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	assert.Equal(t, "0x5aAeb6...eAed", FormatAddress(lower, 8, 4))
	assert.Equal(t, "short", FormatAddress("short", 8, 4))
	assert.Equal(t, "user-12...6789", FormatAddress("user-123456789", 7, 4))
}

func TestFormatRecipient(t *testing.T) {
	assert.Equal(t, "Ada (0xabc) [42]", FormatRecipient("42", "Ada (0xabc)"))
	assert.Equal(t, "42", FormatRecipient("42", "Unknown recipient"))
}

func TestFormatWalletLabel(t *testing.T) {
	w := models.Wallet{ID: 3, BaseCurrency: "USD", FiatBalance: decimal.NewFromInt(100)}
	assert.Equal(t, "Wallet #3 • $100.00 • USD", FormatWalletLabel(w))

	w.StablecoinBalance = decimal.NewFromInt(10)
	assert.Equal(t, "Wallet #3 • $100.00 • USD • 10.00 USDT", FormatWalletLabel(w))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "1 USD = 0.9200 EUR", FormatRate(decimal.RequireFromString("0.92"), "USD", "EUR"))
}

func TestFormatStepIndicator(t *testing.T) {
	names := []string{"Wallet", "Recipient", "Confirm"}

	assert.Equal(t, "[Wallet] → Recipient → Confirm", FormatStepIndicator(0, 3, names))
	assert.Equal(t, "✓ → [Recipient] → Confirm", FormatStepIndicator(1, 3, names))
	assert.Equal(t, "✓ → ✓ → ✓", FormatStepIndicator(3, 3, names))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel...", TruncateString("hello world", 6))
	assert.Equal(t, "he", TruncateString("hello", 2))
	assert.Equal(t, "abcdefgh...", FormatTransactionID("abcdefgh12345678ijklmnop")[:11])
}

func TestFormatFieldErrors(t *testing.T) {
	fields := map[string]string{"amount": "Amount is required", "recipient": "Recipient address is required"}
	assert.Equal(t,
		[]string{"Recipient address is required", "Amount is required"},
		FormatFieldErrors(fields, []string{"wallet", "recipient", "amount"}))
}
