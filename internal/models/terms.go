package models

import (
	"strings"

	"golang.org/x/text/currency"
)

// TransferTerms is either FiatTerms or CryptoTerms. Exactly one is active
// on a draft at any time.
type TransferTerms interface {
	Code() string
	IsCrypto() bool
	terms()
}

type FiatTerms struct {
	Currency string
}

func (t FiatTerms) Code() string { return strings.ToUpper(t.Currency) }
func (t FiatTerms) IsCrypto() bool { return false }
func (FiatTerms) terms() {}

type CryptoTerms struct {
	Asset string
}

func (t CryptoTerms) Code() string { return strings.ToUpper(t.Asset) }
func (t CryptoTerms) IsCrypto() bool { return true }
func (CryptoTerms) terms() {}

var (
	FiatCurrencies = []string{"USD", "EUR", "GBP", "JPY"}
	CryptoAssets   = []string{"USDT", "BTC", "ETH", "USDC"}
)

const (
	DefaultCurrency    = "USD"
	DefaultCryptoAsset = "USDT"
	PreselectedAsset   = "BTC"
	StablecoinCode     = "USDT"
	DefaultFiatNote    = "Standard transfer"
	DefaultCryptoNote  = "Crypto transfer"
)

func IsCryptoCode(code string) bool {
	code = strings.ToUpper(code)
	for _, c := range CryptoAssets {
		if c == code {
			return true
		}
	}
	return false
}

// CryptoScale is the precision of crypto asset amounts.
const CryptoScale = 8

// Scale is the number of decimal places an amount in code may carry: the
// ISO 4217 minor units for fiat, CryptoScale for crypto assets and for
// codes x/text does not know.
func Scale(code string) int32 {
	code = strings.ToUpper(strings.TrimSpace(code))
	if IsCryptoCode(code) {
		return CryptoScale
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return CryptoScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}
