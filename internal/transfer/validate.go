package transfer

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/models"
)

// DefaultFeeRate is the flat fee charged on every transfer.
var DefaultFeeRate = decimal.RequireFromString("0.01")

const (
	// MaxAmountScale is the finest precision an amount may carry.
	MaxAmountScale = 8
	// MaxAmountDigits bounds the integer part of an amount.
	MaxAmountDigits = 15
)

// ParseAmount reads a user-entered amount. Only strictly positive numbers
// with at most MaxAmountScale decimal places and MaxAmountDigits integer
// digits pass. The checks work on the coefficient and exponent so inputs
// like "1e-50000000" are rejected without being expanded. The result has
// trailing fractional zeros removed.
func ParseAmount(raw string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, MsgAmountRequired
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, MsgAmountPositive
	}

	coef, exp := amount.Coefficient(), amount.Exponent()
	ten := big.NewInt(10)
	for exp < 0 {
		q, r := new(big.Int).QuoRem(coef, ten, new(big.Int))
		if r.Sign() != 0 {
			break
		}
		coef, exp = q, exp+1
	}
	if exp < -MaxAmountScale {
		return decimal.Zero, MsgAmountPrecision
	}
	if int64(len(coef.String()))+int64(exp) > MaxAmountDigits {
		return decimal.Zero, MsgAmountTooLarge
	}

	return decimal.NewFromBigInt(coef, exp), ""
}

// validateTerms checks the Resolve step inputs against the funding wallet.
// quote is only consulted in fiat mode and only if it matches the current pair.
func validateTerms(d models.TransferDraft, wallet models.Wallet, quote *models.ConversionQuote) (decimal.Decimal, map[string]string) {
	fields := make(map[string]string)

	if strings.TrimSpace(d.Recipient) == "" {
		fields[FieldRecipient] = MsgRecipientRequired
	}

	amount, msg := ParseAmount(d.Amount)
	if msg != "" {
		fields[FieldAmount] = msg
	}

	code := d.Code()
	if d.IsCrypto() {
		if code == "" {
			fields[FieldCryptoAsset] = MsgCryptoRequired
		}
	} else if code == "" {
		fields[FieldCurrency] = MsgCurrencyRequired
	}

	if msg == "" && code != "" && -amount.Exponent() > models.Scale(code) {
		msg = MsgAmountPrecision
		fields[FieldAmount] = msg
	}

	if msg == "" {
		if d.IsCrypto() {
			if amount.GreaterThan(wallet.AssetBalance(code)) {
				fields[FieldAmount] = insufficientAssetMessage(code)
			}
		} else if sourceAmount(amount, wallet.Currency(), code, quote).GreaterThan(wallet.Balance()) {
			fields[FieldAmount] = MsgInsufficientFunds
		}
	}

	return amount, fields
}

// sourceAmount converts an amount in target currency into the wallet's own
// currency. Without a usable quote the conversion is one-to-one.
func sourceAmount(amount decimal.Decimal, from, to string, quote *models.ConversionQuote) decimal.Decimal {
	if from == to || quote == nil || !quote.Matches(from, to) {
		return amount
	}
	return quote.ToSource(amount)
}

func computeFee(amount, rate decimal.Decimal) (fee, total decimal.Decimal) {
	fee = amount.Mul(rate)
	return fee, amount.Add(fee)
}
