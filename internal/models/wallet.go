package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Wallet is a ledger-held wallet as returned by GET /wallet/{userId}.
// It is read-only on the client; balances change only server side.
type Wallet struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	BaseCurrency      string          `json:"base_currency"`
	LegacyCurrency    string          `json:"currency,omitempty"`
	FiatBalance       decimal.Decimal `json:"fiat_balance"`
	LegacyBalance     decimal.Decimal `json:"balance"`
	StablecoinBalance decimal.Decimal `json:"stablecoin_balance"`
	DisplayBalance    decimal.Decimal `json:"display_balance"`
	DisplayCurrency   string          `json:"display_currency,omitempty"`
	CountryCode       string          `json:"country_code,omitempty"`
	Address           string          `json:"address,omitempty"`
}

// Currency is the wallet's own fiat currency.
func (w Wallet) Currency() string {
	if w.BaseCurrency != "" {
		return strings.ToUpper(w.BaseCurrency)
	}
	return strings.ToUpper(w.LegacyCurrency)
}

// Balance is the fiat balance, falling back to the legacy field older
// ledger versions returned.
func (w Wallet) Balance() decimal.Decimal {
	if !w.FiatBalance.IsZero() {
		return w.FiatBalance
	}
	return w.LegacyBalance
}

// AssetBalance is the balance available for a crypto transfer. The ledger
// keeps a single stablecoin balance per wallet that funds every asset.
func (w Wallet) AssetBalance(asset string) decimal.Decimal {
	return w.StablecoinBalance
}

func (w Wallet) OwnedBy(userID int64) bool {
	return w.UserID == userID
}

// FilterOwned drops wallets belonging to other users and wallets without an id.
func FilterOwned(wallets []Wallet, userID int64) []Wallet {
	owned := make([]Wallet, 0, len(wallets))
	for _, w := range wallets {
		if w.ID == 0 || !w.OwnedBy(userID) {
			continue
		}
		owned = append(owned, w)
	}
	return owned
}

func FindWallet(wallets []Wallet, id int64) (Wallet, bool) {
	for _, w := range wallets {
		if w.ID == id {
			return w, true
		}
	}
	return Wallet{}, false
}
