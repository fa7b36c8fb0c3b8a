package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionQuote is the rate from one fiat currency to another: one unit of
// From buys Rate units of To.
type ConversionQuote struct {
	From      string
	To        string
	Rate      decimal.Decimal
	FetchedAt time.Time
}

func OneToOne(code string) ConversionQuote {
	return ConversionQuote{From: code, To: code, Rate: decimal.NewFromInt(1), FetchedAt: time.Now()}
}

func (q ConversionQuote) Pair() string {
	return q.From + "/" + q.To
}

func (q ConversionQuote) Matches(from, to string) bool {
	return q.From == from && q.To == to
}

// ToSource converts an amount in the target currency back into the source
// currency. A zero rate is treated as one-to-one.
func (q ConversionQuote) ToSource(amount decimal.Decimal) decimal.Decimal {
	if q.Rate.IsZero() {
		return amount
	}
	return amount.DivRound(q.Rate, 8)
}
