package models

import "github.com/shopspring/decimal"

// TransferDraft is the in-progress transfer owned by one workflow.
type TransferDraft struct {
	SourceWalletID int64
	Recipient      string
	Amount         string
	Terms          TransferTerms
	Description    string

	// Derived at step exit.
	Quote       *ConversionQuote
	Fee         decimal.Decimal
	Total       decimal.Decimal
	RecipientID int64
	Profile     *RecipientProfile
}

// NewDraft returns an empty draft. cryptoMode mirrors the pre-selection a
// caller can request when starting from a crypto shortcut.
func NewDraft(cryptoMode bool) TransferDraft {
	d := TransferDraft{Terms: FiatTerms{Currency: DefaultCurrency}}
	if cryptoMode {
		d.Terms = CryptoTerms{Asset: PreselectedAsset}
	}
	return d
}

func (d TransferDraft) IsCrypto() bool {
	return d.Terms != nil && d.Terms.IsCrypto()
}

// Code is the currency or asset code the transfer is denominated in.
func (d TransferDraft) Code() string {
	if d.Terms == nil {
		return ""
	}
	return d.Terms.Code()
}

func (d TransferDraft) DescriptionOrDefault() string {
	if d.Description != "" {
		return d.Description
	}
	if d.IsCrypto() {
		return DefaultCryptoNote
	}
	return DefaultFiatNote
}
