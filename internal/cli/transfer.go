package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rhystmorgan/fxTerm/internal/models"
	"rhystmorgan/fxTerm/internal/transfer"
	"rhystmorgan/fxTerm/internal/utils"
)

const (
	walletFlag      = "wallet"
	toFlag          = "to"
	amountFlag      = "amount"
	currencyFlag    = "currency"
	cryptoFlag      = "crypto"
	descriptionFlag = "description"
	yesFlag         = "yes"
)

var fieldOrder = []string{
	transfer.FieldWallet,
	transfer.FieldRecipient,
	transfer.FieldAmount,
	transfer.FieldCurrency,
	transfer.FieldCryptoAsset,
}

func (s *runtimeState) newWalletsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wallets",
		Short: "List the signed-in user's wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.unlock(); err != nil {
				return err
			}
			userID, _ := s.sessions.CurrentUserID()

			wallets, err := s.client.Wallets(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to load wallets: %w", err)
			}
			wallets = models.FilterOwned(wallets, userID)
			if len(wallets) == 0 {
				s.printf("No wallets yet\n")
				return nil
			}
			for _, w := range wallets {
				s.printf("%s\n", utils.FormatWalletLabel(w))
			}
			return nil
		},
	}
}

type sendOptions struct {
	walletID    int64
	to          string
	amount      string
	currency    string
	crypto      string
	description string
	yes         bool
}

func (s *runtimeState) newSendCommand() *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a transfer without the interactive interface",
		Long: `Send resolves the recipient, prints the transfer summary and asks for
confirmation before submitting. Use --crypto to send a crypto asset instead
of fiat.`,
		Example: "  fxterm send --to bob --amount 25 --currency EUR",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.currency != "" && opts.crypto != "" {
				return fmt.Errorf("only one of --%s and --%s may be given", currencyFlag, cryptoFlag)
			}
			if err := s.unlock(); err != nil {
				return err
			}
			return s.send(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Int64VarP(&opts.walletID, walletFlag, "w", 0, "source wallet id (optional with a single wallet)")
	flags.StringVarP(&opts.to, toFlag, "t", "", "recipient username or wallet address")
	flags.StringVarP(&opts.amount, amountFlag, "a", "", "amount in the target currency")
	flags.StringVarP(&opts.currency, currencyFlag, "c", "", "target fiat currency (default USD)")
	flags.StringVar(&opts.crypto, cryptoFlag, "", "send this crypto asset instead of fiat")
	flags.StringVarP(&opts.description, descriptionFlag, "d", "", "description for the recipient")
	flags.BoolVarP(&opts.yes, yesFlag, "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired(toFlag)
	_ = cmd.MarkFlagRequired(amountFlag)
	return cmd
}

// send walks the workflow the same way the interactive wizard does.
func (s *runtimeState) send(ctx context.Context, opts sendOptions) error {
	feeRate := s.cfg.FeeRateDecimal()
	wf := transfer.New(s.client, s.sessions, transfer.Options{
		FeeRate:           &feeRate,
		CryptoPreselected: opts.crypto != "",
		Logger:            s.logger,
		Recorder:          s.auditor,
	})

	if err := wf.Start(ctx); err != nil {
		return describe(err)
	}
	if wf.NeedsWallet() {
		return errors.New("no wallets yet, create one with the ledger service first")
	}

	walletID := opts.walletID
	if walletID == 0 {
		wallets := wf.Snapshot().Wallets
		if len(wallets) != 1 {
			return fmt.Errorf("you have %d wallets, choose one with --%s", len(wallets), walletFlag)
		}
		walletID = wallets[0].ID
	}
	if err := wf.SelectWallet(walletID); err != nil {
		return describe(err)
	}
	if err := wf.Next(ctx); err != nil {
		return describe(err)
	}

	switch {
	case opts.crypto != "":
		if err := wf.SetCryptoAsset(strings.ToUpper(opts.crypto)); err != nil {
			return describe(err)
		}
	case opts.currency != "":
		if err := wf.SetCurrency(strings.ToUpper(opts.currency)); err != nil {
			return describe(err)
		}
	}
	for _, set := range []func() error{
		func() error { return wf.SetRecipient(opts.to) },
		func() error { return wf.SetAmount(opts.amount) },
		func() error { return wf.SetDescription(opts.description) },
	} {
		if err := set(); err != nil {
			return describe(err)
		}
	}

	if err := wf.Next(ctx); err != nil {
		return describe(err)
	}

	summary, err := wf.Summary()
	if err != nil {
		return describe(err)
	}
	s.printSummary(summary)

	if !opts.yes {
		answer, err := s.prompt("Send this transfer? [y/N]: ")
		if err != nil {
			return err
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			s.printf("Cancelled\n")
			return nil
		}
	}

	receipt, err := wf.Submit(ctx)
	if err != nil {
		if msg := wf.Snapshot().SubmitError; msg != "" {
			return errors.New(msg)
		}
		return describe(err)
	}

	s.printf("Transfer sent. Reference: %s\n", receipt.TransactionID)
	return nil
}

func (s *runtimeState) printSummary(sum transfer.Summary) {
	s.printf("From:        Wallet #%d (%s, balance %s)\n", sum.WalletID, sum.SourceCurrency, utils.FormatMoney(sum.SourceBalance, sum.SourceCurrency))
	s.printf("To:          %s\n", utils.FormatRecipient(sum.Recipient, sum.RecipientName))
	s.printf("Amount:      %s\n", utils.FormatMoney(sum.Amount, sum.Code))
	s.printf("Fee:         %s\n", utils.FormatMoney(sum.Fee, sum.Code))
	s.printf("Total:       %s\n", utils.FormatMoney(sum.Total, sum.Code))
	if q := sum.Quote; q != nil && !sum.Crypto && q.From != q.To {
		s.printf("Rate:        %s\n", utils.FormatRate(q.Rate, q.From, q.To))
		s.printf("Debited:     %s\n", utils.FormatMoney(q.ToSource(sum.Total), q.From))
	}
	if sum.Description != "" {
		s.printf("Description: %s\n", sum.Description)
	}
}

// describe turns workflow errors into the messages the wizard would show.
func describe(err error) error {
	var werr *transfer.Error
	if !errors.As(err, &werr) {
		return err
	}
	if msgs := utils.FormatFieldErrors(werr.Fields, fieldOrder); len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "; "))
	}
	if werr.Message != "" {
		return errors.New(werr.Message)
	}
	return err
}
