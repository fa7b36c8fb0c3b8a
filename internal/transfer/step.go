package transfer

type Step int

const (
	StepSelect Step = iota
	StepResolve
	StepConfirm
	StepSuccess
	StepAuthRequired
)

// StepNames labels the three linear steps for progress indicators.
var StepNames = []string{"Wallet", "Recipient", "Confirm"}

func (s Step) String() string {
	switch s {
	case StepSelect:
		return "select"
	case StepResolve:
		return "resolve"
	case StepConfirm:
		return "confirm"
	case StepSuccess:
		return "success"
	case StepAuthRequired:
		return "auth_required"
	default:
		return "unknown"
	}
}

func (s Step) Terminal() bool {
	return s == StepSuccess || s == StepAuthRequired
}

// Destination is where the workflow hands control back to the host.
type Destination int

const (
	DestinationDashboard Destination = iota
	DestinationLogin
	DestinationCreateWallet
)

func (d Destination) String() string {
	switch d {
	case DestinationDashboard:
		return "dashboard"
	case DestinationLogin:
		return "login"
	case DestinationCreateWallet:
		return "create_wallet"
	default:
		return "unknown"
	}
}

// Navigator is invoked when the user leaves the workflow.
type Navigator func(Destination)

const (
	FieldWallet      = "wallet"
	FieldRecipient   = "recipient_address"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldCryptoAsset = "crypto_currency"
)

const (
	MsgSelectWallet       = "Please select a source wallet"
	MsgRecipientRequired  = "Recipient address is required"
	MsgInvalidRecipient   = "Invalid recipient address"
	MsgAmountRequired     = "Amount is required"
	MsgAmountPositive     = "Amount must be a positive number"
	MsgAmountPrecision    = "Amount has too many decimal places"
	MsgAmountTooLarge     = "Amount is too large"
	MsgInsufficientFunds  = "Insufficient funds in the source wallet"
	MsgCurrencyRequired   = "Currency is required"
	MsgCryptoRequired     = "Cryptocurrency is required"
	MsgInvalidSource      = "Invalid source wallet selected"
	MsgUnknownRecipientID = "Recipient could not be identified"
)

func insufficientAssetMessage(asset string) string {
	return "Insufficient " + asset + " funds in the source wallet"
}
