package ledger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/ledger/ledgertest"
	"rhystmorgan/fxTerm/internal/models"
)

func newTestClient(t *testing.T, srv *ledgertest.Server, retries int) *ledger.Client {
	t.Helper()
	client, err := ledger.NewClient(ledger.Config{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		RetryCount: retries,
		RetryDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://ledger", "not a url", "http://"} {
		_, err := ledger.NewClient(ledger.Config{BaseURL: raw}, nil)
		assert.Error(t, err, raw)
	}
}

func TestWalletsArrayAndObject(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	client := newTestClient(t, srv, 1)

	srv.SetWallets(7,
		models.Wallet{ID: 1, UserID: 7, BaseCurrency: "USD", FiatBalance: decimal.NewFromInt(100)},
		models.Wallet{ID: 2, UserID: 7, BaseCurrency: "EUR", FiatBalance: decimal.NewFromInt(20)},
	)
	wallets, err := client.Wallets(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "EUR", wallets[1].Currency())

	srv.SetRawWallets(8, `{"id":5,"user_id":8,"base_currency":"GBP","fiat_balance":12.5}`)
	wallets, err = client.Wallets(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, int64(5), wallets[0].ID)
	assert.True(t, wallets[0].Balance().Equal(decimal.RequireFromString("12.5")))
}

func TestBearerTokenSent(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	srv.RequireToken("secret")
	srv.SetWallets(7, models.Wallet{ID: 1, UserID: 7})
	client := newTestClient(t, srv, 1)

	_, err := client.Wallets(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, ledger.IsType(err, ledger.ErrUnauthorized))
	assert.Equal(t, "Could not validate credentials", ledger.ClassifyError(err).UserMessage())

	client.SetToken("secret")
	_, err = client.Wallets(context.Background(), 7)
	require.NoError(t, err)
}

func TestRate(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	srv.SetRate("USD", "EUR", "0.92")
	client := newTestClient(t, srv, 1)

	rate, err := client.Rate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.92")))

	_, err = client.Rate(context.Background(), "USD", "JPY")
	require.Error(t, err)
	assert.True(t, ledger.IsType(err, ledger.ErrNotFound))
}

func TestLookupRecipient(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42, Name: "Ada"})
	client := newTestClient(t, srv, 1)

	profile, err := client.LookupRecipient(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)

	_, err = client.LookupRecipient(context.Background(), "unknown")
	require.Error(t, err)
	assert.Equal(t, "Recipient not found", ledger.ClassifyError(err).Detail)
}

func TestRetryOnlyForRetryableErrors(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	client := newTestClient(t, srv, 3)

	srv.Fail(ledgertest.RouteRate, http.StatusBadGateway, "")
	_, err := client.Rate(context.Background(), "USD", "EUR")
	require.Error(t, err)
	assert.True(t, ledger.IsType(err, ledger.ErrServerError))
	assert.Equal(t, 3, srv.Count(ledgertest.RouteRate))

	srv.Fail(ledgertest.RouteLookup, http.StatusBadRequest, "bad handle")
	_, err = client.LookupRecipient(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 1, srv.Count(ledgertest.RouteLookup))
}

func TestTransferIsNotRetried(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	client := newTestClient(t, srv, 3)

	srv.Fail(ledgertest.RouteTransfer, http.StatusInternalServerError, "Ledger unavailable")
	_, err := client.Transfer(context.Background(), models.TransferRequest{
		SenderID: 1, RecipientID: 42, Amount: json.Number("5"), SourceCurrency: "USD", TargetCurrency: "USD",
	})
	require.Error(t, err)
	assert.Equal(t, 1, srv.Count(ledgertest.RouteTransfer))
	assert.Equal(t, "Ledger unavailable", ledger.ClassifyError(err).UserMessage())

	srv.ClearFailure(ledgertest.RouteTransfer)
	receipt, err := client.Transfer(context.Background(), models.TransferRequest{
		SenderID: 1, RecipientID: 42, Amount: json.Number("5"), SourceCurrency: "USD", TargetCurrency: "EUR",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TransactionID)

	sent := srv.Transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, "EUR", sent[0].TargetCurrency)
}

func TestCryptoTransfer(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	client := newTestClient(t, srv, 1)

	receipt, err := client.CryptoTransfer(context.Background(), models.CryptoTransferRequest{
		SenderID: 1, RecipientID: 42, Amount: json.Number("5"), CryptoCurrency: "USDT", Description: "Crypto transfer",
	})
	require.NoError(t, err)
	assert.Contains(t, receipt.TransactionID, "ctx-")
	require.Len(t, srv.CryptoTransfers(), 1)
	assert.Equal(t, "USDT", srv.CryptoTransfers()[0].CryptoCurrency)
}

func TestCircuitBreakerOpens(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	client, err := ledger.NewClient(ledger.Config{
		BaseURL:         srv.URL,
		RetryCount:      1,
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	}, nil)
	require.NoError(t, err)

	srv.Fail(ledgertest.RouteRate, http.StatusServiceUnavailable, "")
	for i := 0; i < 2; i++ {
		_, err := client.Rate(context.Background(), "USD", "EUR")
		require.Error(t, err)
	}

	_, err = client.Rate(context.Background(), "USD", "EUR")
	require.Error(t, err)
	assert.True(t, ledger.IsType(err, ledger.ErrCircuitOpen))
	assert.Equal(t, 2, srv.Count(ledgertest.RouteRate))
	assert.Equal(t, "open", client.GetStatus().BreakerState)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	client, err := ledger.NewClient(ledger.Config{BaseURL: srv.URL, RetryCount: 1, BreakerFailures: 1}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.LookupRecipient(context.Background(), "nobody")
		require.Error(t, err)
		assert.True(t, ledger.IsType(err, ledger.ErrNotFound))
	}
	assert.Equal(t, "closed", client.GetStatus().BreakerState)
	assert.True(t, client.GetStatus().Connected)
}

func TestLoginAndCurrentUser(t *testing.T) {
	srv := ledgertest.NewServer()
	defer srv.Close()
	srv.SetUser(7, "ada", "pw", "tok-7")
	client := newTestClient(t, srv, 1)

	_, err := client.Login(context.Background(), "ada", "wrong")
	require.Error(t, err)
	assert.True(t, ledger.IsType(err, ledger.ErrUnauthorized))

	token, err := client.Login(context.Background(), "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-7", token.AccessToken)

	client.SetToken(token.AccessToken)
	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "ada", user.Username)

	require.NoError(t, client.Ping(context.Background()))
}

func TestNetworkFailureClassified(t *testing.T) {
	srv := ledgertest.NewServer()
	url := srv.URL
	srv.Close()

	client, err := ledger.NewClient(ledger.Config{BaseURL: url, RetryCount: 1}, nil)
	require.NoError(t, err)

	_, err = client.Wallets(context.Background(), 7)
	require.Error(t, err)
	apiErr := ledger.ClassifyError(err)
	assert.Equal(t, ledger.ErrNetworkConnection, apiErr.Type)
	assert.True(t, apiErr.IsRetryable())
	assert.False(t, client.GetStatus().Connected)
}
