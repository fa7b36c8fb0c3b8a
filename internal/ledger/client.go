package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"rhystmorgan/fxTerm/internal/logging"
	"rhystmorgan/fxTerm/internal/models"
)

// Client talks to the remote ledger service over HTTP.
type Client struct {
	http    *http.Client
	config  Config
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
	mu      sync.RWMutex
	token   string
	status  Status
}

const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultTimeout         = 10 * time.Second
	DefaultRetryCount      = 3
	DefaultRetryDelay      = 500 * time.Millisecond
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second

	maxBodySize = 1 << 20
)

func NewClient(config Config, logger *log.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid ledger url: %q", config.BaseURL)
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryCount == 0 {
		config.RetryCount = DefaultRetryCount
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = DefaultBreakerFailures
	}
	if config.BreakerCooldown == 0 {
		config.BreakerCooldown = DefaultBreakerCooldown
	}
	if logger == nil {
		logger = logging.Nop()
	}

	c := &Client{
		http:   &http.Client{Timeout: config.Timeout},
		config: config,
		logger: logger,
		status: Status{
			BaseURL:     config.BaseURL,
			LastChecked: time.Now(),
		},
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1,
		Timeout:     config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
	})

	return c, nil
}

// SetToken installs the bearer credential sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) updateStatus(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.LastChecked = time.Now()
	c.status.Connected = err == nil || !countsAsFailure(err)
	if err != nil {
		c.status.LastError = err.Error()
	} else {
		c.status.LastError = ""
	}
}

func (c *Client) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := c.status
	status.BreakerState = c.breaker.State().String()
	return status
}

// Wallets fetches the wallets held by userID. The service answers with
// either a single wallet or an array.
func (c *Client) Wallets(ctx context.Context, userID int64) ([]models.Wallet, error) {
	var raw json.RawMessage
	path := "/wallet/" + strconv.FormatInt(userID, 10)
	if err := c.getWithRetry(ctx, "wallet fetch", path, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
		return nil, nil
	case trimmed[0] == '[':
		var wallets []models.Wallet
		if err := json.Unmarshal(trimmed, &wallets); err != nil {
			return nil, NewDecodeError("wallet fetch", err)
		}
		return wallets, nil
	default:
		var wallet models.Wallet
		if err := json.Unmarshal(trimmed, &wallet); err != nil {
			return nil, NewDecodeError("wallet fetch", err)
		}
		return []models.Wallet{wallet}, nil
	}
}

// Rate returns how many units of to one unit of from buys.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var resp rateResponse
	path := "/currency/rate/" + url.PathEscape(from) + "/" + url.PathEscape(to) + "/"
	if err := c.getWithRetry(ctx, "rate fetch", path, &resp); err != nil {
		return decimal.Zero, err
	}

	rate, err := decimal.NewFromString(resp.Rate.String())
	if err != nil {
		return decimal.Zero, NewDecodeError("rate fetch", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, NewDecodeError("rate fetch", fmt.Errorf("non-positive rate %s", rate))
	}
	return rate, nil
}

func (c *Client) LookupRecipient(ctx context.Context, handle string) (*models.RecipientProfile, error) {
	var profile models.RecipientProfile
	path := "/wallet/lookup/" + url.PathEscape(handle) + "/"
	if err := c.getWithRetry(ctx, "recipient lookup", path, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Transfer submits a standard transfer. Submissions are never retried.
func (c *Client) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferReceipt, error) {
	var receipt models.TransferReceipt
	if err := c.execute(ctx, "transfer", http.MethodPost, "/transaction/", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) CryptoTransfer(ctx context.Context, req models.CryptoTransferRequest) (*models.TransferReceipt, error) {
	var receipt models.TransferReceipt
	if err := c.execute(ctx, "crypto transfer", http.MethodPost, "/transaction/crypto/", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	body := map[string]string{"username": username, "password": password}

	var token Token
	if err := c.execute(ctx, "login", http.MethodPost, "/user/login/", body, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, NewDecodeError("login", errors.New("empty access token"))
	}
	return &token, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.getWithRetry(ctx, "user fetch", "/user/user/", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Ping checks the service root answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.execute(ctx, "ping", http.MethodGet, "/", nil, nil)
}

func (c *Client) getWithRetry(ctx context.Context, op, path string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ClassifyError(ctx.Err())
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		err := c.execute(ctx, op, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if apiErr := ClassifyError(err); apiErr != nil && !apiErr.IsRetryable() {
			break
		}
		c.logger.Debug("retrying ledger request", "op", op, "attempt", attempt+1, "err", err)
	}

	return ClassifyError(lastErr)
}

func (c *Client) execute(ctx context.Context, op, method, path string, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, op, method, path, body, out)
	})
	c.updateStatus(err)
	if err != nil {
		return ClassifyError(err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NewTimeoutError(op, c.config.Timeout)
		}
		return ClassifyError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return NewNetworkError("failed to read "+op+" response", err)
	}

	c.logger.Debug("ledger request", "op", op, "method", method, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode >= 400 {
		return NewStatusError(op, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewDecodeError(op, err)
	}
	return nil
}
