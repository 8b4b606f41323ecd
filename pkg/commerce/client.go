package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/pkg/config"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

const responseBodyReadLimit int64 = 1 << 20

var errBaseURLRequired = errors.New("commerce base url is required")

// Client is the retrying JSON client for calls toward the commerce platform.
// Every call carries a request timeout and a bounded retry budget so a slow
// platform can never block an inbound write.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	backoff     time.Duration
	logg        *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the commerce platform client from configuration.
func NewClient(cfg config.CommerceConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logg:        logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// OrderDetail is the subset of the platform's order payload the engine reads.
type OrderDetail struct {
	OrderID    string          `json:"order_id"`
	CreatedAt  time.Time       `json:"created_at"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
}

// FetchOrder loads an order from the commerce platform, retrying transient
// failures with a fixed backoff up to the configured attempt budget.
func (c *Client) FetchOrder(ctx context.Context, shopDomain, orderID string) (*OrderDetail, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	endpoint := fmt.Sprintf("%s/shops/%s/orders/%s", c.baseURL, shopDomain, orderID)

	var detail OrderDetail
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewConstant(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callErr := c.getJSON(ctx, endpoint, &detail)
		if callErr == nil {
			return nil
		}
		if isRetryable(callErr) {
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch order from commerce platform")
	}
	return &detail, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &callError{status: 0, cause: err}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return &callError{
			status: resp.StatusCode,
			cause:  fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(dest); err != nil {
		return &callError{status: resp.StatusCode, cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type callError struct {
	status int
	cause  error
}

func (e *callError) Error() string {
	return e.cause.Error()
}

func (e *callError) Unwrap() error {
	return e.cause
}

func isRetryable(err error) bool {
	var typed *callError
	if !errors.As(err, &typed) {
		return false
	}
	// Network failures and 5xx responses are worth another attempt; 4xx are not.
	return typed.status == 0 || typed.status >= http.StatusInternalServerError
}
