package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/kislikjeka/walletsync/pkg/logger"
)

const (
	requestTimeout       = 30 * time.Second
	maxRetries           = 3
	defaultPaymentsLimit = 50
)

// Client is an HTTP client for a Horizon-style ledger API
type Client struct {
	httpClient    *http.Client
	baseURL       string
	limiter       *rate.Limiter
	backoff       time.Duration
	paymentsLimit int
	logger        *logger.Logger
}

// NewClient creates a client for baseURL that sends at most rps requests per second
func NewClient(baseURL string, rps float64, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL:       baseURL,
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		backoff:       time.Second,
		paymentsLimit: defaultPaymentsLimit,
		logger:        log.WithComponent("horizon"),
	}
}

// SetBaseURL overrides the base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetBackoff overrides the initial retry backoff (useful for testing)
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// SetPaymentsLimit sets how many payment records are requested
func (c *Client) SetPaymentsLimit(n int) {
	if n > 0 {
		c.paymentsLimit = n
	}
}

// doRequest performs a paced GET with rate-limit retry.
// It retries up to maxRetries times with exponential backoff on 429 responses.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	backoff := c.backoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		c.logger.Debug("API request", "url", reqURL, "attempt", attempt)
		attemptStart := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(attemptStart).Milliseconds())
			return body, nil

		case http.StatusNotFound:
			return nil, ErrNotFound

		case http.StatusTooManyRequests:
			if attempt == maxRetries {
				c.logger.Error("rate limit exhausted", "attempts", maxRetries+1)
				return nil, &RateLimitError{
					RetryAfter: backoff,
					Message:    "Horizon rate limit exceeded after retries",
				}
			}
			wait := backoff
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > wait {
				wait = ra
			}
			c.logger.Warn("rate limited, retrying", "attempt", attempt, "backoff_ms", wait.Milliseconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
				backoff *= 2
				continue
			}
		}

		c.logger.Error("API error", "status_code", resp.StatusCode)
		return nil, newAPIError(resp.StatusCode, body)
	}

	return nil, fmt.Errorf("horizon: exhausted retries")
}

// GetAccount fetches an account. It returns ErrNotFound for unfunded accounts.
func (c *Client) GetAccount(ctx context.Context, address string) (*AccountResponse, error) {
	body, err := c.doRequest(ctx, "/accounts/"+url.PathEscape(address), nil)
	if err != nil {
		return nil, err
	}

	var resp AccountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return &resp, nil
}

// GetPayments fetches the most recent payment operations of an account, newest first
func (c *Client) GetPayments(ctx context.Context, address string) ([]PaymentOperation, error) {
	params := url.Values{}
	params.Set("order", "desc")
	params.Set("limit", strconv.Itoa(c.paymentsLimit))

	start := time.Now()
	body, err := c.doRequest(ctx, "/accounts/"+url.PathEscape(address)+"/payments", params)
	if err != nil {
		return nil, err
	}

	var page PaymentsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode payments response: %w", err)
	}

	c.logger.Debug("payments fetched", "count", len(page.Embedded.Records), "duration_ms", time.Since(start).Milliseconds())
	return page.Embedded.Records, nil
}

// RateLimitError represents a rate limit error from Horizon
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is (or wraps) a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// APIError is a non-success response other than 404 and 429
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("horizon API error: status %d: %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("horizon API error: status %d", e.StatusCode)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var problem ProblemResponse
	if json.Unmarshal(body, &problem) == nil {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
	}
	return apiErr
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
