package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Treasury Fiscal Data API root
	DefaultBaseURL   = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"
	exchangeRatePath = "/v1/accounting/od/rates_of_exchange"
	dateLayout       = "2006-01-02"
	pageSize         = 100
	maxErrorBodySize = 512
)

// Options configures a TreasuryAPIClient. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int
	// RateLimit is the number of outbound requests allowed per second
	RateLimit float64
	RateBurst int
	// Backoff returns the wait before the given retry attempt (1-based)
	Backoff func(attempt int) time.Duration
	Logger  logger.Logger
}

// TreasuryAPIClient fetches exchange rate records from the Treasury
// "Rates of Exchange" dataset
type TreasuryAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     logger.Logger
}

// NewTreasuryAPIClient creates a new Treasury API client
func NewTreasuryAPIClient(opts Options) *TreasuryAPIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst < 1 {
		opts.RateBurst = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 500 * time.Millisecond
		}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	return &TreasuryAPIClient{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
	}
}

// TreasuryResponse represents the response structure from the Treasury API
type TreasuryResponse struct {
	Data []entity.RateRecord `json:"data"`
	Meta struct {
		Count      int `json:"count"`
		TotalCount int `json:"total-count"`
	} `json:"meta"`
}

// statusError is returned for non-2xx responses
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API returned error status: %d, body: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// decodeError means the provider answered but the body was not the expected JSON
type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "failed to decode response: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// FetchRates returns the records for currency recorded between from and to
// (inclusive), most recent first
func (c *TreasuryAPIClient) FetchRates(ctx context.Context, currency string, from, to time.Time) ([]entity.RateRecord, error) {
	const op = "TreasuryAPIClient.FetchRates"

	if currency == "" {
		return nil, apperr.E(apperr.Validation, op, "currency is required", nil)
	}

	reqURL := c.buildURL(currency, from, to)

	c.logger.Debug("Requesting exchange rates", map[string]interface{}{
		"currency": currency,
		"from":     from.Format(dateLayout),
		"to":       to.Format(dateLayout),
		"url":      reqURL,
	})

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.E(apperr.RateLookup, op, "exchange rate request cancelled", err)
		}

		resp, err := c.do(ctx, reqURL)
		if err == nil {
			c.logger.Debug("Exchange rates received", map[string]interface{}{
				"currency": currency,
				"count":    len(resp.Data),
				"attempt":  attempt,
			})
			return resp.Data, nil
		}
		lastErr = err

		var se *statusError
		var de *decodeError
		if errors.As(err, &de) || (errors.As(err, &se) && !se.retryable()) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		if attempt < c.maxRetries {
			wait := c.backoff(attempt)
			c.logger.Warn("Exchange rate request failed, retrying", map[string]interface{}{
				"currency": currency,
				"attempt":  attempt,
				"max":      c.maxRetries,
				"backoff":  wait.String(),
				"error":    err.Error(),
			})

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, apperr.E(apperr.RateLookup, op, "exchange rate request cancelled", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return nil, apperr.E(apperr.RateLookup, op, "exchange rate service unavailable", lastErr)
}

func (c *TreasuryAPIClient) buildURL(currency string, from, to time.Time) string {
	q := url.Values{}
	q.Set("fields", "country_currency_desc,exchange_rate,record_date")
	q.Set("filter", fmt.Sprintf("country_currency_desc:eq:%s,record_date:gte:%s,record_date:lte:%s",
		currency, from.Format(dateLayout), to.Format(dateLayout)))
	q.Set("sort", "-record_date")
	q.Set("page[size]", fmt.Sprintf("%d", pageSize))

	return c.baseURL + exchangeRatePath + "?" + q.Encode()
}

func (c *TreasuryAPIClient) do(ctx context.Context, reqURL string) (*TreasuryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var treasuryResp TreasuryResponse
	if err := json.NewDecoder(resp.Body).Decode(&treasuryResp); err != nil {
		return nil, &decodeError{err: err}
	}

	return &treasuryResp, nil
}
