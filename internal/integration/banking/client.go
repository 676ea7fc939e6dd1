package banking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// ClientConfig tunes the protocol client's resilience behavior.
type ClientConfig struct {
	Timeout     time.Duration
	Retries     int
	RetryDelay  time.Duration
	MaxRequests int
	Window      time.Duration
}

// RequestSpec describes one protocol request independent of transport details.
type RequestSpec struct {
	Method      string
	Headers     map[string]string
	Query       url.Values
	Body        []byte
	ContentType string
}

// RateLimitInfo carries the bank's observed rate-limit response headers so
// callers can adapt their pacing.
type RateLimitInfo struct {
	Remaining  string
	Reset      string
	RetryAfter string
}

// Response is a successful protocol response body plus rate-limit context.
type Response struct {
	StatusCode int
	Body       []byte
	RateLimit  RateLimitInfo
}

// protocolErrorBody is the bank-declared error envelope. The error list takes
// precedence over the top-level code when present.
type protocolErrorBody struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
	Errors  []struct {
		ErrorCode string `json:"ErrorCode"`
		Message   string `json:"Message"`
		Path      string `json:"Path"`
	} `json:"Errors"`
}

// Client executes protocol requests with a hard timeout, bounded retry with
// exponential backoff, and a per-key sliding-window rate limit. It is safe
// for concurrent use across independent rate-limit keys.
type Client struct {
	httpClient *http.Client
	limiter    *SlidingWindowLimiter
	retries    int
	retryDelay time.Duration
}

// NewClient creates a protocol client with its own rate limiter.
func NewClient(cfg ClientConfig) *Client {
	return NewClientWithLimiter(cfg, NewSlidingWindowLimiter(cfg.MaxRequests, cfg.Window))
}

// NewClientWithLimiter creates a protocol client around an externally owned
// limiter so tests can substitute a deterministic clock.
func NewClientWithLimiter(cfg ClientConfig, limiter *SlidingWindowLimiter) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
	}
}

// Execute sends one request against endpoint, consulting the rate limiter for
// rateLimitKey before every attempted send. Transport and 5xx failures are
// retried with exponential backoff; timeouts and deterministic non-2xx
// responses are not.
func (c *Client) Execute(ctx context.Context, endpoint string, spec RequestSpec, rateLimitKey string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "request canceled during backoff", ctx.Err())
			case <-time.After(backoff):
			}
		}

		if !c.limiter.Allow(rateLimitKey) {
			return nil, domainerror.NewBankingError(
				domainerror.ErrCodeRateLimitExceeded,
				fmt.Sprintf("rate limit exceeded for key %q", rateLimitKey),
				domainerror.ErrRateLimitExceeded,
			)
		}

		resp, retryable, err := c.attempt(ctx, endpoint, spec)
		if err == nil {
			return resp, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		slog.Warn("Bank request failed, will retry",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, domainerror.NewBankingError(
		domainerror.ErrCodeRequestFailed,
		fmt.Sprintf("request to %s failed after %d retries", endpoint, c.retries),
		lastErr,
	)
}

// attempt performs a single send. The second return reports whether the
// failure is safe to retry.
func (c *Client) attempt(ctx context.Context, endpoint string, spec RequestSpec) (*Response, bool, error) {
	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, endpoint, body)
	if err != nil {
		return nil, false, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "failed to build request", err)
	}

	if len(spec.Query) > 0 {
		req.URL.RawQuery = spec.Query.Encode()
	}
	if spec.ContentType != "" {
		req.Header.Set("Content-Type", spec.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range spec.Headers {
		req.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts are not retried: the request may have been applied.
		if isTimeout(err) {
			return nil, false, domainerror.NewBankingError(
				domainerror.ErrCodeTimeout,
				fmt.Sprintf("request to %s timed out", endpoint),
				domainerror.ErrRequestTimeout,
			)
		}
		return nil, true, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "transport failure", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "failed to read response body", err)
	}

	if httpResp.StatusCode >= 500 {
		return nil, true, domainerror.NewProtocolError(
			fmt.Sprintf("HTTP_%d", httpResp.StatusCode),
			fmt.Sprintf("server error from %s", endpoint),
			httpResp.StatusCode,
		)
	}

	// Non-2xx below 500 is assumed deterministic for the same request.
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, false, parseProtocolError(respBody, httpResp.StatusCode)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		RateLimit: RateLimitInfo{
			Remaining:  httpResp.Header.Get("X-RateLimit-Remaining"),
			Reset:      httpResp.Header.Get("X-RateLimit-Reset"),
			RetryAfter: httpResp.Header.Get("Retry-After"),
		},
	}, false, nil
}

// parseProtocolError extracts a bank-declared error from a non-2xx body,
// falling back to a generic HTTP error when the body is not structured.
func parseProtocolError(body []byte, statusCode int) *domainerror.BankingError {
	var parsed protocolErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Errors) > 0 && parsed.Errors[0].ErrorCode != "" {
			return domainerror.NewProtocolError(parsed.Errors[0].ErrorCode, parsed.Errors[0].Message, statusCode)
		}
		if parsed.Code != "" {
			message := parsed.Message
			if message == "" {
				message = "bank returned error code " + parsed.Code
			}
			return domainerror.NewProtocolError(parsed.Code, message, statusCode)
		}
	}

	return domainerror.NewProtocolError(
		fmt.Sprintf("HTTP_%d", statusCode),
		fmt.Sprintf("bank returned status %d", statusCode),
		statusCode,
	)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
