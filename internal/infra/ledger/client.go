package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/MallardLabs/celeris/internal/domain/ledger"

	"github.com/google/uuid"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 3
	backoffInitial     = 250 * time.Millisecond
	backoffMax         = 5 * time.Second
)

// Config carries the connection parameters of the external points service.
type Config struct {
	BaseURL     string
	APIKey      string
	RealmID     string
	Timeout     time.Duration // per-request timeout, defaultTimeout when zero
	MaxAttempts int           // bounded retries, defaultMaxAttempts when zero
}

// HTTPClient talks to the external points ledger over its REST API. Every
// mutating request carries an X-Idempotency-Key that stays stable across
// retries, so a retried credit/debit/transfer can never double-apply.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	realmID     string
	httpClient  *http.Client
	maxAttempts int
}

func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		realmID:     cfg.RealmID,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: attempts,
	}
}

// apiError is the ledger service's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) GetBalance(ctx context.Context, memberID string) (int64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/realms/%s/members/%s/balance",
		c.baseURL, url.PathEscape(c.realmID), url.PathEscape(memberID))

	var payload struct {
		Balance int64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &payload); err != nil {
		return 0, fmt.Errorf("error getting balance for member %s: %w", memberID, err)
	}
	return payload.Balance, nil
}

func (c *HTTPClient) Credit(ctx context.Context, memberID string, amount int64) error {
	endpoint := fmt.Sprintf("%s/api/v1/realms/%s/members/%s/credit",
		c.baseURL, url.PathEscape(c.realmID), url.PathEscape(memberID))

	body := map[string]int64{"amount": amount}
	if err := c.do(ctx, http.MethodPost, endpoint, body, uuid.NewString(), nil); err != nil {
		return fmt.Errorf("error crediting member %s: %w", memberID, err)
	}
	return nil
}

func (c *HTTPClient) Debit(ctx context.Context, memberID string, amount int64) error {
	endpoint := fmt.Sprintf("%s/api/v1/realms/%s/members/%s/debit",
		c.baseURL, url.PathEscape(c.realmID), url.PathEscape(memberID))

	body := map[string]int64{"amount": amount}
	if err := c.do(ctx, http.MethodPost, endpoint, body, uuid.NewString(), nil); err != nil {
		if err == domain.ErrInsufficientBalance {
			return err
		}
		return fmt.Errorf("error debiting member %s: %w", memberID, err)
	}
	return nil
}

func (c *HTTPClient) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	endpoint := fmt.Sprintf("%s/api/v1/realms/%s/transfers", c.baseURL, url.PathEscape(c.realmID))

	body := map[string]any{"from": fromID, "to": toID, "amount": amount}
	if err := c.do(ctx, http.MethodPost, endpoint, body, uuid.NewString(), nil); err != nil {
		if err == domain.ErrInsufficientBalance {
			return err
		}
		return fmt.Errorf("error transferring %d points from %s to %s: %w", amount, fromID, toID, err)
	}
	return nil
}

// do issues the request with bounded retries and exponential backoff with
// full jitter. Mutations are only retried because idempotencyKey is resent
// unchanged on every attempt.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any, idempotencyKey string, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return fmt.Errorf("failed to build ledger request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("ledger request failed: %w", err)
			continue // network/timeout: retryable
		}

		retryable, err := c.decode(resp, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

// decode consumes the response. The boolean reports whether the failure is
// worth retrying (5xx and 429); 4xx responses are permanent.
func (c *HTTPClient) decode(resp *http.Response, out any) (bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("failed to decode ledger response: %w", err)
		}
		return false, nil
	}

	var apiErr apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &apiErr)

	if resp.StatusCode == http.StatusConflict || apiErr.Code == "insufficient_balance" {
		return false, domain.ErrInsufficientBalance
	}

	err := fmt.Errorf("ledger service returned status %d: %s", resp.StatusCode, apiErr.Message)
	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return retryable, err
}

// retryDelay returns a random duration in [0, min(initial*2^(n-1), max)].
// Full jitter avoids synchronised retry bursts across concurrent credits.
func retryDelay(retry int) time.Duration {
	base := float64(backoffInitial) * math.Pow(2, float64(retry-1))
	if base > float64(backoffMax) {
		base = float64(backoffMax)
	}
	return time.Duration(rand.Float64() * base)
}
