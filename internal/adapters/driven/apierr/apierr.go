// Package apierr classifies upstream failures into domain service errors
// and carries the JSON-over-HTTP plumbing shared by the provider adapters.
package apierr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// FromStatus maps an HTTP status and error body to a service error.
func FromStatus(kind error, op string, status int, body []byte) error {
	return WithStatus(kind, op, status, fmt.Errorf("status %d: %s", status, truncate(body)))
}

// WithStatus tags cause by HTTP status.
// 429 is rate limited; 408 and 5xx are retryable; other codes are fatal.
func WithStatus(kind error, op string, status int, cause error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimitError(kind, op, cause)
	case status == http.StatusRequestTimeout || status >= 500:
		return domain.NewServiceError(kind, op, true, cause)
	default:
		return domain.NewServiceError(kind, op, false, cause)
	}
}

// FromTransport wraps a failure that happened before a response arrived.
// Caller cancellation is returned as-is; timeouts and network errors
// are retryable.
func FromTransport(kind error, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	retryable := errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
	return domain.NewServiceError(kind, op, retryable, err)
}

// Client posts JSON to one upstream API.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Headers map[string]string

	// Kind is the service sentinel attached to failures.
	Kind error
}

// PostJSON sends in as JSON to path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.NewServiceError(c.Kind, op, false, fmt.Errorf("marshal request: %w", err))
	}
	return c.do(ctx, op, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get fetches path and decodes the response into out, which may be nil.
func (c *Client) Get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, http.NoBody, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return domain.NewServiceError(c.Kind, op, false, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return FromTransport(c.Kind, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return FromStatus(c.Kind, op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return FromTransport(c.Kind, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
