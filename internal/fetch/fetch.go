// Package fetch holds the HTTP plumbing shared by the link resolver and the page metadata reader.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/retry"
)

// Defaults for outgoing requests.
const (
	DefaultTimeout = 12 * time.Second
	MaxBodySize    = int64(5 * 1024 * 1024)

	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
	AcceptLanguage = "pt-BR,pt;q=0.9,en;q=0.8"
)

// ErrBodyTooLarge is returned when a response body exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for responses with an unexpected status code.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// NewHTTPClient returns a client that does not follow redirects, so callers can inspect every hop.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// SetBrowserHeaders sets the headers used for requests to Google Maps.
func SetBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept-Language", AcceptLanguage)
}

// IsRetryable reports whether err is transient: timeouts, refused or reset connections,
// temporary DNS failures, 429 and 5xx responses. Malformed URLs, unsupported schemes,
// unknown hosts and context cancellation are never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound && (dnsErr.IsTimeout || dnsErr.IsTemporary)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// ReadLimited reads at most MaxBodySize bytes of the response body.
func ReadLimited(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}

	return body, nil
}

// GetPage downloads a page with browser headers and retries transient failures.
func GetPage(ctx context.Context, client HTTPClient, cfg retry.Config, rawURL string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		SetBrowserHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
			return &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}

		body, err = ReadLimited(resp)
		return err
	}

	if err := retry.Do(ctx, cfg, "fetch "+strings.TrimSpace(rawURL), op, IsRetryable); err != nil {
		return nil, err
	}

	return body, nil
}
