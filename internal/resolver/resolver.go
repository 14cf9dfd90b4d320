// Package resolver follows Google Maps shortlink redirects without leaving trusted hosts.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/UnknownOlympus/waypoint/internal/fetch"
	"github.com/UnknownOlympus/waypoint/internal/retry"
)

const maxRedirects = 10

// DefaultAllowedHosts are the hosts a link may redirect through. Subdomains are accepted too.
var DefaultAllowedHosts = []string{
	"maps.app.goo.gl",
	"goo.gl",
	"google.com",
	"www.google.com",
	"google.com.br",
	"www.google.com.br",
	"maps.google.com",
}

// ErrTooManyRedirects is returned when a link redirects more than maxRedirects times.
var ErrTooManyRedirects = errors.New("too many redirects")

// Resolver follows redirects of shortlinks and returns the final URL.
type Resolver struct {
	client       fetch.HTTPClient
	retryCfg     retry.Config
	allowedHosts []string
	log          *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAllowedHosts replaces the default host whitelist.
func WithAllowedHosts(hosts ...string) Option {
	return func(r *Resolver) {
		r.allowedHosts = hosts
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(r *Resolver) {
		r.retryCfg = cfg
	}
}

// New creates a Resolver. The client must not follow redirects on its own,
// see fetch.NewHTTPClient.
func New(client fetch.HTTPClient, log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		client:       client,
		retryCfg:     retry.DefaultConfig(),
		allowedHosts: DefaultAllowedHosts,
		log:          log,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the URL the link finally points to. It tries a HEAD request first
// and falls back to GET. If anything fails, or the chain ends on a host outside the
// whitelist, the original link is returned.
func (r *Resolver) Resolve(ctx context.Context, link string) string {
	final, err := r.follow(ctx, http.MethodHead, link)
	if err != nil {
		r.log.DebugContext(ctx, "HEAD redirect chain failed, trying GET", "link", link, "error", err)

		final, err = r.follow(ctx, http.MethodGet, link)
		if err != nil {
			r.log.DebugContext(ctx, "GET redirect chain failed", "link", link, "error", err)
			return link
		}
	}

	if !r.Allowed(final) {
		if final != link {
			r.log.WarnContext(ctx, "Redirect left the allowed hosts", "link", link, "final", final)
		}
		return link
	}

	return final
}

// Allowed reports whether the host of rawURL is whitelisted.
func (r *Resolver) Allowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range r.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}

	return false
}

// follow walks the redirect chain hop by hop. It stops before requesting a host
// outside the whitelist and returns that location unvisited.
func (r *Resolver) follow(ctx context.Context, method, link string) (string, error) {
	current, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("failed to parse link: %w", err)
	}

	for range maxRedirects + 1 {
		location, errHop := r.hop(ctx, method, current.String())
		if errHop != nil {
			return "", errHop
		}
		if location == "" {
			return current.String(), nil
		}

		next, errParse := current.Parse(location)
		if errParse != nil {
			return "", fmt.Errorf("invalid redirect location %q: %w", location, errParse)
		}
		if !r.Allowed(next.String()) {
			return next.String(), nil
		}
		current = next
	}

	return "", fmt.Errorf("%w: %s", ErrTooManyRedirects, link)
}

// hop performs one request and returns the redirect location, or "" when the response is final.
func (r *Resolver) hop(ctx context.Context, method, rawURL string) (string, error) {
	var location string

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		fetch.SetBrowserHeaders(req)

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute %s request: %w", method, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, fetch.MaxBodySize))

		switch {
		case isRedirect(resp.StatusCode):
			location = resp.Header.Get("Location")
			return nil
		case resp.StatusCode >= http.StatusBadRequest:
			return &fetch.StatusError{StatusCode: resp.StatusCode, URL: rawURL}
		default:
			location = ""
			return nil
		}
	}

	if err := retry.Do(ctx, r.retryCfg, method+" "+rawURL, op, fetch.IsRetryable); err != nil {
		return "", err
	}

	return location, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}

	return false
}
