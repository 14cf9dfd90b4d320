package resolver_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/resolver"
	"github.com/UnknownOlympus/waypoint/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of fetch.HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func response(status int, location string) *http.Response {
	header := http.Header{}
	if location != "" {
		header.Set("Location", location)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func newResolver(client *mockHTTPClient) *resolver.Resolver {
	return resolver.New(client, slog.Default(), resolver.WithRetry(retry.Config{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}))
}

const (
	shortLink = "https://maps.app.goo.gl/AbCdEf"
	placeURL  = "https://www.google.com/maps/place/Parque/@-23.58,-46.65,17z"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("follows shortlink to maps", func(t *testing.T) {
		t.Parallel()
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodHead, req.Method)
				assert.NotEmpty(t, req.Header.Get("User-Agent"))
				switch req.URL.String() {
				case shortLink:
					return response(http.StatusFound, placeURL), nil
				case placeURL:
					return response(http.StatusOK, ""), nil
				}
				t.Fatalf("unexpected request: %s", req.URL)
				return nil, assert.AnError
			},
		}

		final := newResolver(client).Resolve(t.Context(), shortLink)

		assert.Equal(t, placeURL, final)
	})

	t.Run("does not visit hosts outside the whitelist", func(t *testing.T) {
		t.Parallel()
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				require.NotEqual(t, "evil.example.com", req.URL.Host)
				return response(http.StatusMovedPermanently, "https://evil.example.com/@1,2"), nil
			},
		}

		final := newResolver(client).Resolve(t.Context(), shortLink)

		assert.Equal(t, shortLink, final)
	})

	t.Run("falls back to GET when HEAD is rejected", func(t *testing.T) {
		t.Parallel()
		var methods []string
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				methods = append(methods, req.Method)
				if req.Method == http.MethodHead {
					return response(http.StatusMethodNotAllowed, ""), nil
				}
				if req.URL.String() == shortLink {
					return response(http.StatusFound, placeURL), nil
				}
				return response(http.StatusOK, ""), nil
			},
		}

		final := newResolver(client).Resolve(t.Context(), shortLink)

		assert.Equal(t, placeURL, final)
		assert.Equal(t, []string{http.MethodHead, http.MethodGet, http.MethodGet}, methods)
	})

	t.Run("returns link when every request fails", func(t *testing.T) {
		t.Parallel()
		client := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		final := newResolver(client).Resolve(t.Context(), shortLink)

		assert.Equal(t, shortLink, final)
	})

	t.Run("resolves relative locations", func(t *testing.T) {
		t.Parallel()
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				if req.URL.Path == "/start" {
					return response(http.StatusSeeOther, "/maps/@-10.5,-20.25,15z"), nil
				}
				return response(http.StatusOK, ""), nil
			},
		}

		final := newResolver(client).Resolve(t.Context(), "https://www.google.com/start")

		assert.Equal(t, "https://www.google.com/maps/@-10.5,-20.25,15z", final)
	})

	t.Run("redirect loop", func(t *testing.T) {
		t.Parallel()
		client := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return response(http.StatusFound, shortLink), nil
			},
		}

		final := newResolver(client).Resolve(t.Context(), shortLink)

		assert.Equal(t, shortLink, final)
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()
		calls := 0
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				calls++
				if calls == 1 {
					return response(http.StatusBadGateway, ""), nil
				}
				if req.URL.String() == shortLink {
					return response(http.StatusFound, placeURL), nil
				}
				return response(http.StatusOK, ""), nil
			},
		}

		final := newResolver(client).Resolve(t.Context(), shortLink)

		assert.Equal(t, placeURL, final)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent transport error is not retried", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				calls.Add(1)
				return nil, &url.Error{Op: req.Method, URL: req.URL.String(), Err: errors.New("unsupported protocol scheme")}
			},
		}

		final := newResolver(client).Resolve(t.Context(), "not a url")

		assert.Equal(t, "not a url", final)
		assert.Equal(t, int32(2), calls.Load(), "one HEAD and one GET, no retries")
	})

	t.Run("non-whitelisted link without redirect is returned as is", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		client := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return response(http.StatusOK, ""), nil
			},
		}

		final := resolver.New(client, logger).Resolve(t.Context(), "https://example.com/maps/@1,2")

		assert.Equal(t, "https://example.com/maps/@1,2", final)
		assert.NotContains(t, buf.String(), "Redirect left the allowed hosts")
	})

	t.Run("redirect off the whitelist is logged", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		client := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return response(http.StatusFound, "https://evil.example/x"), nil
			},
		}

		final := resolver.New(client, logger).Resolve(t.Context(), shortLink)

		assert.Equal(t, shortLink, final)
		assert.Contains(t, buf.String(), "Redirect left the allowed hosts")
	})
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	res := resolver.New(&mockHTTPClient{}, slog.Default())

	assert.True(t, res.Allowed("https://www.google.com/maps"))
	assert.True(t, res.Allowed("https://maps.app.goo.gl/x"))
	assert.True(t, res.Allowed("https://WWW.GOOGLE.COM.BR/maps"))
	assert.True(t, res.Allowed("https://consent.google.com/ml"))
	assert.False(t, res.Allowed("https://evilgoogle.com/maps"))
	assert.False(t, res.Allowed("https://example.com"))
	assert.False(t, res.Allowed("not a url"))
	assert.False(t, res.Allowed("://bad"))

	custom := resolver.New(&mockHTTPClient{}, slog.Default(), resolver.WithAllowedHosts("127.0.0.1"))
	assert.True(t, custom.Allowed("http://127.0.0.1:8080/x"))
	assert.False(t, custom.Allowed("https://www.google.com/maps"))
}
