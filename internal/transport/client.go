// Package transport builds the HTTP client shared by the npm and GitHub
// collaborators: one connection pool, a request timeout, an identifying
// User-Agent and optional routing through an HTTP or SOCKS5 proxy.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// ErrInvalidProxyURL is returned when the proxy URL cannot be used.
var ErrInvalidProxyURL = errors.New("invalid proxy URL: expected http://, https://, socks5:// or socks5h://")

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// Options configures New.
type Options struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// ProxyURL routes all traffic through the given proxy. When empty the
	// HTTP_PROXY/HTTPS_PROXY environment variables apply.
	ProxyURL string

	// UserAgent is sent with every request when not empty.
	UserAgent string
}

// New returns an HTTP client configured by opts.
//
// Design decision: SOCKS5 proxies go through golang.org/x/net/proxy rather
// than http.Transport.Proxy so that socks5h:// resolves names on the proxy
// side, which is what corporate egress proxies usually expect.
func New(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.ProxyURL != "" {
		if err := applyProxy(transport, opts.ProxyURL); err != nil {
			return nil, err
		}
	}

	var rt http.RoundTripper = transport
	if opts.UserAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: opts.UserAgent}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
	}, nil
}

func applyProxy(transport *http.Transport, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidProxyURL, raw)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProxyURL, err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProxyURL, raw)
	}
}

// userAgentTransport sets the User-Agent header on outgoing requests.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}
