// Package transport issues the browser-like requests the legacy console
// expects and decodes its ISO-8859-2 responses.
//
// It never retries. Network failures become failure.KindNetwork, non-2xx
// statuses become failure.KindHTTPStatus without the body being read.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"github.com/bdobrica/precommander/common/redact"
	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/failure"
)

// DefaultMaxBodyBytes caps how much of a console page is read.
const DefaultMaxBodyBytes = 4 << 20

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) precommander"

// Options configures a Client.
type Options struct {
	// BaseURL is the console origin; Cookie is attached to it.
	BaseURL string
	// Cookie is a raw Cookie header ("a=1; b=2") with the operator session.
	Cookie string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// RequestsPerSec and Burst pace requests to the console. Zero disables pacing.
	RequestsPerSec float64
	Burst          int
	// Encoding decodes response bodies. Defaults to ISO-8859-2.
	Encoding encoding.Encoding
	// MaxBodyBytes is the largest page accepted. A longer page is a failure,
	// never a truncated read. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// HTTPClient replaces the default client (its Jar is kept if set).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Response is a successfully fetched page.
type Response struct {
	// URL is the final URL after redirects; relative links resolve against it.
	URL *url.URL
	// Body is the decoded page text.
	Body string
}

// Client is the Transport Adapter.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	encoding encoding.Encoding
	maxBody  int64
	logger   *slog.Logger
}

// New builds a Client with a cookie jar seeded from opts.Cookie.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("transport: invalid base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	if opts.Cookie != "" {
		cookies, err := http.ParseCookie(opts.Cookie)
		if err != nil {
			return nil, fmt.Errorf("transport: parse cookie header: %w", err)
		}
		hc.Jar.SetCookies(base, cookies)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst)
	}

	enc := opts.Encoding
	if enc == nil {
		enc = charmap.ISO8859_2
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{http: hc, limiter: limiter, encoding: enc, maxBody: maxBody, logger: logger}, nil
}

// Get fetches rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, failure.NewNetwork("GET "+redact.URL(rawURL), err)
	}
	return c.do(ctx, req)
}

// PostForm submits fields as application/x-www-form-urlencoded to rawURL.
func (c *Client) PostForm(ctx context.Context, rawURL string, fields url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, failure.NewNetwork("POST "+redact.URL(rawURL), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*Response, error) {
	op := req.Method + " " + redact.URL(req.URL.String())
	log := trace.Logger(ctx, c.logger)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, failure.NewNetwork(op, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("transport: request failed", "op", op, "err", err)
		return nil, failure.NewNetwork(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("transport: non-success status", "op", op, "status", resp.StatusCode)
		return nil, failure.NewHTTPStatus(op, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, failure.NewNetwork(op, fmt.Errorf("read body: %w", err))
	}
	if int64(len(raw)) > c.maxBody {
		log.Warn("transport: page too large", "op", op, "limit", c.maxBody)
		return nil, failure.NewNetwork(op, fmt.Errorf("body exceeds %d bytes", c.maxBody))
	}
	body, err := c.encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, failure.NewNetwork(op, fmt.Errorf("decode body: %w", err))
	}

	log.Debug("transport: fetched", "op", op, "status", resp.StatusCode,
		"bytes", len(raw), "elapsed", time.Since(start))

	return &Response{URL: resp.Request.URL, Body: string(body)}, nil
}
