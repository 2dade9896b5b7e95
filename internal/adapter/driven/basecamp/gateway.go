package basecamp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gregjones/httpcache"
)

// DefaultBaseURL is the production Basecamp API root. The account id is
// appended by NewGateway.
const DefaultBaseURL = "https://3.basecampapi.com"

const (
	defaultMaxRetries      = 3
	defaultInitialInterval = time.Second
	defaultMaxRetryWait    = time.Minute
)

// TokenSource supplies the bearer credential for each call and renews it
// when the API rejects it.
type TokenSource interface {
	// AccessToken returns the access token to attach to the next request.
	AccessToken(ctx context.Context) (string, error)

	// RefreshRejected returns a replacement for a token the API answered
	// 401 to, refreshing it if no other caller already has.
	RefreshRejected(ctx context.Context, rejected string) (string, error)
}

// Gateway is the HTTP facade every Basecamp call flows through. It attaches
// the bearer token, refreshes and retries once on 401, backs off on 429 and
// 503, and tags every other non-2xx response as an *APIError.
type Gateway struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	tokens     TokenSource

	maxRetries      uint64
	initialInterval time.Duration
	maxRetryWait    time.Duration
}

// Option tunes a Gateway.
type Option func(*Gateway)

// WithRetryPolicy sets how many times a throttled request is retried and
// the back-off bounds between attempts. A Retry-After header overrides the
// computed interval but is still capped at maxWait.
func WithRetryPolicy(maxRetries uint64, initialInterval, maxWait time.Duration) Option {
	return func(g *Gateway) {
		g.maxRetries = maxRetries
		g.initialInterval = initialInterval
		g.maxRetryWait = maxWait
	}
}

// NewGateway creates a Gateway for one Basecamp account with the following
// transport stack:
//  1. httpcache (ETag revalidation; Basecamp answers 304 for unchanged lists)
//  2. http.Client with a per-request timeout
func NewGateway(baseURL, accountID, userAgent string, tokens TokenSource, timeout time.Duration, opts ...Option) (*Gateway, error) {
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   timeout,
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return NewGatewayWithHTTPClient(httpClient, strings.TrimRight(baseURL, "/")+"/"+accountID, userAgent, tokens, opts...)
}

// NewGatewayWithHTTPClient creates a Gateway with a custom http.Client and
// a base URL that already includes the account id.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewGatewayWithHTTPClient(httpClient *http.Client, baseURL, userAgent string, tokens TokenSource, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if userAgent == "" {
		return nil, errors.New("user agent is required")
	}

	g := &Gateway{
		httpClient:      httpClient,
		baseURL:         u,
		userAgent:       userAgent,
		tokens:          tokens,
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		maxRetryWait:    defaultMaxRetryWait,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Get fetches path and decodes the JSON body into out. It returns the URL
// of the next page when the response carries a Link rel="next" header.
// path may be relative to the account root or an absolute URL on the same host.
func (g *Gateway) Get(ctx context.Context, path string, out any) (string, error) {
	return g.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON to path and decodes the response into out when out is non-nil.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	_, err := g.do(ctx, http.MethodPost, path, body, out)
	return err
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) (string, error) {
	target, err := g.resolve(path)
	if err != nil {
		return "", err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("marshaling request body: %w", err)
		}
	}

	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	resp, err := g.send(ctx, method, path, target, payload, token)
	if err != nil {
		return "", err
	}

	if resp.status == http.StatusUnauthorized {
		slog.Debug("access token rejected, refreshing", "method", method, "path", path)

		token, err = g.tokens.RefreshRejected(ctx, token)
		if err != nil {
			return "", fmt.Errorf("%s %s: %w", method, path, err)
		}

		// Exactly one retry. A second 401 falls through as an APIError.
		resp, err = g.send(ctx, method, path, target, payload, token)
		if err != nil {
			return "", err
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return "", newAPIError(method, path, resp.status, resp.body)
	}

	if out != nil && resp.status != http.StatusNoContent && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return "", fmt.Errorf("decoding response from %s %s: %w", method, path, err)
		}
	}

	return parseLinkNext(resp.header.Get("Link")), nil
}

// send performs one logical request, retrying while the API answers 429 or
// 503. Transport errors are not retried: a timed-out call is a failed call.
func (g *Gateway) send(ctx context.Context, method, path, target string, payload []byte, token string) (*response, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.initialInterval
	if g.maxRetryWait > 0 {
		exp.MaxInterval = g.maxRetryWait
	}
	policy := &retryAfterBackOff{
		BackOff: backoff.WithMaxRetries(exp, g.maxRetries),
		maxWait: g.maxRetryWait,
	}

	var result *response
	operation := func() error {
		var reader io.Reader
		if payload != nil {
			// Rebuilt on each attempt since the previous reader was consumed.
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", g.userAgent)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("executing request %s %s: %w", method, path, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("reading response body: %w", err))
		}

		if resp.Header.Get(httpcache.XFromCache) != "" {
			slog.Debug("served from revalidated cache", "path", path)
		}

		if retryableStatus(resp.StatusCode) {
			policy.wait = retryAfter(resp.Header)
			return newAPIError(method, path, resp.StatusCode, data)
		}

		result = &response{status: resp.StatusCode, header: resp.Header, body: data}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("basecamp request throttled, backing off", "method", method, "path", path, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}
	return result, nil
}

// resolve turns a relative API path or an absolute pagination URL into a
// request URL. Absolute URLs must keep the API host and scheme so the bearer
// token is never sent elsewhere or in plaintext.
func (g *Gateway) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("parsing URL %q: %w", path, err)
		}
		if u.Host != g.baseURL.Host {
			return "", fmt.Errorf("refusing to follow %q: host differs from %s", path, g.baseURL.Host)
		}
		if u.Scheme != g.baseURL.Scheme {
			return "", fmt.Errorf("refusing to follow %q: scheme differs from %s", path, g.baseURL.Scheme)
		}
		return u.String(), nil
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL.String() + path, nil
}

// retryAfterBackOff lets a server-provided Retry-After replace the next
// computed interval. The wrapped policy still counts the attempt so the
// retry limit holds.
type retryAfterBackOff struct {
	backoff.BackOff
	wait    time.Duration
	maxWait time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.wait > 0 {
		next = b.wait
		b.wait = 0
	}
	if b.maxWait > 0 && next > b.maxWait {
		next = b.maxWait
	}
	return next
}

// retryAfter parses a Retry-After header given either as delay seconds or
// an HTTP date. Returns zero when absent or unparseable.
func retryAfter(header http.Header) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
