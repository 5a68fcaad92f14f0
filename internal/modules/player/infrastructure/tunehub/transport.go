// Package tunehub talks to the TuneHub resolution API: a primary and a
// fallback endpoint behind a shared failover flag, plus the envelope and
// locator conventions built on top.
package tunehub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sglre6355/tunebot/internal/metrics"
	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

const (
	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 15 * time.Second

	sourceSwitchHeader = "X-Source-Switch"
	requestIDHeader    = "X-Request-ID"
	maxRedirects       = 5
	maxBodySize        = 8 << 20
)

var sourceSwitchPattern = regexp.MustCompile(`(\w+)\s*->\s*(\w+)`)

// Config holds the endpoint topology and client limits.
type Config struct {
	PrimaryURL  string
	FallbackURL string
	Timeout     time.Duration
	RateLimit   float64 // requests per second, 0 disables limiting
	RateBurst   int
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        *url.URL // URL of the last request made, after redirects
}

// Option configures a Transport.
type Option func(*Transport)

// WithSourceSwitchPublisher publishes provider switch hints found in response headers.
func WithSourceSwitchPublisher(p ports.SourceSwitchPublisher) Option {
	return func(t *Transport) {
		t.publisher = p
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its redirect policy is
// overridden to stop after five hops.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		t.now = now
	}
}

// Transport issues requests against the current endpoint. The endpoint
// state is shared by every request made through the same Transport.
type Transport struct {
	cfg       Config
	client    *http.Client
	limiter   *rate.Limiter
	publisher ports.SourceSwitchPublisher
	now       func() time.Time

	mu         sync.RWMutex
	onFallback bool
	healthy    bool
}

// NewTransport creates a Transport starting on the primary endpoint.
func NewTransport(cfg Config, opts ...Option) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = cfg.PrimaryURL
	}
	cfg.PrimaryURL = strings.TrimRight(cfg.PrimaryURL, "/")
	cfg.FallbackURL = strings.TrimRight(cfg.FallbackURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	t := &Transport{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: limiter,
		now:     time.Now,
		healthy: true,
	}
	for _, opt := range opts {
		opt(t)
	}

	client := *t.client
	client.Timeout = cfg.Timeout
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
	t.client = &client

	return t
}

// Timeout returns the bound on a single request attempt.
func (t *Transport) Timeout() time.Duration {
	return t.cfg.Timeout
}

// CurrentEndpoint returns the base URL requests are currently sent to.
func (t *Transport) CurrentEndpoint() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.endpointLocked()
}

func (t *Transport) endpointLocked() string {
	if t.onFallback {
		return t.cfg.FallbackURL
	}
	return t.cfg.PrimaryURL
}

// IsHealthy reports whether the primary endpoint is in use.
func (t *Transport) IsHealthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.healthy
}

// IsEndpointURL reports whether u points into either endpoint.
func (t *Transport) IsEndpointURL(u string) bool {
	return withinBase(u, t.cfg.PrimaryURL) || withinBase(u, t.cfg.FallbackURL)
}

func withinBase(u, base string) bool {
	return u == base || strings.HasPrefix(u, base+"/") || strings.HasPrefix(u, base+"?")
}

// SwitchToFallback moves to the fallback endpoint.
// Returns false if the fallback endpoint was already in use.
func (t *Transport) SwitchToFallback() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.onFallback {
		return false
	}
	t.onFallback = true
	t.healthy = false

	metrics.EndpointFailoverTotal.Inc()
	slog.Warn("switched to fallback endpoint", "endpoint", t.cfg.FallbackURL)
	return true
}

// ResetToPrimary moves back to the primary endpoint.
// Returns false if the primary endpoint was already in use.
func (t *Transport) ResetToPrimary() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.onFallback {
		return false
	}
	t.onFallback = false
	t.healthy = true

	slog.Info("reset to primary endpoint", "endpoint", t.cfg.PrimaryURL)
	return true
}

// Request performs a structured call. Failures without a response and 5xx
// statuses move the transport to the fallback endpoint and re-issue the call
// once. Any non-2xx status is returned as a *StatusError.
func (t *Transport) Request(ctx context.Context, path string, query url.Values) (*Response, error) {
	header := http.Header{"Accept": {"application/json"}}

	resp, err := t.do(ctx, path, query, header, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: messageFromBody(resp.Body)}
	}
	return resp, nil
}

// Direct performs a raw call and returns whatever response the endpoint sent.
// Only failures without a response trigger failover. path may be an absolute
// URL, in which case it is used as is and never retried.
func (t *Transport) Direct(ctx context.Context, path string, query url.Values, header http.Header) (*Response, error) {
	return t.do(ctx, path, query, header, false)
}

func (t *Transport) do(
	ctx context.Context,
	path string,
	query url.Values,
	header http.Header,
	failoverOnStatus bool,
) (*Response, error) {
	requestID := uuid.NewString()

	endpoint, onFallback := t.snapshot()
	resp, err := t.send(ctx, requestID, endpoint, path, query, header)

	if !onFallback && !isAbsoluteURL(path) && t.shouldFailover(ctx, resp, err, failoverOnStatus) {
		t.SwitchToFallback()
		slog.Info("retrying request against fallback endpoint", "request_id", requestID, "path", path)
		resp, err = t.send(ctx, requestID, t.CurrentEndpoint(), path, query, header)
	}
	if err != nil {
		return nil, err
	}

	t.observeSourceSwitch(ctx, resp.Header)
	return resp, nil
}

func (t *Transport) snapshot() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.endpointLocked(), t.onFallback
}

func (t *Transport) shouldFailover(ctx context.Context, resp *Response, err error, failoverOnStatus bool) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return errors.Is(err, ErrTransport)
	}
	return failoverOnStatus && resp.StatusCode >= 500
}

func (t *Transport) send(
	ctx context.Context,
	requestID string,
	endpoint string,
	path string,
	query url.Values,
	header http.Header,
) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tunehub: rate limit: %w", err)
	}

	target := buildURL(endpoint, path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("tunehub: build request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	httpResp, err := t.client.Do(req)
	if err != nil {
		slog.Warn("upstream request failed",
			"request_id", requestID,
			"url", target,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	slog.Debug("upstream response",
		"request_id", requestID,
		"url", target,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		URL:        httpResp.Request.URL,
	}, nil
}

func (t *Transport) observeSourceSwitch(ctx context.Context, header http.Header) {
	hint := header.Get(sourceSwitchHeader)
	if hint == "" {
		return
	}

	m := sourceSwitchPattern.FindStringSubmatch(hint)
	if m == nil {
		slog.Debug("ignoring malformed source switch header", "value", hint)
		return
	}
	from, okFrom := domain.ParseMusicSource(m[1])
	to, okTo := domain.ParseMusicSource(m[2])
	if !okFrom || !okTo {
		slog.Debug("ignoring source switch with unknown provider", "value", hint)
		return
	}

	metrics.IncSourceSwitch(from.String(), to.String())
	slog.Info("upstream switched source", "from", from, "to", to)

	if t.publisher != nil {
		t.publisher.PublishSourceSwitch(domain.SourceSwitchEvent{
			GuildID:   domain.GuildIDFromContext(ctx),
			From:      from,
			To:        to,
			Timestamp: t.now(),
		})
	}
}

func buildURL(endpoint, path string, query url.Values) string {
	target := path
	if !isAbsoluteURL(path) {
		target = endpoint + path
	}
	if len(query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode()
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
