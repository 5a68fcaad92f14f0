package tunehub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sglre6355/tunebot/internal/metrics"
	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// Request types understood by the API.
const (
	TypeURL             = "url"
	TypePic             = "pic"
	TypeLyric           = "lrc"
	TypeInfo            = "info"
	TypeSearch          = "search"
	TypeAggregateSearch = "aggregateSearch"
	TypeToplists        = "toplists"
	TypeToplist         = "toplist"
	TypePlaylist        = "playlist"
)

const successCode = 200

// Params are the query parameters of an API call. Zero values are omitted.
type Params struct {
	Type    string
	Source  domain.MusicSource
	ID      string
	BitRate domain.BitRate
	Keyword string
	Limit   int
	Page    int
}

// Values encodes p as query parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("type", p.Type)
	if p.Source != "" {
		v.Set("source", p.Source.String())
	}
	if p.ID != "" {
		v.Set("id", p.ID)
	}
	if p.BitRate != "" {
		v.Set("br", p.BitRate.String())
	}
	if p.Keyword != "" {
		v.Set("keyword", p.Keyword)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Client implements the resolution conventions of the API on top of a Transport.
type Client struct {
	transport *Transport
	group     singleflight.Group
}

var (
	_ ports.LocatorResolver = (*Client)(nil)
	_ ports.ListingFetcher  = (*Client)(nil)
)

// NewClient creates a new Client.
func NewClient(transport *Transport) *Client {
	return &Client{transport: transport}
}

// Transport returns the underlying transport.
func (c *Client) Transport() *Transport {
	return c.transport
}

// Resolve performs a structured call and decodes the envelope payload into out.
// A non-success envelope code is returned as an *APIError.
func (c *Client) Resolve(ctx context.Context, p Params, out any) error {
	resp, err := c.transport.Request(ctx, "/", p.Values())
	if err != nil {
		metrics.IncTunehubRequest(p.Type, "error")
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		metrics.IncTunehubRequest(p.Type, "error")
		return fmt.Errorf("tunehub: decode envelope: %w", err)
	}
	if env.Code != successCode {
		metrics.IncTunehubRequest(p.Type, "api_error")
		return newAPIError(env.Code, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			metrics.IncTunehubRequest(p.Type, "error")
			return fmt.Errorf("tunehub: decode %s payload: %w", p.Type, err)
		}
	}

	metrics.IncTunehubRequest(p.Type, "ok")
	return nil
}

// ResolveDirect resolves a locator that the API answers with a redirect.
// The endpoint is probed for a single byte; a final URL outside the API is
// returned upgraded to https. A 500 from the probe means the provider refused
// the track. Anything else yields the pass-through proxy locator.
// Concurrent calls with identical parameters share one probe. The shared
// probe outlives any single caller; each caller stops waiting when its own
// ctx is done.
func (c *Client) ResolveDirect(ctx context.Context, p Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query := p.Values()

	ch := c.group.DoChan(query.Encode(), func() (any, error) {
		// One attempt plus at most one failover.
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*c.transport.Timeout())
		defer cancel()
		return c.probe(probeCtx, p.Type, query)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("shared in-flight resolution", "type", p.Type, "source", p.Source, "id", p.ID)
		}
		return res.Val.(string), nil
	}
}

func (c *Client) probe(ctx context.Context, kind string, query url.Values) (string, error) {
	resp, err := c.transport.Direct(ctx, "/", query, http.Header{"Range": {"bytes=0-0"}})
	if err != nil {
		if ctx.Err() != nil {
			metrics.IncTunehubRequest(kind, "error")
			return "", err
		}
		slog.Warn("direct resolution failed, using proxy locator", "type", kind, "error", err)
		metrics.IncTunehubRequest(kind, "proxy")
		return c.ProxyLocator(query), nil
	}

	if resp.StatusCode == http.StatusInternalServerError {
		metrics.IncTunehubRequest(kind, "unavailable")
		return "", ErrTrackUnavailable
	}

	if loc := redirectLocation(resp); loc != "" && !c.transport.IsEndpointURL(loc) {
		metrics.IncTunehubRequest(kind, "ok")
		return upgradeHTTPS(loc), nil
	}
	if resp.URL != nil {
		if final := resp.URL.String(); !c.transport.IsEndpointURL(final) {
			metrics.IncTunehubRequest(kind, "ok")
			return upgradeHTTPS(final), nil
		}
	}

	slog.Debug("direct resolution stayed on endpoint, using proxy locator", "type", kind, "status", resp.StatusCode)
	metrics.IncTunehubRequest(kind, "proxy")
	return c.ProxyLocator(query), nil
}

// ResolveText fetches a text body, retrying once through the proxy locator.
func (c *Client) ResolveText(ctx context.Context, p Params) (string, error) {
	query := p.Values()

	resp, err := c.transport.Direct(ctx, "/", query, nil)
	if err == nil && isSuccess(resp.StatusCode) {
		metrics.IncTunehubRequest(p.Type, "ok")
		return string(resp.Body), nil
	}
	if ctx.Err() != nil {
		metrics.IncTunehubRequest(p.Type, "error")
		return "", ctx.Err()
	}
	slog.Warn("text fetch failed, retrying through proxy locator", "type", p.Type, "error", err)

	resp, err = c.transport.Direct(ctx, c.ProxyLocator(query), nil, nil)
	if err != nil {
		metrics.IncTunehubRequest(p.Type, "error")
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		metrics.IncTunehubRequest(p.Type, "error")
		return "", &StatusError{StatusCode: resp.StatusCode, Message: messageFromBody(resp.Body)}
	}

	metrics.IncTunehubRequest(p.Type, "proxy")
	return string(resp.Body), nil
}

// ProxyLocator returns a locator that makes the API stream the content itself.
func (c *Client) ProxyLocator(query url.Values) string {
	return c.transport.CurrentEndpoint() + "/?" + query.Encode()
}

// StreamURL resolves a playable audio locator at the given quality.
func (c *Client) StreamURL(ctx context.Context, source domain.MusicSource, id string, br domain.BitRate) (string, error) {
	locator, err := c.ResolveDirect(ctx, Params{Type: TypeURL, Source: source, ID: id, BitRate: br})
	if err != nil {
		return "", err
	}
	if locator == "" {
		return "", ErrEmptyLocator
	}
	return locator, nil
}

// CoverURL resolves the cover art locator.
func (c *Client) CoverURL(ctx context.Context, source domain.MusicSource, id string) (string, error) {
	locator, err := c.ResolveDirect(ctx, Params{Type: TypePic, Source: source, ID: id})
	if err != nil {
		return "", err
	}
	if locator == "" {
		return "", ErrEmptyLocator
	}
	return locator, nil
}

// Lyric returns the LRC text of the track.
func (c *Client) Lyric(ctx context.Context, source domain.MusicSource, id string) (string, error) {
	return c.ResolveText(ctx, Params{Type: TypeLyric, Source: source, ID: id})
}

type trackInfoData struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Pic    string `json:"pic"`
}

// TrackInfo returns the provider metadata of the track.
func (c *Client) TrackInfo(ctx context.Context, source domain.MusicSource, id string) (*ports.TrackInfo, error) {
	var data trackInfoData
	if err := c.Resolve(ctx, Params{Type: TypeInfo, Source: source, ID: id}, &data); err != nil {
		return nil, err
	}
	return &ports.TrackInfo{
		ID:     id,
		Name:   data.Name,
		Artist: data.Artist,
		Album:  data.Album,
		Source: source,
		PicURL: data.Pic,
	}, nil
}

func redirectLocation(resp *Response) string {
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return ""
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return ""
	}
	if resp.URL != nil {
		if ref, err := resp.URL.Parse(loc); err == nil {
			return ref.String()
		}
	}
	return loc
}

func upgradeHTTPS(locator string) string {
	if rest, ok := strings.CutPrefix(locator, "http://"); ok {
		return "https://" + rest
	}
	return locator
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func messageFromBody(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}
