package tunehub

import (
	"context"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

const (
	defaultLimit = 20
	defaultPage  = 1
)

type searchItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Pic      string `json:"pic"`
	Platform string `json:"platform"`
}

type searchData struct {
	Keyword string       `json:"keyword"`
	Total   int          `json:"total"`
	Results []searchItem `json:"results"`
}

type toplistItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Pic             string `json:"pic"`
	UpdateFrequency string `json:"updateFrequency"`
}

type toplistsData struct {
	List []toplistItem `json:"list"`
}

type listTrackItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Info   string `json:"info"`
	Pic    string `json:"pic"`
}

type trackListData struct {
	List   []listTrackItem `json:"list"`
	Source string          `json:"source"`
}

func withDefaults(page ports.Page) ports.Page {
	if page.Limit <= 0 {
		page.Limit = defaultLimit
	}
	if page.Page <= 0 {
		page.Page = defaultPage
	}
	return page
}

// AggregateSearch searches every provider at once.
func (c *Client) AggregateSearch(ctx context.Context, keyword string, page ports.Page) ([]ports.ListingItem, error) {
	page = withDefaults(page)

	var data searchData
	err := c.Resolve(ctx, Params{
		Type:    TypeAggregateSearch,
		Keyword: keyword,
		Limit:   page.Limit,
		Page:    page.Page,
	}, &data)
	if err != nil {
		return nil, err
	}
	return searchItems(data.Results, ""), nil
}

// Search searches a single provider.
func (c *Client) Search(
	ctx context.Context,
	source domain.MusicSource,
	keyword string,
	page ports.Page,
) ([]ports.ListingItem, error) {
	page = withDefaults(page)

	var data searchData
	err := c.Resolve(ctx, Params{
		Type:    TypeSearch,
		Source:  source,
		Keyword: keyword,
		Limit:   page.Limit,
		Page:    page.Page,
	}, &data)
	if err != nil {
		return nil, err
	}
	return searchItems(data.Results, source), nil
}

// Toplists lists the charts of a provider.
func (c *Client) Toplists(ctx context.Context, source domain.MusicSource) ([]ports.Toplist, error) {
	var data toplistsData
	if err := c.Resolve(ctx, Params{Type: TypeToplists, Source: source}, &data); err != nil {
		return nil, err
	}

	out := make([]ports.Toplist, 0, len(data.List))
	for _, item := range data.List {
		out = append(out, ports.Toplist{
			ID:         item.ID,
			Name:       item.Name,
			UpdateFreq: item.UpdateFrequency,
			PicURL:     item.Pic,
		})
	}
	return out, nil
}

// ToplistTracks returns the tracks of a chart.
func (c *Client) ToplistTracks(ctx context.Context, source domain.MusicSource, id string) ([]ports.ListingItem, error) {
	var data trackListData
	if err := c.Resolve(ctx, Params{Type: TypeToplist, Source: source, ID: id}, &data); err != nil {
		return nil, err
	}
	if listSource, ok := domain.ParseMusicSource(data.Source); ok {
		source = listSource
	}
	return listTrackItems(data.List, source), nil
}

// PlaylistTracks returns the tracks of a playlist.
func (c *Client) PlaylistTracks(ctx context.Context, source domain.MusicSource, id string) ([]ports.ListingItem, error) {
	var data trackListData
	if err := c.Resolve(ctx, Params{Type: TypePlaylist, Source: source, ID: id}, &data); err != nil {
		return nil, err
	}
	return listTrackItems(data.List, source), nil
}

// searchItems converts results, preferring the platform each item reports.
func searchItems(items []searchItem, fallback domain.MusicSource) []ports.ListingItem {
	out := make([]ports.ListingItem, 0, len(items))
	for _, item := range items {
		source, ok := domain.ParseMusicSource(item.Platform)
		if !ok {
			source = fallback
		}
		out = append(out, ports.ListingItem{
			ID:     item.ID,
			Name:   item.Name,
			Artist: item.Artist,
			Album:  item.Album,
			Source: source,
			PicURL: item.Pic,
		})
	}
	return out
}

func listTrackItems(items []listTrackItem, source domain.MusicSource) []ports.ListingItem {
	out := make([]ports.ListingItem, 0, len(items))
	for _, item := range items {
		out = append(out, ports.ListingItem{
			ID:     item.ID,
			Name:   item.Name,
			Artist: item.Artist,
			Album:  item.Info,
			Source: source,
			PicURL: item.Pic,
		})
	}
	return out
}
