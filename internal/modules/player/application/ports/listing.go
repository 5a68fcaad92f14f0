package ports

import (
	"context"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// ListingItem is one entry of a search result, toplist or playlist.
// Source is empty when the provider did not report one.
type ListingItem struct {
	ID     string
	Name   string
	Artist string
	Album  string
	Source domain.MusicSource
	PicURL string
}

// Toplist is a provider chart.
type Toplist struct {
	ID         string
	Name       string
	UpdateFreq string
	PicURL     string
}

// Page selects a window of results. Zero values let the provider choose.
type Page struct {
	Limit int
	Page  int
}

// ListingFetcher fetches browsable collections from providers.
type ListingFetcher interface {
	// AggregateSearch searches every provider at once.
	AggregateSearch(ctx context.Context, keyword string, page Page) ([]ListingItem, error)

	// Search searches a single provider.
	Search(ctx context.Context, source domain.MusicSource, keyword string, page Page) ([]ListingItem, error)

	// Toplists lists the charts of a provider.
	Toplists(ctx context.Context, source domain.MusicSource) ([]Toplist, error)

	// ToplistTracks returns the tracks of a chart.
	ToplistTracks(ctx context.Context, source domain.MusicSource, id string) ([]ListingItem, error)

	// PlaylistTracks returns the tracks of a playlist.
	PlaylistTracks(ctx context.Context, source domain.MusicSource, id string) ([]ListingItem, error)
}
