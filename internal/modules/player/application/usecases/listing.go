package usecases

import (
	"context"
	"strings"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

const unknownArtist = "Unknown"

// SearchInput contains the input for the Search use case.
type SearchInput struct {
	Keyword string
	Source  domain.MusicSource // empty searches every provider
	Page    ports.Page
}

// ListingService turns provider listings into playable tracks.
type ListingService struct {
	fetcher ports.ListingFetcher
}

// NewListingService creates a new ListingService.
func NewListingService(fetcher ports.ListingFetcher) *ListingService {
	return &ListingService{fetcher: fetcher}
}

// Search returns tracks matching input.Keyword.
func (l *ListingService) Search(ctx context.Context, input SearchInput) ([]*domain.Track, error) {
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return nil, ErrNoResults
	}

	var items []ports.ListingItem
	var err error
	if input.Source == "" {
		items, err = l.fetcher.AggregateSearch(ctx, keyword, input.Page)
	} else {
		items, err = l.fetcher.Search(ctx, input.Source, keyword, input.Page)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoResults
	}
	return ConvertToTracks(items), nil
}

// Toplists lists the charts of a provider.
func (l *ListingService) Toplists(ctx context.Context, source domain.MusicSource) ([]ports.Toplist, error) {
	return l.fetcher.Toplists(ctx, source)
}

// ToplistTracks returns the tracks of a chart.
func (l *ListingService) ToplistTracks(ctx context.Context, source domain.MusicSource, id string) ([]*domain.Track, error) {
	items, err := l.fetcher.ToplistTracks(ctx, source, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoResults
	}
	return ConvertToTracks(items), nil
}

// PlaylistTracks returns the tracks of a playlist.
func (l *ListingService) PlaylistTracks(ctx context.Context, source domain.MusicSource, id string) ([]*domain.Track, error) {
	items, err := l.fetcher.PlaylistTracks(ctx, source, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoResults
	}
	return ConvertToTracks(items), nil
}

// ConvertToTrack makes a listing item playable. Items without a provider
// are attributed to domain.DefaultMusicSource.
func ConvertToTrack(item ports.ListingItem) *domain.Track {
	source := item.Source
	if !source.IsValid() {
		source = domain.DefaultMusicSource
	}
	artist := item.Artist
	if artist == "" {
		artist = unknownArtist
	}
	return &domain.Track{
		ID:     item.ID,
		Name:   item.Name,
		Artist: artist,
		Album:  item.Album,
		Source: source,
		PicURL: item.PicURL,
	}
}

// ConvertToTracks converts every item with ConvertToTrack.
func ConvertToTracks(items []ports.ListingItem) []*domain.Track {
	tracks := make([]*domain.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, ConvertToTrack(item))
	}
	return tracks
}
