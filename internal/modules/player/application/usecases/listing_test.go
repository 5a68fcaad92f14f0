package usecases

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

func TestConvertToTrack(t *testing.T) {
	tests := []struct {
		name       string
		item       ports.ListingItem
		wantSource domain.MusicSource
		wantArtist string
	}{
		{
			name:       "keeps reported source",
			item:       ports.ListingItem{ID: "1", Name: "Song", Artist: "Singer", Source: domain.MusicSourceKuwo},
			wantSource: domain.MusicSourceKuwo,
			wantArtist: "Singer",
		},
		{
			name:       "missing source defaults",
			item:       ports.ListingItem{ID: "1", Name: "Song", Artist: "Singer"},
			wantSource: domain.DefaultMusicSource,
			wantArtist: "Singer",
		},
		{
			name:       "unknown source defaults",
			item:       ports.ListingItem{ID: "1", Name: "Song", Source: domain.MusicSource("spotify")},
			wantSource: domain.DefaultMusicSource,
			wantArtist: unknownArtist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertToTrack(tt.item)
			if got.Source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, got.Source)
			}
			if got.Artist != tt.wantArtist {
				t.Errorf("expected artist %q, got %q", tt.wantArtist, got.Artist)
			}
			if got.ID != tt.item.ID || got.Name != tt.item.Name || got.PlayURL != "" {
				t.Errorf("unexpected track %+v", got)
			}
		})
	}
}

func TestListingService_Search(t *testing.T) {
	items := []ports.ListingItem{
		{ID: "1", Name: "One", Artist: "A", Source: domain.MusicSourceNetease},
		{ID: "2", Name: "Two", Artist: "B", Source: domain.MusicSourceQQ},
	}

	t.Run("empty keyword", func(t *testing.T) {
		fetcher := &mockListingFetcher{items: items}
		_, err := NewListingService(fetcher).Search(context.Background(), SearchInput{Keyword: "   "})
		if !errors.Is(err, ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
		if fetcher.aggregate != 0 || len(fetcher.bySource) != 0 {
			t.Error("expected no fetch")
		}
	})

	t.Run("without source searches every provider", func(t *testing.T) {
		fetcher := &mockListingFetcher{items: items}
		tracks, err := NewListingService(fetcher).Search(context.Background(), SearchInput{Keyword: " hello "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetcher.aggregate != 1 || fetcher.lastKeyword != "hello" {
			t.Errorf("expected aggregate search for trimmed keyword, got %d %q", fetcher.aggregate, fetcher.lastKeyword)
		}
		if len(tracks) != 2 || tracks[1].Source != domain.MusicSourceQQ {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("with source searches one provider", func(t *testing.T) {
		fetcher := &mockListingFetcher{items: items}
		if _, err := NewListingService(fetcher).Search(context.Background(), SearchInput{
			Keyword: "hello",
			Source:  domain.MusicSourceKuwo,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(fetcher.bySource, []domain.MusicSource{domain.MusicSourceKuwo}) || fetcher.aggregate != 0 {
			t.Errorf("expected kuwo search, got %v", fetcher.bySource)
		}
	})

	t.Run("no results", func(t *testing.T) {
		_, err := NewListingService(&mockListingFetcher{}).Search(context.Background(), SearchInput{Keyword: "x"})
		if !errors.Is(err, ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		fetchErr := errors.New("upstream down")
		_, err := NewListingService(&mockListingFetcher{err: fetchErr}).Search(context.Background(), SearchInput{Keyword: "x"})
		if !errors.Is(err, fetchErr) {
			t.Errorf("expected fetch error, got %v", err)
		}
	})
}

func TestListingService_Collections(t *testing.T) {
	fetcher := &mockListingFetcher{items: []ports.ListingItem{{ID: "9", Name: "Nine"}}}
	svc := NewListingService(fetcher)

	tracks, err := svc.ToplistTracks(context.Background(), domain.MusicSourceNetease, "19723756")
	if err != nil || len(tracks) != 1 {
		t.Fatalf("unexpected toplist result %v %v", tracks, err)
	}
	tracks, err = svc.PlaylistTracks(context.Background(), domain.MusicSourceNetease, "123")
	if err != nil || len(tracks) != 1 {
		t.Fatalf("unexpected playlist result %v %v", tracks, err)
	}

	_, err = NewListingService(&mockListingFetcher{}).PlaylistTracks(context.Background(), domain.MusicSourceQQ, "1")
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}
