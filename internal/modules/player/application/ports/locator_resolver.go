package ports

import (
	"context"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// TrackInfo is the provider metadata of a single track.
type TrackInfo struct {
	ID     string
	Name   string
	Artist string
	Album  string
	Source domain.MusicSource
	PicURL string
}

// LocatorResolver resolves provider content into locators or text.
// Implementations perform a single attempt; fallback policy lives in the caller.
type LocatorResolver interface {
	// StreamURL resolves a playable audio locator at the given quality.
	StreamURL(ctx context.Context, source domain.MusicSource, id string, br domain.BitRate) (string, error)

	// CoverURL resolves the cover art locator.
	CoverURL(ctx context.Context, source domain.MusicSource, id string) (string, error)

	// Lyric returns the LRC text of the track.
	Lyric(ctx context.Context, source domain.MusicSource, id string) (string, error)

	// TrackInfo returns the provider metadata of the track.
	TrackInfo(ctx context.Context, source domain.MusicSource, id string) (*TrackInfo, error)
}
