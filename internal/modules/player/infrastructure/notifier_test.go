package infrastructure

import (
	"testing"
	"time"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

func TestNowPlayingEmbed(t *testing.T) {
	track := domain.Track{
		ID:       "1",
		Name:     "Song",
		Artist:   "Singer",
		Album:    "Record",
		Source:   domain.MusicSourceKuwo,
		Duration: 3*time.Minute + 5*time.Second,
		PicURL:   "https://img.example/1.jpg",
	}

	embed := nowPlayingEmbed(track)

	if embed.Title != "Song" || embed.Color != domain.MusicSourceKuwo.Color() {
		t.Errorf("unexpected embed header %q %x", embed.Title, embed.Color)
	}
	if embed.Footer.Text != "Kuwo" {
		t.Errorf("expected provider footer, got %q", embed.Footer.Text)
	}
	if len(embed.Fields) != 3 || embed.Fields[1].Value != "3:05" || embed.Fields[2].Value != "Record" {
		t.Errorf("unexpected fields %+v", embed.Fields)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != track.PicURL {
		t.Error("expected cover thumbnail")
	}
}

func TestNowPlayingEmbed_MinimalTrack(t *testing.T) {
	embed := nowPlayingEmbed(domain.Track{Name: "Song", Artist: "Unknown", Source: domain.MusicSourceQQ})

	if len(embed.Fields) != 2 || embed.Fields[1].Value != "--:--" {
		t.Errorf("unexpected fields %+v", embed.Fields)
	}
	if embed.Thumbnail != nil {
		t.Error("expected no thumbnail")
	}
}
