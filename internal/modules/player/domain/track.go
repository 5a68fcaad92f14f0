package domain

import (
	"strconv"
	"time"
)

// TrackKey identifies a track across queues: the same id from a different
// provider is a different track.
type TrackKey struct {
	Source MusicSource
	ID     string
}

// Track represents a playable entry in a guild queue.
type Track struct {
	ID       string
	Name     string
	Artist   string
	Album    string
	Source   MusicSource
	Duration time.Duration
	PicURL   string // cover art locator, filled lazily
	PlayURL  string // resolved stream locator of the current attempt
	Lyric    string // LRC text, filled lazily
}

// Key returns the identity of the track.
func (t *Track) Key() TrackKey {
	return TrackKey{Source: t.Source, ID: t.ID}
}

// Matches reports whether t and other refer to the same provider track.
func (t *Track) Matches(other *Track) bool {
	if t == nil || other == nil {
		return false
	}
	return t.Key() == other.Key()
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss, or "--:--" when unknown.
func (t *Track) FormattedDuration() string {
	if t.Duration <= 0 {
		return "--:--"
	}

	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.Itoa(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
