package ports

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// ErrPlaybackBlocked is returned when the media player refuses to start
// output, for example because the bot is not connected to a voice channel.
// It is not a track failure and never triggers an automatic advance.
var ErrPlaybackBlocked = errors.New("playback blocked")

// PlaybackInfo describes a stream the media player accepted.
type PlaybackInfo struct {
	Duration time.Duration
	IsStream bool
}

// MediaPlayer is the audio output a guild engine drives.
type MediaPlayer interface {
	// Play loads locator and starts it from the beginning, replacing any current output.
	Play(ctx context.Context, guildID snowflake.ID, locator string) (PlaybackInfo, error)

	// Stop stops the current output.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses the current output.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes paused output.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// Seek moves the current output to position.
	Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) error

	// SetVolume sets output volume in [0, 1].
	SetVolume(ctx context.Context, guildID snowflake.ID, volume float64) error
}
