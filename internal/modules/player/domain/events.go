package domain

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// SourceSwitchEvent is emitted when content was served by a provider other
// than the one requested. GuildID is zero when the request was not made on
// behalf of a guild.
type SourceSwitchEvent struct {
	GuildID   snowflake.ID
	From      MusicSource
	To        MusicSource
	Timestamp time.Time
}

// PlaybackStartedEvent is emitted when a track starts playing.
type PlaybackStartedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	Track                 Track
}

// PlaybackFailedEvent is emitted when a play attempt fails.
type PlaybackFailedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	Track                 Track
	Message               string
	WillAdvance           bool
}

// TrackEndedEvent is emitted by the media player when a track finishes naturally.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Locator string // stream locator of the finished track, if known
}

// TrackExceptionEvent is emitted by the media player when a track fails mid-play.
type TrackExceptionEvent struct {
	GuildID snowflake.ID
	Locator string
	Message string
}

type guildIDKey struct{}

// ContextWithGuildID tags ctx with the guild a request is made for.
func ContextWithGuildID(ctx context.Context, guildID snowflake.ID) context.Context {
	return context.WithValue(ctx, guildIDKey{}, guildID)
}

// GuildIDFromContext returns the guild tagged by ContextWithGuildID, or zero.
func GuildIDFromContext(ctx context.Context) snowflake.ID {
	id, _ := ctx.Value(guildIDKey{}).(snowflake.ID)
	return id
}
