package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// NotificationSender defines the interface for sending notifications to Discord channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel.
	SendNowPlaying(channelID snowflake.ID, track domain.Track) error

	// SendSourceSwitch tells the channel that content came from another provider.
	SendSourceSwitch(channelID snowflake.ID, event domain.SourceSwitchEvent) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}
