package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/application/usecases"
)

// VoiceForwarder receives the voice gateway events a media node needs to
// take over the bot's voice connection.
type VoiceForwarder interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
	OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate)
}

// EventHandlers handles Discord gateway events for the player.
type EventHandlers struct {
	botID        snowflake.ID
	voiceChannel *usecases.VoiceChannelService
	forwarder    VoiceForwarder
}

// NewEventHandlers creates a new EventHandlers. forwarder may be nil.
func NewEventHandlers(
	botID snowflake.ID,
	voiceChannel *usecases.VoiceChannelService,
	forwarder VoiceForwarder,
) *EventHandlers {
	return &EventHandlers{
		botID:        botID,
		voiceChannel: voiceChannel,
		forwarder:    forwarder,
	}
}

// HandleVoiceServerUpdate forwards voice server updates to the media node.
func (h *EventHandlers) HandleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if h.forwarder != nil {
		h.forwarder.OnVoiceServerUpdate(event)
	}
}

// HandleVoiceStateUpdate tracks the bot's own voice channel.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	// Only handle updates for the bot itself
	if event.UserID != h.botID.String() {
		return
	}

	if h.forwarder != nil {
		h.forwarder.OnVoiceStateUpdate(event)
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// An empty channel ID means the bot was disconnected
	var newChannelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		newChannelID = &id
	}

	h.voiceChannel.HandleBotVoiceStateChange(usecases.BotVoiceStateChangeInput{
		GuildID:      guildID,
		NewChannelID: newChannelID,
	})
}
