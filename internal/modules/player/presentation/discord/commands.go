package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// Commands returns all slash commands for the player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join a voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Voice channel to join (defaults to your current channel)",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildVoice,
						discordgo.ChannelTypeGuildStageVoice,
					},
				},
			},
		},
		{
			Name:        "leave",
			Description: "Leave the voice channel",
		},
		{
			Name:        "play",
			Description: "Search for a track and play the results",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Search keyword",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "source",
					Description: "Provider to search (defaults to all)",
					Required:    false,
					Choices:     sourceChoices(),
				},
			},
		},
		{
			Name:        "next",
			Description: "Play the next track",
		},
		{
			Name:        "prev",
			Description: "Play the previous track",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "queue",
			Description: "Manage the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show the current queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "page",
							Description: "Page number",
							Required:    false,
							MinValue:    floatPtr(1),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a track from the queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "position",
							Description: "Position of the track to remove (1-indexed, as shown in queue list)",
							Required:    true,
							MinValue:    floatPtr(1),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Clear the queue and stop playback",
				},
			},
		},
		{
			Name:        "mode",
			Description: "Set the play mode (or cycle through modes if no option provided)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Play mode to set (omit to cycle through modes)",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "List", Value: domain.PlayModeList.String()},
						{Name: "Loop", Value: domain.PlayModeLoop.String()},
						{Name: "Random", Value: domain.PlayModeRandom.String()},
					},
				},
			},
		},
		{
			Name:        "volume",
			Description: "Set the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "value",
					Description: "Volume in percent",
					Required:    true,
					MinValue:    floatPtr(0),
					MaxValue:    100,
				},
			},
		},
		{
			Name:        "seek",
			Description: "Seek within the current track",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "seconds",
					Description: "Position from the start of the track",
					Required:    true,
					MinValue:    floatPtr(0),
				},
			},
		},
	}
}

func sourceChoices() []*discordgo.ApplicationCommandOptionChoice {
	sources := []domain.MusicSource{domain.MusicSourceNetease, domain.MusicSourceKuwo, domain.MusicSourceQQ}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(sources))
	for i, source := range sources {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{
			Name:  source.DisplayName(),
			Value: source.String(),
		}
	}
	return choices
}

func floatPtr(f float64) *float64 {
	return &f
}
