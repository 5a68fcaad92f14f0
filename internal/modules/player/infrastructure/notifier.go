package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// Embed colors.
const (
	colorRed    = 0xE74C3C
	colorYellow = 0xF1C40F
)

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

// SendNowPlaying sends a "Now Playing" embed to the channel.
func (n *Notifier) SendNowPlaying(channelID snowflake.ID, track domain.Track) error {
	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), nowPlayingEmbed(track))
	return err
}

func nowPlayingEmbed(track domain.Track) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title: track.Name,
		Color: track.Source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  track.Artist,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  track.FormattedDuration(),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: track.Source.DisplayName(),
		},
	}

	if track.Album != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Album",
			Value:  track.Album,
			Inline: true,
		})
	}
	if track.PicURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.PicURL}
	}

	return embed
}

// SendSourceSwitch tells the channel that another provider served the content.
func (n *Notifier) SendSourceSwitch(channelID snowflake.ID, event domain.SourceSwitchEvent) error {
	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf(
			"%s was unavailable, playing from **%s** instead.",
			event.From.DisplayName(),
			event.To.DisplayName(),
		),
		Color: colorYellow,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
