package discord

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/player/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorWarning = 0xF1C40F
	colorError   = 0xE74C3C
)

// commandTimeout bounds the work done for one deferred command, including
// stream resolution across providers and quality tiers.
const commandTimeout = 2 * time.Minute

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel *usecases.VoiceChannelService
	playback     *usecases.PlaybackService
	queue        *usecases.QueueService
	listing      *usecases.ListingService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	listing *usecases.ListingService,
) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel: voiceChannel,
		playback:     playback,
		queue:        queue,
		listing:      listing,
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	input, problem := joinInput(i)
	if problem != "" {
		return respondError(r, problem)
	}

	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			// Channel options carry the channel ID as their value.
			rawID, _ := opt.Value.(string)
			channelID, err := snowflake.Parse(rawID)
			if err != nil {
				return respondError(r, "Invalid voice channel")
			}
			input.VoiceChannelID = channelID
		}
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.voiceChannel.Join(ctx, input)
	if err != nil {
		return editError(r, err.Error())
	}

	return editSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.voiceChannel.Leave(context.Background(), usecases.LeaveInput{GuildID: guildID}); err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
// The first search result starts playing and the rest follow it in the queue.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	join, problem := joinInput(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var search usecases.SearchInput
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "query":
			search.Keyword = opt.StringValue()
		case "source":
			source, ok := domain.ParseMusicSource(opt.StringValue())
			if !ok {
				return respondError(r, usecases.ErrUnknownSource.Error())
			}
			search.Source = source
		}
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// 1. Join voice channel (or update notification channel if already connected)
	if _, err := h.voiceChannel.Join(ctx, join); err != nil {
		return editError(r, err.Error())
	}

	// 2. Search providers
	tracks, err := h.listing.Search(ctx, search)
	if err != nil {
		return editError(r, err.Error())
	}

	// 3. Replace the queue and play from the top
	output, err := h.playback.PlayList(ctx, usecases.PlayListInput{
		GuildID: join.GuildID,
		Tracks:  tracks,
	})
	if err != nil {
		return editError(r, err.Error())
	}

	description := fmt.Sprintf("Playing %s.", trackLabel(&output.Track))
	if more := len(tracks) - 1; more > 0 {
		description += fmt.Sprintf(" Queued **%d** more %s.", more, plural(more, "result", "results"))
	}
	if output.Blocked {
		return editEmbed(r, &discordgo.MessageEmbed{
			Description: description + "\nPlayback is blocked until the bot is connected. Use /resume to start.",
			Color:       colorWarning,
		})
	}

	return editSuccess(r, description)
}

// HandleNext handles the /next command.
func (h *CommandHandlers) HandleNext(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.step(i, r, h.playback.PlayNext)
}

// HandlePrev handles the /prev command.
func (h *CommandHandlers) HandlePrev(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.step(i, r, h.playback.PlayPrev)
}

func (h *CommandHandlers) step(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	play func(context.Context, snowflake.ID) (*usecases.PlayOutput, error),
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := play(ctx, guildID)
	if err != nil {
		return editError(r, err.Error())
	}

	return editSuccess(r, fmt.Sprintf("Now playing %s.", trackLabel(&output.Track)))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.playback.Pause(context.Background(), guildID); err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, "Paused.")
}

// HandleResume handles the /resume command.
// Resuming a stopped or blocked player starts the current track again.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.playback.Resume(ctx, guildID); err != nil {
		return editError(r, err.Error())
	}

	snapshot, err := h.playback.Snapshot(guildID)
	if err != nil {
		return editError(r, err.Error())
	}
	if !snapshot.IsPlaying && !snapshot.IsLoading && snapshot.LastError != "" {
		return editError(r, snapshot.LastError)
	}

	return editSuccess(r, "Resumed.")
}

// HandleQueue handles the /queue command and its subcommands.
func (h *CommandHandlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Missing subcommand")
	}

	subcommand := options[0]
	switch subcommand.Name {
	case "list":
		return h.handleQueueList(s, i, r, subcommand.Options)
	case "remove":
		return h.handleQueueRemove(s, i, r, subcommand.Options)
	case "clear":
		return h.handleQueueClear(s, i, r)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleQueueList(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var page int
	for _, opt := range options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	output, err := h.queue.List(usecases.QueueListInput{
		GuildID: guildID,
		Page:    page,
	})
	if err != nil {
		return respondError(r, err.Error())
	}

	if output.TotalTracks == 0 {
		return respondSuccess(r, "The queue is empty.")
	}

	var sb strings.Builder
	for _, entry := range output.Entries {
		writeTrackLine(&sb, entry)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Queue",
					Description: sb.String(),
					Color:       colorSuccess,
					Footer: &discordgo.MessageEmbedFooter{
						Text: fmt.Sprintf(
							"Page %d/%d | %d %s | Mode: %s",
							output.CurrentPage,
							output.TotalPages,
							output.TotalTracks,
							plural(output.TotalTracks, "track", "tracks"),
							output.PlayMode,
						),
					},
				},
			},
		},
	})
}

func (h *CommandHandlers) handleQueueRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var index int
	for _, opt := range options {
		if opt.Name == "position" {
			// Convert from 1-indexed (user input) to 0-indexed (internal)
			index = int(opt.IntValue()) - 1
		}
	}

	// Removing the current track may start the next one.
	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.playback.RemoveFromQueue(ctx, usecases.RemoveInput{
		GuildID: guildID,
		Index:   index,
	})
	if err != nil {
		return editError(r, err.Error())
	}

	return editSuccess(r, fmt.Sprintf("Removed %s.", trackLabel(&output.Removed)))
}

func (h *CommandHandlers) handleQueueClear(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.playback.ClearQueue(context.Background(), guildID); err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, "Cleared the queue.")
}

// HandleMode handles the /mode command.
func (h *CommandHandlers) HandleMode(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var modeStr string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "mode" {
			modeStr = opt.StringValue()
		}
	}

	var mode domain.PlayMode
	if modeStr != "" {
		mode = domain.ParsePlayMode(modeStr)
		if err := h.playback.SetPlayMode(guildID, mode); err != nil {
			return respondError(r, err.Error())
		}
	} else {
		mode, err = h.playback.TogglePlayMode(guildID)
		if err != nil {
			return respondError(r, err.Error())
		}
	}

	var description string
	switch mode {
	case domain.PlayModeLoop:
		description = "Now looping the queue."
	case domain.PlayModeRandom:
		description = "Now playing tracks in random order."
	default:
		description = "Playing through the queue once."
	}

	return respondSuccess(r, description)
}

// HandleVolume handles the /volume command.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var percent int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "value" {
			percent = opt.IntValue()
		}
	}

	volume, err := h.playback.SetVolume(context.Background(), guildID, float64(percent)/100)
	if err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, fmt.Sprintf("Volume set to %d%%.", int(math.Round(volume*100))))
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var seconds int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "seconds" {
			seconds = opt.IntValue()
		}
	}

	position, err := h.playback.Seek(context.Background(), guildID, time.Duration(seconds)*time.Second)
	if err != nil {
		return respondError(r, err.Error())
	}

	return respondSuccess(r, fmt.Sprintf("Seeked to %s.", formatPosition(position)))
}

// joinInput builds a JoinInput for the invoking member and channel.
// A non-empty problem is a message to show the user instead.
func joinInput(i *discordgo.InteractionCreate) (input usecases.JoinInput, problem string) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return input, "Invalid guild"
	}

	if i.Member == nil || i.Member.User == nil {
		return input, "This command can only be used in a server"
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return input, "Invalid user"
	}

	notificationChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return input, "Invalid notification channel"
	}

	return usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
	}, ""
}

// Response helpers.

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, errorEmbed(message))
}

func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

func editSuccess(r bot.Responder, description string) error {
	return editEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func editError(r bot.Responder, message string) error {
	return editEmbed(r, errorEmbed(message))
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	}
}

// trackLabel renders a track for a reply.
func trackLabel(track *domain.Track) string {
	if track.Artist == "" {
		return fmt.Sprintf("**%s**", track.Name)
	}
	return fmt.Sprintf("**%s** by %s", track.Name, track.Artist)
}

// writeTrackLine writes a single queue entry to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, entry usecases.QueueEntry) {
	marker := ""
	if entry.IsCurrent {
		marker = "▶ "
	}
	fmt.Fprintf(
		sb,
		"%s%d\\. **%s** - %s `%s`\n",
		marker,
		entry.Index+1,
		entry.Track.Name,
		entry.Track.Artist,
		entry.Track.FormattedDuration(),
	)
}

func formatPosition(d time.Duration) string {
	total := int(d.Seconds())
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
