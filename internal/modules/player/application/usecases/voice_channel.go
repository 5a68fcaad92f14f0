package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// VoiceChannelService handles voice channel operations.
type VoiceChannelService struct {
	repo            domain.PlayerStateRepository
	voiceConnection ports.VoiceConnection
	voiceState      ports.VoiceStateProvider
	player          ports.MediaPlayer
	defaultVolume   float64
}

// NewVoiceChannelService creates a new VoiceChannelService.
// New players start at defaultVolume.
func NewVoiceChannelService(
	repo domain.PlayerStateRepository,
	voiceConnection ports.VoiceConnection,
	voiceState ports.VoiceStateProvider,
	player ports.MediaPlayer,
	defaultVolume float64,
) *VoiceChannelService {
	return &VoiceChannelService{
		repo:            repo,
		voiceConnection: voiceConnection,
		voiceState:      voiceState,
		player:          player,
		defaultVolume:   defaultVolume,
	}
}

// Join joins the bot to a voice channel.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	existingState := v.repo.Get(input.GuildID)

	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == nil {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = *userChannel
	}

	if existingState != nil {
		existingState.Lock()
		sameChannel := existingState.VoiceChannelID() == voiceChannelID
		existingState.SetNotificationChannelID(input.NotificationChannelID)
		existingState.Unlock()

		if sameChannel {
			return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
		}
	}

	if err := v.voiceConnection.JoinChannel(ctx, input.GuildID, voiceChannelID); err != nil {
		return nil, err
	}

	if existingState != nil {
		// Moving channels keeps the queue.
		existingState.Lock()
		existingState.SetVoiceChannelID(voiceChannelID)
		existingState.Unlock()
	} else {
		state := domain.NewPlayerState(input.GuildID, voiceChannelID, input.NotificationChannelID)
		state.SetVolume(v.defaultVolume)
		v.repo.Save(state)
	}

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
func (v *VoiceChannelService) HandleBotVoiceStateChange(input BotVoiceStateChangeInput) {
	state := v.repo.Get(input.GuildID)
	if state == nil {
		return
	}

	if input.NewChannelID == nil {
		v.repo.Delete(input.GuildID)
		return
	}

	state.Lock()
	defer state.Unlock()
	if *input.NewChannelID != state.VoiceChannelID() {
		state.SetVoiceChannelID(*input.NewChannelID)
	}
}

// Leave stops playback, leaves the voice channel and deletes the player state.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	state := v.repo.Get(input.GuildID)
	if state == nil {
		return ErrNotConnected
	}

	state.Lock()
	state.ClearCurrent()
	state.Unlock()

	if err := v.player.Stop(ctx, input.GuildID); err != nil {
		slog.Warn("failed to stop media player before leaving", "guild", input.GuildID, "error", err)
	}
	if err := v.voiceConnection.LeaveChannel(ctx, input.GuildID); err != nil {
		return err
	}

	v.repo.Delete(input.GuildID)
	return nil
}
