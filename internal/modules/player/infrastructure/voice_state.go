package infrastructure

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
)

// VoiceStateProvider reads voice states from the discordgo state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{state: session.State}
}

// GetUserVoiceChannel returns the voice channel the user is in, or nil.
func (v *VoiceStateProvider) GetUserVoiceChannel(guildID, userID snowflake.ID) (*snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if vs.ChannelID == "" {
		return nil, nil
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return nil, err
	}
	return &channelID, nil
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
