// Package player provides the music player module: provider search,
// stream resolution with source and quality fallback, and queue playback
// through a Lavalink node.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/player/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/player/infrastructure"
	"github.com/sglre6355/tunebot/internal/modules/player/infrastructure/tunehub"
	"github.com/sglre6355/tunebot/internal/modules/player/presentation/discord"
)

const lavalinkConnectTimeout = 30 * time.Second

func init() {
	bot.Register(&Module{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// Module provides music playback commands.
type Module struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers
	lavalinkAdapter *infrastructure.LavalinkAdapter

	// Event-driven components
	eventBus            *infrastructure.ChannelEventBus
	playbackHandler     *infrastructure.PlaybackEventHandler
	notificationHandler *infrastructure.NotificationEventHandler
}

// Name returns the module name.
func (m *Module) Name() string {
	return "player"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":   m.commandHandlers.HandleJoin,
		"leave":  m.commandHandlers.HandleLeave,
		"play":   m.commandHandlers.HandlePlay,
		"next":   m.commandHandlers.HandleNext,
		"prev":   m.commandHandlers.HandlePrev,
		"pause":  m.commandHandlers.HandlePause,
		"resume": m.commandHandlers.HandleResume,
		"queue":  m.commandHandlers.HandleQueue,
		"mode":   m.commandHandlers.HandleMode,
		"volume": m.commandHandlers.HandleVolume,
		"seek":   m.commandHandlers.HandleSeek,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.eventHandlers != nil {
				m.eventHandlers.HandleVoiceServerUpdate(s, event)
			}
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.eventHandlers != nil {
				m.eventHandlers.HandleVoiceStateUpdate(s, event)
			}
		},
	}
}

// LoadConfig loads the player configuration from the bot's config file and
// the environment.
func (m *Module) LoadConfig(cfg *bot.Config) error {
	config, err := LoadConfig(cfg.Path)
	if err != nil {
		return err
	}
	if err := config.ValidateLavalink(); err != nil {
		return err
	}
	m.config = config
	return nil
}

// Init wires the module. It requires a connected session.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return errors.New("player module requires a connected Discord session")
	}
	if m.config == nil {
		m.config = DefaultConfig()
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot ID: %w", err)
	}

	// Create event bus (needed by the transport and Lavalink adapter for publishing events)
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	// Create Lavalink adapter
	ctx, cancel := context.WithTimeout(context.Background(), lavalinkConnectTimeout)
	defer cancel()

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(ctx, deps.Session, m.config.lavalinkConfig())
	if err != nil {
		m.eventBus.Close()
		return err
	}
	lavalinkAdapter.SetEventPublisher(m.eventBus)
	m.lavalinkAdapter = lavalinkAdapter

	// Create infrastructure
	transport := tunehub.NewTransport(
		m.config.TransportConfig(),
		tunehub.WithSourceSwitchPublisher(m.eventBus),
	)
	client := tunehub.NewClient(transport)
	repo := infrastructure.NewMemoryRepository()
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)

	// Create services
	streams := usecases.NewStreamResolver(client, m.eventBus)
	playback := usecases.NewPlaybackService(
		repo,
		lavalinkAdapter,
		streams,
		client,
		m.eventBus,
		usecases.WithMaxRetry(m.config.MaxRetry),
	)
	voiceChannel := usecases.NewVoiceChannelService(
		repo,
		lavalinkAdapter,
		voiceState,
		lavalinkAdapter,
		m.config.DefaultVolume,
	)
	queue := usecases.NewQueueService(repo)
	listing := usecases.NewListingService(client)

	// Register event handlers
	m.playbackHandler = infrastructure.NewPlaybackEventHandler(
		playback.HandleTrackEnded,
		playback.HandleMediaError,
		m.eventBus,
	)
	m.notificationHandler = infrastructure.NewNotificationEventHandler(notifier, repo, m.eventBus)
	m.playbackHandler.Start()
	m.notificationHandler.Start()

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(voiceChannel, playback, queue, listing)
	m.eventHandlers = discord.NewEventHandlers(botID, voiceChannel, lavalinkAdapter)

	slog.Info("player module initialized",
		"tunehub", transport.CurrentEndpoint(),
		"lavalink", m.config.Lavalink.Address,
		"max_retry", m.config.MaxRetry,
	)

	return nil
}

// Shutdown cleans up module resources.
func (m *Module) Shutdown() error {
	if m.playbackHandler != nil {
		m.playbackHandler.Stop()
	}
	if m.notificationHandler != nil {
		m.notificationHandler.Stop()
	}

	// Close event bus
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	// Close Lavalink connection
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	return nil
}
