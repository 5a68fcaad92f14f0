package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

var errNoNode = errors.New("no available Lavalink node")

// voiceSession collects the two halves of a Discord voice handshake for one
// guild. Lavalink rejects partial voice state, so nothing is forwarded until
// both VoiceStateUpdate and VoiceServerUpdate have arrived.
type voiceSession struct {
	mu sync.Mutex

	haveState bool
	channelID *snowflake.ID
	sessionID string

	haveServer bool
	token      string
	endpoint   string

	ready chan struct{} // closed when both halves arrived; nil while nobody waits
}

type voiceHandshake struct {
	channelID *snowflake.ID
	sessionID string
	token     string
	endpoint  string
}

// wait returns a channel closed once the next complete handshake is taken.
func (s *voiceSession) wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready == nil {
		s.ready = make(chan struct{})
	}
	return s.ready
}

func (s *voiceSession) setState(channelID *snowflake.ID, sessionID string) (voiceHandshake, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.haveState = true
	s.channelID = channelID
	s.sessionID = sessionID
	return s.takeLocked()
}

func (s *voiceSession) setServer(token, endpoint string) (voiceHandshake, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.haveServer = true
	s.token = token
	s.endpoint = endpoint
	return s.takeLocked()
}

func (s *voiceSession) takeLocked() (voiceHandshake, bool) {
	if !s.haveState || !s.haveServer {
		return voiceHandshake{}, false
	}

	h := voiceHandshake{
		channelID: s.channelID,
		sessionID: s.sessionID,
		token:     s.token,
		endpoint:  s.endpoint,
	}
	s.haveState, s.channelID, s.sessionID = false, nil, ""
	s.haveServer, s.token, s.endpoint = false, "", ""
	if s.ready != nil {
		close(s.ready)
		s.ready = nil
	}
	return h, true
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// LavalinkAdapter streams resolved track locators through Lavalink and
// manages the bot's voice connections.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	sessionsMu sync.Mutex
	sessions   map[snowflake.ID]*voiceSession

	publisher ports.EventPublisher
}

// NewLavalinkAdapter creates a new LavalinkAdapter and connects to the node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:  session,
		botID:    botID,
		sessions: make(map[snowflake.ID]*voiceSession),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// SetEventPublisher sets where track end and failure events are published.
func (c *LavalinkAdapter) SetEventPublisher(publisher ports.EventPublisher) {
	c.publisher = publisher
}

// Close disconnects from all Lavalink nodes.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel connects to a voice channel.
// It waits for the voice handshake to complete before returning.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	ready := c.voiceSession(guildID).wait()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, false)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return errors.New("timeout waiting for voice connection")
	}
}

// LeaveChannel disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	if err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play loads locator through Lavalink's HTTP source and starts it.
// Returns ports.ErrPlaybackBlocked when the bot has no voice connection.
func (c *LavalinkAdapter) Play(
	ctx context.Context,
	guildID snowflake.ID,
	locator string,
) (ports.PlaybackInfo, error) {
	player := c.link.ExistingPlayer(guildID)
	if player == nil || player.ChannelID() == nil {
		return ports.PlaybackInfo{}, ports.ErrPlaybackBlocked
	}

	node := c.link.BestNode()
	if node == nil {
		return ports.PlaybackInfo{}, errNoNode
	}

	result, err := node.LoadTracks(ctx, locator)
	if err != nil {
		return ports.PlaybackInfo{}, fmt.Errorf("failed to load stream: %w", err)
	}

	track, err := firstTrack(result)
	if err != nil {
		return ports.PlaybackInfo{}, err
	}

	if err := player.Update(ctx,
		lavalink.WithEncodedTrack(track.Encoded),
		lavalink.WithPaused(false),
	); err != nil {
		return ports.PlaybackInfo{}, fmt.Errorf("failed to play track: %w", err)
	}

	return ports.PlaybackInfo{
		Duration: time.Duration(track.Info.Length) * time.Millisecond,
		IsStream: track.Info.IsStream,
	}, nil
}

func firstTrack(result *lavalink.LoadResult) (lavalink.Track, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return data, nil
	case lavalink.Search:
		if len(data) > 0 {
			return data[0], nil
		}
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[0], nil
		}
	case lavalink.Exception:
		return lavalink.Track{}, fmt.Errorf("failed to load stream: %s", data.Message)
	}
	return lavalink.Track{}, errors.New("stream has no playable audio")
}

// Stop stops the current playback.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID) error {
	player := c.link.ExistingPlayer(guildID)
	if player == nil {
		return nil
	}

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// Pause pauses the current playback.
func (c *LavalinkAdapter) Pause(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// Resume resumes the current playback.
func (c *LavalinkAdapter) Resume(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

// Seek moves playback of the current track to position.
func (c *LavalinkAdapter) Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) error {
	err := c.link.Player(guildID).Update(ctx, lavalink.WithPosition(lavalink.Duration(position.Milliseconds())))
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// SetVolume sets the output volume, where 1 is unattenuated.
func (c *LavalinkAdapter) SetVolume(ctx context.Context, guildID snowflake.ID, volume float64) error {
	// Lavalink volume is a percentage.
	err := c.link.Player(guildID).Update(ctx, lavalink.WithVolume(int(math.Round(volume*100))))
	if err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	if h, ok := c.voiceSession(guildID).setServer(event.Token, event.Endpoint); ok {
		c.forwardVoice(guildID, h)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates of the bot.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// An empty channel means the bot disconnected; there is no server half to wait for.
	if event.ChannelID == "" {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.sessionsMu.Lock()
		delete(c.sessions, guildID)
		c.sessionsMu.Unlock()
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	if h, ok := c.voiceSession(guildID).setState(&channelID, event.SessionID); ok {
		c.forwardVoice(guildID, h)
	}
}

func (c *LavalinkAdapter) voiceSession(guildID snowflake.ID) *voiceSession {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	s, ok := c.sessions[guildID]
	if !ok {
		s = &voiceSession{}
		c.sessions[guildID] = s
	}
	return s
}

func (c *LavalinkAdapter) forwardVoice(guildID snowflake.ID, h voiceHandshake) {
	slog.Debug("forwarding voice handshake to Lavalink",
		"guild", guildID,
		"channel", h.channelID,
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, h.channelID, h.sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, h.token, h.endpoint)
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if c.publisher == nil {
		return
	}

	locator := trackLocator(event.Track)
	switch event.Reason {
	case lavalink.TrackEndReasonFinished:
		c.publisher.PublishTrackEnded(domain.TrackEndedEvent{GuildID: player.GuildID(), Locator: locator})
	case lavalink.TrackEndReasonLoadFailed:
		c.publisher.PublishTrackException(domain.TrackExceptionEvent{
			GuildID: player.GuildID(),
			Locator: locator,
			Message: "track failed to load",
		})
	}
}

func (c *LavalinkAdapter) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	// Lavalink follows up with a load failed TrackEndEvent.
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	if c.publisher != nil {
		c.publisher.PublishTrackException(domain.TrackExceptionEvent{
			GuildID: player.GuildID(),
			Locator: trackLocator(event.Track),
			Message: "track stuck",
		})
	}
}

func trackLocator(track lavalink.Track) string {
	if track.Info.URI == nil {
		return ""
	}
	return *track.Info.URI
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.MediaPlayer     = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
)
