package infrastructure

import (
	"context"
	"log/slog"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// TrackEndedFunc reacts to a track finishing naturally.
type TrackEndedFunc func(ctx context.Context, event domain.TrackEndedEvent) error

// MediaErrorFunc reacts to the media player failing a track.
type MediaErrorFunc func(ctx context.Context, event domain.TrackExceptionEvent) error

// PlaybackEventHandler turns media player events into queue progress.
type PlaybackEventHandler struct {
	trackEnded TrackEndedFunc
	mediaError MediaErrorFunc
	subscriber ports.EventSubscriber
	unsubs     []ports.Unsubscribe
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(
	trackEnded TrackEndedFunc,
	mediaError MediaErrorFunc,
	subscriber ports.EventSubscriber,
) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		trackEnded: trackEnded,
		mediaError: mediaError,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *PlaybackEventHandler) Start() {
	h.unsubs = append(h.unsubs,
		h.subscriber.OnTrackEnded(h.handleTrackEnded),
		h.subscriber.OnTrackException(h.handleTrackException),
	)

	slog.Debug("playback event handler started")
}

// Stop removes the handlers registered by Start.
func (h *PlaybackEventHandler) Stop() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

func (h *PlaybackEventHandler) handleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	slog.Debug("track ended, advancing queue", "guild", event.GuildID)

	if err := h.trackEnded(ctx, event); err != nil {
		slog.Error("failed to advance after track ended",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *PlaybackEventHandler) handleTrackException(ctx context.Context, event domain.TrackExceptionEvent) {
	slog.Warn("media player reported track exception",
		"guild", event.GuildID,
		"message", event.Message,
	)

	if err := h.mediaError(ctx, event); err != nil {
		slog.Error("failed to recover from track exception",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

// NotificationEventHandler posts player events to the guild's notification channel.
type NotificationEventHandler struct {
	notifier   ports.NotificationSender
	repo       domain.PlayerStateRepository
	subscriber ports.EventSubscriber
	unsubs     []ports.Unsubscribe
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	repo domain.PlayerStateRepository,
	subscriber ports.EventSubscriber,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier:   notifier,
		repo:       repo,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() {
	h.unsubs = append(h.unsubs,
		h.subscriber.OnPlaybackStarted(h.handlePlaybackStarted),
		h.subscriber.OnPlaybackFailed(h.handlePlaybackFailed),
		h.subscriber.OnSourceSwitch(h.handleSourceSwitch),
	)

	slog.Debug("notification event handler started")
}

// Stop removes the handlers registered by Start.
func (h *NotificationEventHandler) Stop() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

func (h *NotificationEventHandler) handlePlaybackStarted(_ context.Context, event domain.PlaybackStartedEvent) {
	// A newer track may already have replaced this one.
	state := h.repo.Get(event.GuildID)
	if state == nil {
		slog.Debug("skipping now playing notification, state not found", "guild", event.GuildID)
		return
	}
	state.Lock()
	current := state.CurrentTrack()
	stillCurrent := current != nil && current.Matches(&event.Track)
	state.Unlock()
	if !stillCurrent {
		slog.Debug("skipping now playing notification, track no longer current",
			"guild", event.GuildID,
			"track", event.Track.Name,
		)
		return
	}

	if err := h.notifier.SendNowPlaying(event.NotificationChannelID, event.Track); err != nil {
		slog.Error("failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handlePlaybackFailed(_ context.Context, event domain.PlaybackFailedEvent) {
	if event.NotificationChannelID == 0 {
		return
	}

	message := event.Message
	if event.Track.Name != "" {
		message = event.Track.Name + ": " + message
	}
	if event.WillAdvance {
		message += ". Skipping to the next track."
	}

	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send playback failure notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handleSourceSwitch(_ context.Context, event domain.SourceSwitchEvent) {
	if event.GuildID == 0 {
		slog.Info("source switched", "from", event.From, "to", event.To)
		return
	}

	state := h.repo.Get(event.GuildID)
	if state == nil {
		return
	}
	state.Lock()
	channelID := state.NotificationChannelID()
	state.Unlock()

	if err := h.notifier.SendSourceSwitch(channelID, event); err != nil {
		slog.Warn("failed to send source switch notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}
