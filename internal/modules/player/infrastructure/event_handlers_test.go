package infrastructure

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// mockNotifier is a test double for ports.NotificationSender.
type mockNotifier struct {
	mu             sync.Mutex
	sentNowPlaying []domain.Track
	sentSwitches   []snowflake.ID
	sentErrors     []string
	sent           chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{sent: make(chan struct{}, 10)}
}

func (m *mockNotifier) SendNowPlaying(_ snowflake.ID, track domain.Track) error {
	m.mu.Lock()
	m.sentNowPlaying = append(m.sentNowPlaying, track)
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *mockNotifier) SendSourceSwitch(channelID snowflake.ID, _ domain.SourceSwitchEvent) error {
	m.mu.Lock()
	m.sentSwitches = append(m.sentSwitches, channelID)
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *mockNotifier) SendError(_ snowflake.ID, message string) error {
	m.mu.Lock()
	m.sentErrors = append(m.sentErrors, message)
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *mockNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.sent:
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for notification")
	}
}

func (m *mockNotifier) expectNone(t *testing.T) {
	t.Helper()
	select {
	case <-m.sent:
		t.Error("unexpected notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func newConnectedState(repo *MemoryRepository, tracks ...*domain.Track) *domain.PlayerState {
	state := domain.NewPlayerState(snowflake.ID(1), snowflake.ID(100), snowflake.ID(200))
	for _, track := range tracks {
		state.Queue.InsertOrSeek(track, -1)
	}
	repo.Save(state)
	return state
}

func testTrack(id string) *domain.Track {
	return &domain.Track{ID: id, Name: "Track " + id, Artist: "Artist", Source: domain.MusicSourceNetease}
}

func TestPlaybackEventHandler_RoutesMediaEvents(t *testing.T) {
	bus := NewChannelEventBus(10)
	defer bus.Close()

	ended := make(chan domain.TrackEndedEvent, 1)
	failed := make(chan domain.TrackExceptionEvent, 1)

	handler := NewPlaybackEventHandler(
		func(_ context.Context, e domain.TrackEndedEvent) error {
			ended <- e
			return nil
		},
		func(_ context.Context, e domain.TrackExceptionEvent) error {
			failed <- e
			return errors.New("already stopped")
		},
		bus,
	)
	handler.Start()
	defer handler.Stop()

	bus.PublishTrackEnded(domain.TrackEndedEvent{GuildID: 1, Locator: "https://a"})
	bus.PublishTrackException(domain.TrackExceptionEvent{GuildID: 1, Message: "decode"})

	select {
	case e := <-ended:
		if e.Locator != "https://a" {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for track ended")
	}
	select {
	case e := <-failed:
		if e.Message != "decode" {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for track exception")
	}
}

func TestPlaybackEventHandler_Stop(t *testing.T) {
	bus := NewChannelEventBus(10)
	defer bus.Close()

	ended := make(chan struct{}, 1)
	handler := NewPlaybackEventHandler(
		func(context.Context, domain.TrackEndedEvent) error {
			ended <- struct{}{}
			return nil
		},
		func(context.Context, domain.TrackExceptionEvent) error { return nil },
		bus,
	)
	handler.Start()
	handler.Stop()

	bus.PublishTrackEnded(domain.TrackEndedEvent{GuildID: 1})

	select {
	case <-ended:
		t.Error("handler called after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotificationEventHandler_PlaybackStarted(t *testing.T) {
	bus := NewChannelEventBus(10)
	defer bus.Close()

	repo := NewMemoryRepository()
	a, b := testTrack("a"), testTrack("b")
	state := newConnectedState(repo, a, b)
	state.Lock()
	state.BeginLoading(b)
	state.MarkPlaying()
	state.Unlock()

	notifier := newMockNotifier()
	handler := NewNotificationEventHandler(notifier, repo, bus)
	handler.Start()
	defer handler.Stop()

	// a was replaced by b before the event was handled.
	bus.PublishPlaybackStarted(domain.PlaybackStartedEvent{GuildID: 1, NotificationChannelID: 200, Track: *a})
	notifier.expectNone(t)

	bus.PublishPlaybackStarted(domain.PlaybackStartedEvent{GuildID: 1, NotificationChannelID: 200, Track: *b})
	notifier.wait(t)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sentNowPlaying) != 1 || notifier.sentNowPlaying[0].ID != "b" {
		t.Errorf("expected now playing for b, got %+v", notifier.sentNowPlaying)
	}
}

func TestNotificationEventHandler_PlaybackFailed(t *testing.T) {
	bus := NewChannelEventBus(10)
	defer bus.Close()

	notifier := newMockNotifier()
	handler := NewNotificationEventHandler(notifier, NewMemoryRepository(), bus)
	handler.Start()
	defer handler.Stop()

	bus.PublishPlaybackFailed(domain.PlaybackFailedEvent{
		GuildID:               1,
		NotificationChannelID: 200,
		Track:                 *testTrack("a"),
		Message:               "failed to get playback URL",
		WillAdvance:           true,
	})
	notifier.wait(t)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sentErrors) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.sentErrors)
	}
	msg := notifier.sentErrors[0]
	if !strings.HasPrefix(msg, "Track a: failed to get playback URL") || !strings.Contains(msg, "Skipping") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestNotificationEventHandler_SourceSwitch(t *testing.T) {
	bus := NewChannelEventBus(10)
	defer bus.Close()

	repo := NewMemoryRepository()
	newConnectedState(repo)
	notifier := newMockNotifier()
	handler := NewNotificationEventHandler(notifier, repo, bus)
	handler.Start()
	defer handler.Stop()

	// Requests outside a guild are only logged.
	bus.PublishSourceSwitch(domain.SourceSwitchEvent{From: domain.MusicSourceQQ, To: domain.MusicSourceKuwo})
	notifier.expectNone(t)

	bus.PublishSourceSwitch(domain.SourceSwitchEvent{
		GuildID: 1,
		From:    domain.MusicSourceQQ,
		To:      domain.MusicSourceKuwo,
	})
	notifier.wait(t)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sentSwitches) != 1 || notifier.sentSwitches[0] != snowflake.ID(200) {
		t.Errorf("expected switch notice in channel 200, got %v", notifier.sentSwitches)
	}
}
