package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

var (
	testGuildID        = snowflake.ID(1)
	testVoiceChannelID = snowflake.ID(2)
	testTextChannelID  = snowflake.ID(3)
)

func mockTrack(id string) *domain.Track {
	return &domain.Track{
		ID:     id,
		Name:   "Track " + id,
		Artist: "Artist",
		Source: domain.MusicSourceNetease,
	}
}

func locatorFor(id string) string {
	return "https://cdn.example/" + id + ".mp3"
}

type mockRepository struct {
	states  map[snowflake.ID]*domain.PlayerState
	deleted []snowflake.ID
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		states: make(map[snowflake.ID]*domain.PlayerState),
	}
}

func (m *mockRepository) Get(guildID snowflake.ID) *domain.PlayerState {
	return m.states[guildID]
}

func (m *mockRepository) Save(state *domain.PlayerState) {
	m.states[state.GuildID()] = state
}

func (m *mockRepository) Delete(guildID snowflake.ID) {
	m.deleted = append(m.deleted, guildID)
	delete(m.states, guildID)
}

// createConnectedState creates a PlayerState holding the given tracks and saves it.
func (m *mockRepository) createConnectedState(tracks ...*domain.Track) *domain.PlayerState {
	state := domain.NewPlayerState(testGuildID, testVoiceChannelID, testTextChannelID)
	for _, t := range tracks {
		state.Queue.InsertOrSeek(t, -1)
	}
	state.Queue.Seek(0)
	m.Save(state)
	return state
}

type mockMediaPlayer struct {
	played   []string
	playFn   func(locator string) (ports.PlaybackInfo, error)
	stops    int
	pauses   int
	resumes  int
	seeks    []time.Duration
	volumes  []float64
	pauseErr error
}

func (m *mockMediaPlayer) Play(_ context.Context, _ snowflake.ID, locator string) (ports.PlaybackInfo, error) {
	m.played = append(m.played, locator)
	if m.playFn != nil {
		return m.playFn(locator)
	}
	return ports.PlaybackInfo{Duration: 3 * time.Minute}, nil
}

func (m *mockMediaPlayer) Stop(_ context.Context, _ snowflake.ID) error {
	m.stops++
	return nil
}

func (m *mockMediaPlayer) Pause(_ context.Context, _ snowflake.ID) error {
	m.pauses++
	return m.pauseErr
}

func (m *mockMediaPlayer) Resume(_ context.Context, _ snowflake.ID) error {
	m.resumes++
	return nil
}

func (m *mockMediaPlayer) Seek(_ context.Context, _ snowflake.ID, position time.Duration) error {
	m.seeks = append(m.seeks, position)
	return nil
}

func (m *mockMediaPlayer) SetVolume(_ context.Context, _ snowflake.ID, volume float64) error {
	m.volumes = append(m.volumes, volume)
	return nil
}

// mockURLResolver resolves every id to locatorFor(id) unless it is listed in failing.
type mockURLResolver struct {
	failing  map[string]bool
	requests []string
	hook     func(id string)
}

func (m *mockURLResolver) ResolveBestURL(_ context.Context, _ domain.MusicSource, id string) (string, bool) {
	m.requests = append(m.requests, id)
	if m.hook != nil {
		m.hook(id)
	}
	if m.failing[id] {
		return "", false
	}
	return locatorFor(id), true
}

type streamCall struct {
	source  domain.MusicSource
	bitrate domain.BitRate
}

// mockLocatorResolver serves stream URLs only for the listed (source, bitrate) pairs.
type mockLocatorResolver struct {
	streams     map[streamCall]string
	streamCalls []streamCall
	cover       string
	lyric       string
	coverErr    error
	lyricCalls  int
	coverCalls  int
}

func (m *mockLocatorResolver) StreamURL(
	_ context.Context,
	source domain.MusicSource,
	_ string,
	br domain.BitRate,
) (string, error) {
	call := streamCall{source: source, bitrate: br}
	m.streamCalls = append(m.streamCalls, call)
	if url, ok := m.streams[call]; ok {
		return url, nil
	}
	return "", errors.New("not available")
}

func (m *mockLocatorResolver) CoverURL(_ context.Context, _ domain.MusicSource, _ string) (string, error) {
	m.coverCalls++
	return m.cover, m.coverErr
}

func (m *mockLocatorResolver) Lyric(_ context.Context, _ domain.MusicSource, _ string) (string, error) {
	m.lyricCalls++
	return m.lyric, nil
}

func (m *mockLocatorResolver) TrackInfo(_ context.Context, source domain.MusicSource, id string) (*ports.TrackInfo, error) {
	return &ports.TrackInfo{ID: id, Source: source}, nil
}

type mockEventPublisher struct {
	sourceSwitches  []domain.SourceSwitchEvent
	playbackStarted []domain.PlaybackStartedEvent
	playbackFailed  []domain.PlaybackFailedEvent
	trackEnded      []domain.TrackEndedEvent
	trackExceptions []domain.TrackExceptionEvent
}

func (m *mockEventPublisher) PublishSourceSwitch(event domain.SourceSwitchEvent) {
	m.sourceSwitches = append(m.sourceSwitches, event)
}

func (m *mockEventPublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	m.playbackStarted = append(m.playbackStarted, event)
}

func (m *mockEventPublisher) PublishPlaybackFailed(event domain.PlaybackFailedEvent) {
	m.playbackFailed = append(m.playbackFailed, event)
}

func (m *mockEventPublisher) PublishTrackEnded(event domain.TrackEndedEvent) {
	m.trackEnded = append(m.trackEnded, event)
}

func (m *mockEventPublisher) PublishTrackException(event domain.TrackExceptionEvent) {
	m.trackExceptions = append(m.trackExceptions, event)
}

type mockVoiceConnection struct {
	joined   []snowflake.ID
	left     int
	joinErr  error
	leaveErr error
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	m.left++
	return m.leaveErr
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(_, userID snowflake.ID) (*snowflake.ID, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch, ok := m.channels[userID]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

type mockListingFetcher struct {
	items       []ports.ListingItem
	err         error
	aggregate   int
	bySource    []domain.MusicSource
	lastKeyword string
}

func (m *mockListingFetcher) AggregateSearch(_ context.Context, keyword string, _ ports.Page) ([]ports.ListingItem, error) {
	m.aggregate++
	m.lastKeyword = keyword
	return m.items, m.err
}

func (m *mockListingFetcher) Search(
	_ context.Context,
	source domain.MusicSource,
	keyword string,
	_ ports.Page,
) ([]ports.ListingItem, error) {
	m.bySource = append(m.bySource, source)
	m.lastKeyword = keyword
	return m.items, m.err
}

func (m *mockListingFetcher) Toplists(_ context.Context, _ domain.MusicSource) ([]ports.Toplist, error) {
	return nil, m.err
}

func (m *mockListingFetcher) ToplistTracks(_ context.Context, _ domain.MusicSource, _ string) ([]ports.ListingItem, error) {
	return m.items, m.err
}

func (m *mockListingFetcher) PlaylistTracks(_ context.Context, _ domain.MusicSource, _ string) ([]ports.ListingItem, error) {
	return m.items, m.err
}

// newTestPlaybackService wires a PlaybackService whose enrichment runs inline.
func newTestPlaybackService(
	repo *mockRepository,
	player *mockMediaPlayer,
	urls *mockURLResolver,
	publisher *mockEventPublisher,
	opts ...PlaybackOption,
) *PlaybackService {
	opts = append([]PlaybackOption{WithAsync(func(f func()) { f() })}, opts...)
	return NewPlaybackService(repo, player, urls, nil, publisher, opts...)
}
