package usecases

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sglre6355/tunebot/internal/metrics"
	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

const enrichTimeout = 10 * time.Second

// BestURLResolver yields a playable locator for a track, or false when none exists.
type BestURLResolver interface {
	ResolveBestURL(ctx context.Context, source domain.MusicSource, id string) (string, bool)
}

// PlayTrackInput contains the input for the PlayTrack use case.
type PlayTrackInput struct {
	GuildID  snowflake.ID
	Track    *domain.Track
	InsertAt *int // nil appends
}

// PlayListInput contains the input for the PlayList use case.
type PlayListInput struct {
	GuildID    snowflake.ID
	Tracks     []*domain.Track
	StartIndex int
}

// PlayOutput describes the track a play request ended up on.
type PlayOutput struct {
	Track   domain.Track
	Index   int
	Blocked bool // media output refused to start; use Resume once it can
}

// RemoveInput contains the input for the RemoveFromQueue use case.
type RemoveInput struct {
	GuildID snowflake.ID
	Index   int
}

// RemoveOutput contains the result of the RemoveFromQueue use case.
type RemoveOutput struct {
	Removed domain.Track
}

// PlayerSnapshot is a point-in-time copy of a guild player.
type PlayerSnapshot struct {
	Tracks       []domain.Track
	CurrentIndex int
	CurrentTrack *domain.Track
	IsPlaying    bool
	IsPaused     bool
	IsLoading    bool
	PlayMode     domain.PlayMode
	RetryCount   int
	LastError    string
	Volume       float64
	Position     time.Duration
	HasNext      bool
	HasPrev      bool
}

// PlaybackOption configures a PlaybackService.
type PlaybackOption func(*PlaybackService)

// WithMaxRetry sets how many failure-triggered advances may happen in a row.
func WithMaxRetry(n int) PlaybackOption {
	return func(p *PlaybackService) {
		p.maxRetry = n
	}
}

// WithRandom replaces the index picker of random mode.
func WithRandom(randIntN func(n int) int) PlaybackOption {
	return func(p *PlaybackService) {
		p.randIntN = randIntN
	}
}

// WithAsync replaces how background metadata enrichment is started.
func WithAsync(run func(func())) PlaybackOption {
	return func(p *PlaybackService) {
		p.async = run
	}
}

// PlaybackService keeps a guild playing: it resolves and starts tracks,
// moves through the queue and advances past broken tracks within a retry
// budget. State is locked per guild and never across network calls; a
// generation token discards results of superseded attempts.
type PlaybackService struct {
	repo      domain.PlayerStateRepository
	player    ports.MediaPlayer
	streams   BestURLResolver
	metadata  ports.LocatorResolver
	publisher ports.EventPublisher
	maxRetry  int
	randIntN  func(int) int
	async     func(func())
}

// NewPlaybackService creates a new PlaybackService. metadata and publisher may be nil.
func NewPlaybackService(
	repo domain.PlayerStateRepository,
	player ports.MediaPlayer,
	streams BestURLResolver,
	metadata ports.LocatorResolver,
	publisher ports.EventPublisher,
	opts ...PlaybackOption,
) *PlaybackService {
	p := &PlaybackService{
		repo:      repo,
		player:    player,
		streams:   streams,
		metadata:  metadata,
		publisher: publisher,
		maxRetry:  domain.DefaultMaxRetry,
		randIntN:  rand.IntN,
		async:     func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PlaybackService) state(guildID snowflake.ID) (*domain.PlayerState, error) {
	state := p.repo.Get(guildID)
	if state == nil {
		return nil, ErrNotConnected
	}
	return state, nil
}

// PlayTrack plays input.Track, seeking to it if it is already queued and
// inserting it otherwise.
func (p *PlaybackService) PlayTrack(ctx context.Context, input PlayTrackInput) (*PlayOutput, error) {
	insertAt := -1
	if input.InsertAt != nil {
		insertAt = *input.InsertAt
	}

	return p.play(ctx, input.GuildID, func(s *domain.PlayerState) error {
		s.Queue.InsertOrSeek(input.Track, insertAt)
		return nil
	})
}

// PlayList replaces the queue with input.Tracks and plays from input.StartIndex.
func (p *PlaybackService) PlayList(ctx context.Context, input PlayListInput) (*PlayOutput, error) {
	if len(input.Tracks) == 0 {
		return nil, ErrNoResults
	}

	return p.play(ctx, input.GuildID, func(s *domain.PlayerState) error {
		if !s.Queue.Replace(input.Tracks, input.StartIndex) {
			return ErrInvalidPosition
		}
		return nil
	})
}

// PlayAt plays the queue entry at index.
func (p *PlaybackService) PlayAt(ctx context.Context, guildID snowflake.ID, index int) (*PlayOutput, error) {
	return p.play(ctx, guildID, func(s *domain.PlayerState) error {
		if !s.Queue.Seek(index) {
			return ErrInvalidPosition
		}
		return nil
	})
}

// PlayNext plays the entry that follows the cursor under the current play mode.
// In list mode there is nothing after the last track and ErrEndOfQueue is returned.
func (p *PlaybackService) PlayNext(ctx context.Context, guildID snowflake.ID) (*PlayOutput, error) {
	return p.play(ctx, guildID, func(s *domain.PlayerState) error {
		return p.step(s, s.Queue.NextIndex)
	})
}

// PlayPrev plays the entry before the cursor under the current play mode.
func (p *PlaybackService) PlayPrev(ctx context.Context, guildID snowflake.ID) (*PlayOutput, error) {
	return p.play(ctx, guildID, func(s *domain.PlayerState) error {
		return p.step(s, s.Queue.PrevIndex)
	})
}

func (p *PlaybackService) step(
	s *domain.PlayerState,
	pick func(domain.PlayMode, func(int) int) (int, bool),
) error {
	if s.Queue.IsEmpty() {
		return ErrQueueEmpty
	}
	index, ok := pick(s.PlayMode(), p.randIntN)
	if !ok {
		return ErrEndOfQueue
	}
	s.Queue.Seek(index)
	return nil
}

// play moves the cursor with selectFn, then resolves and starts the entry under it.
func (p *PlaybackService) play(
	ctx context.Context,
	guildID snowflake.ID,
	selectFn func(*domain.PlayerState) error,
) (*PlayOutput, error) {
	state, err := p.state(guildID)
	if err != nil {
		return nil, err
	}
	ctx = domain.ContextWithGuildID(ctx, guildID)

	state.Lock()
	if err := selectFn(state); err != nil {
		state.Unlock()
		return nil, err
	}
	track := state.Queue.Current()
	if track == nil {
		state.Unlock()
		return nil, ErrQueueEmpty
	}
	gen := state.BeginLoading(track)
	source, id := track.Source, track.ID
	state.Unlock()

	slog.Info("resolving track", "guild", guildID, "source", source, "id", id)

	locator, ok := p.streams.ResolveBestURL(ctx, source, id)
	if !ok {
		return p.fail(ctx, state, gen, ErrNoPlaybackURL, ErrNoPlaybackURL.Error(), "no_url")
	}

	state.Lock()
	if !state.IsGeneration(gen) {
		state.Unlock()
		return nil, ErrSuperseded
	}
	track.PlayURL = locator
	state.Unlock()

	p.enrich(guildID, state, track)

	return p.start(ctx, state, gen, track, locator)
}

// start hands locator to the media player and records the outcome.
func (p *PlaybackService) start(
	ctx context.Context,
	state *domain.PlayerState,
	gen uint64,
	track *domain.Track,
	locator string,
) (*PlayOutput, error) {
	guildID := state.GuildID()

	info, err := p.player.Play(ctx, guildID, locator)

	state.Lock()
	if !state.IsGeneration(gen) {
		state.Unlock()
		return nil, ErrSuperseded
	}

	if errors.Is(err, ports.ErrPlaybackBlocked) {
		state.MarkFailed(msgPlaybackBlocked)
		out := &PlayOutput{Track: *track, Index: state.Queue.IndexOf(track.Key()), Blocked: true}
		state.Unlock()

		slog.Info("playback blocked", "guild", guildID, "id", track.ID)
		return out, nil
	}
	if err != nil {
		state.Unlock()
		return p.fail(ctx, state, gen, err, err.Error(), "media")
	}

	if info.Duration > 0 {
		track.Duration = info.Duration
	}
	state.MarkPlaying()
	volume := state.Volume()
	channelID := state.NotificationChannelID()
	out := &PlayOutput{Track: *track, Index: state.Queue.IndexOf(track.Key())}
	state.Unlock()

	if err := p.player.SetVolume(ctx, guildID, volume); err != nil {
		slog.Warn("failed to apply volume", "guild", guildID, "error", err)
	}

	slog.Info("playback started", "guild", guildID, "source", out.Track.Source, "id", out.Track.ID)

	if p.publisher != nil {
		p.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID:               guildID,
			NotificationChannelID: channelID,
			Track:                 out.Track,
		})
	}
	return out, nil
}

// fail records a hard failure of attempt gen and advances to the next entry
// while the retry budget allows it.
func (p *PlaybackService) fail(
	ctx context.Context,
	state *domain.PlayerState,
	gen uint64,
	cause error,
	message string,
	reason string,
) (*PlayOutput, error) {
	state.Lock()
	if !state.IsGeneration(gen) {
		state.Unlock()
		return nil, ErrSuperseded
	}
	// A cancelled caller says nothing about the track.
	if err := ctx.Err(); err != nil {
		state.MarkStopped()
		state.Unlock()
		slog.Debug("playback attempt abandoned", "guild", state.GuildID(), "error", err)
		return nil, err
	}
	state.MarkFailed(message)
	advance := state.ConsumeRetry(p.maxRetry)
	var track domain.Track
	if current := state.CurrentTrack(); current != nil {
		track = *current
	}
	channelID := state.NotificationChannelID()
	guildID := state.GuildID()
	state.Unlock()

	metrics.IncPlaybackFailure(reason)
	slog.Warn("playback failed",
		"guild", guildID,
		"source", track.Source,
		"id", track.ID,
		"error", cause,
		"will_advance", advance,
	)

	if p.publisher != nil {
		p.publisher.PublishPlaybackFailed(domain.PlaybackFailedEvent{
			GuildID:               guildID,
			NotificationChannelID: channelID,
			Track:                 track,
			Message:               message,
			WillAdvance:           advance,
		})
	}

	if !advance {
		return nil, cause
	}

	metrics.PlaybackAutoAdvanceTotal.Inc()
	out, err := p.PlayNext(ctx, guildID)
	if errors.Is(err, ErrEndOfQueue) {
		return nil, cause
	}
	return out, err
}

// enrich fills in missing cover art and lyrics in the background.
// Failures are logged and never affect playback.
func (p *PlaybackService) enrich(guildID snowflake.ID, state *domain.PlayerState, track *domain.Track) {
	if p.metadata == nil {
		return
	}

	state.Lock()
	needPic, needLyric := track.PicURL == "", track.Lyric == ""
	source, id := track.Source, track.ID
	state.Unlock()

	if !needPic && !needLyric {
		return
	}

	p.async(func() {
		ctx, cancel := context.WithTimeout(
			domain.ContextWithGuildID(context.Background(), guildID),
			enrichTimeout,
		)
		defer cancel()

		var pic, lyric string
		var g errgroup.Group
		if needPic {
			g.Go(func() error {
				var err error
				if pic, err = p.metadata.CoverURL(ctx, source, id); err != nil {
					slog.Debug("failed to load cover", "source", source, "id", id, "error", err)
				}
				return nil
			})
		}
		if needLyric {
			g.Go(func() error {
				var err error
				if lyric, err = p.metadata.Lyric(ctx, source, id); err != nil {
					slog.Debug("failed to load lyric", "source", source, "id", id, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()

		state.Lock()
		defer state.Unlock()
		if pic != "" && track.PicURL == "" {
			track.PicURL = pic
		}
		if lyric != "" && track.Lyric == "" {
			track.Lyric = lyric
		}
	})
}

// HandleTrackEnded reacts to the natural end of the current track. A single
// track in loop mode starts over; anything else moves on like PlayNext.
func (p *PlaybackService) HandleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) error {
	state, err := p.state(event.GuildID)
	if err != nil {
		return err
	}

	state.Lock()
	current := state.CurrentTrack()
	if current == nil || !matchesLocator(current, event.Locator) {
		state.Unlock()
		slog.Debug("ignoring end of stale track", "guild", event.GuildID)
		return nil
	}

	if state.PlayMode() == domain.PlayModeLoop && state.Queue.Len() == 1 {
		gen := state.BeginLoading(current)
		locator := current.PlayURL
		state.Unlock()

		_, err := p.start(domain.ContextWithGuildID(ctx, event.GuildID), state, gen, current, locator)
		return ignoreSuperseded(err)
	}
	state.Unlock()

	_, err = p.PlayNext(ctx, event.GuildID)
	if errors.Is(err, ErrEndOfQueue) || errors.Is(err, ErrQueueEmpty) {
		state.Lock()
		state.MarkStopped()
		state.Unlock()
		slog.Info("reached end of queue", "guild", event.GuildID)
		return nil
	}
	return ignoreSuperseded(err)
}

// HandleMediaError reacts to the media player failing the current track.
func (p *PlaybackService) HandleMediaError(ctx context.Context, event domain.TrackExceptionEvent) error {
	state, err := p.state(event.GuildID)
	if err != nil {
		return err
	}

	state.Lock()
	current := state.CurrentTrack()
	if current == nil || !matchesLocator(current, event.Locator) {
		state.Unlock()
		return nil
	}
	gen := state.Generation()
	state.Unlock()

	cause := errors.New(event.Message)
	_, err = p.fail(domain.ContextWithGuildID(ctx, event.GuildID), state, gen, cause, msgPlaybackError, "media_error")
	if errors.Is(err, cause) {
		return nil
	}
	return ignoreSuperseded(err)
}

// matchesLocator reports whether a media event belongs to track. Events
// without a locator cannot be attributed and are treated as stale.
func matchesLocator(track *domain.Track, locator string) bool {
	return locator != "" && track.PlayURL == locator
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// RemoveFromQueue removes the entry at index. Removing the entry under the
// cursor makes the entry that takes its place current, playing it if output
// was active, or stops when the queue is left empty.
func (p *PlaybackService) RemoveFromQueue(ctx context.Context, input RemoveInput) (*RemoveOutput, error) {
	state, err := p.state(input.GuildID)
	if err != nil {
		return nil, err
	}

	state.Lock()
	wasActive := state.IsPlaying() || state.IsLoading()
	removed, wasCurrent := state.Queue.RemoveAt(input.Index)
	if removed == nil {
		state.Unlock()
		return nil, ErrInvalidPosition
	}
	out := &RemoveOutput{Removed: *removed}

	if !wasCurrent {
		state.Unlock()
		return out, nil
	}

	if state.Queue.IsEmpty() {
		state.ClearCurrent()
		state.Unlock()
		p.stop(ctx, input.GuildID)
		return out, nil
	}
	if !wasActive {
		state.SelectCurrent(state.Queue.Current())
		state.Unlock()
		p.stop(ctx, input.GuildID)
		return out, nil
	}
	state.Unlock()

	if _, err := p.play(ctx, input.GuildID, func(*domain.PlayerState) error { return nil }); err != nil {
		slog.Warn("failed to play after removing current track", "guild", input.GuildID, "error", err)
	}
	return out, nil
}

// ClearQueue empties the queue and stops output.
func (p *PlaybackService) ClearQueue(ctx context.Context, guildID snowflake.ID) error {
	state, err := p.state(guildID)
	if err != nil {
		return err
	}

	state.Lock()
	state.Queue.Clear()
	state.ClearCurrent()
	state.Unlock()

	p.stop(ctx, guildID)
	return nil
}

func (p *PlaybackService) stop(ctx context.Context, guildID snowflake.ID) {
	if err := p.player.Stop(ctx, guildID); err != nil {
		slog.Warn("failed to stop media player", "guild", guildID, "error", err)
	}
}

// Pause pauses output.
func (p *PlaybackService) Pause(ctx context.Context, guildID snowflake.ID) error {
	state, err := p.state(guildID)
	if err != nil {
		return err
	}

	state.Lock()
	if state.CurrentTrack() == nil {
		state.Unlock()
		return ErrNotPlaying
	}
	if !state.IsPlaying() {
		state.Unlock()
		return nil
	}
	state.Unlock()

	if err := p.player.Pause(ctx, guildID); err != nil {
		return err
	}

	state.Lock()
	state.MarkPaused()
	state.Unlock()
	return nil
}

// Resume resumes paused output, or starts the current track if output was
// never started or has stopped.
func (p *PlaybackService) Resume(ctx context.Context, guildID snowflake.ID) error {
	state, err := p.state(guildID)
	if err != nil {
		return err
	}

	state.Lock()
	current := state.CurrentTrack()
	if current == nil {
		state.Unlock()
		return ErrNotPlaying
	}
	if state.IsPlaying() || state.IsLoading() {
		state.Unlock()
		return nil
	}

	if state.IsPaused() {
		state.Unlock()
		if err := p.player.Resume(ctx, guildID); err != nil {
			return err
		}
		state.Lock()
		state.MarkResumed()
		state.Unlock()
		return nil
	}

	locator := current.PlayURL
	if locator == "" {
		state.Unlock()
		_, err := p.play(ctx, guildID, func(*domain.PlayerState) error { return nil })
		return ignoreSuperseded(err)
	}
	gen := state.BeginLoading(current)
	state.Unlock()

	_, err = p.start(domain.ContextWithGuildID(ctx, guildID), state, gen, current, locator)
	return ignoreSuperseded(err)
}

// TogglePlay pauses when playing and resumes otherwise.
// Returns whether output is playing afterwards.
func (p *PlaybackService) TogglePlay(ctx context.Context, guildID snowflake.ID) (bool, error) {
	state, err := p.state(guildID)
	if err != nil {
		return false, err
	}

	state.Lock()
	playing := state.IsPlaying()
	state.Unlock()

	if playing {
		return false, p.Pause(ctx, guildID)
	}
	if err := p.Resume(ctx, guildID); err != nil {
		return false, err
	}

	state.Lock()
	defer state.Unlock()
	return state.IsPlaying(), nil
}

// SetVolume clamps volume into [0, 1] and applies it. Returns the stored value.
func (p *PlaybackService) SetVolume(ctx context.Context, guildID snowflake.ID, volume float64) (float64, error) {
	state, err := p.state(guildID)
	if err != nil {
		return 0, err
	}

	state.Lock()
	volume = state.SetVolume(volume)
	state.Unlock()

	if err := p.player.SetVolume(ctx, guildID, volume); err != nil {
		slog.Warn("failed to apply volume", "guild", guildID, "error", err)
	}
	return volume, nil
}

// Seek moves output of the current track to position, clamped to the track length.
func (p *PlaybackService) Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) (time.Duration, error) {
	state, err := p.state(guildID)
	if err != nil {
		return 0, err
	}

	state.Lock()
	current := state.CurrentTrack()
	if current == nil {
		state.Unlock()
		return 0, ErrNotPlaying
	}
	position = max(position, 0)
	if current.Duration > 0 {
		position = min(position, current.Duration)
	}
	state.SetPosition(position)
	state.Unlock()

	if err := p.player.Seek(ctx, guildID, position); err != nil {
		slog.Warn("failed to seek", "guild", guildID, "error", err)
	}
	return position, nil
}

// SetPlayMode sets the play mode.
func (p *PlaybackService) SetPlayMode(guildID snowflake.ID, mode domain.PlayMode) error {
	state, err := p.state(guildID)
	if err != nil {
		return err
	}

	state.Lock()
	state.SetPlayMode(mode)
	state.Unlock()
	return nil
}

// TogglePlayMode cycles list -> loop -> random and returns the new mode.
func (p *PlaybackService) TogglePlayMode(guildID snowflake.ID) (domain.PlayMode, error) {
	state, err := p.state(guildID)
	if err != nil {
		return domain.PlayModeList, err
	}

	state.Lock()
	defer state.Unlock()
	return state.CyclePlayMode(), nil
}

// Snapshot returns a copy of the guild player state.
func (p *PlaybackService) Snapshot(guildID snowflake.ID) (*PlayerSnapshot, error) {
	state, err := p.state(guildID)
	if err != nil {
		return nil, err
	}

	state.Lock()
	defer state.Unlock()

	tracks := state.Queue.List()
	snap := &PlayerSnapshot{
		Tracks:       make([]domain.Track, len(tracks)),
		CurrentIndex: state.Queue.CurrentIndex(),
		IsPlaying:    state.IsPlaying(),
		IsPaused:     state.IsPaused(),
		IsLoading:    state.IsLoading(),
		PlayMode:     state.PlayMode(),
		RetryCount:   state.RetryCount(),
		LastError:    state.LastError(),
		Volume:       state.Volume(),
		Position:     state.Position(),
		HasNext:      state.HasNext(),
		HasPrev:      state.HasPrev(),
	}
	for i, t := range tracks {
		snap.Tracks[i] = *t
	}
	if current := state.CurrentTrack(); current != nil {
		c := *current
		snap.CurrentTrack = &c
	}
	return snap, nil
}
