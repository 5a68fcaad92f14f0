package domain

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	// DefaultVolume is the initial output volume of a new player.
	DefaultVolume = 0.8
	// DefaultMaxRetry bounds consecutive automatic advances after failures.
	DefaultMaxRetry = 2
)

// PlayerState is the playback state of a single guild.
// Callers serialize access through Lock and Unlock; none of the accessors lock.
type PlayerState struct {
	mu sync.Mutex

	guildID               snowflake.ID
	voiceChannelID        snowflake.ID // Voice channel the bot is connected to
	notificationChannelID snowflake.ID // Text channel for notifications
	Queue                 Queue

	currentTrack *Track
	isPlaying    bool
	isPaused     bool
	isLoading    bool
	playMode     PlayMode
	retryCount   int
	lastError    string
	volume       float64
	position     time.Duration
	generation   uint64
}

// NewPlayerState creates a new PlayerState for the given guild and channels.
func NewPlayerState(guildID, voiceChannelID, notificationChannelID snowflake.ID) *PlayerState {
	return &PlayerState{
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		Queue:                 NewQueue(),
		playMode:              PlayModeList,
		volume:                DefaultVolume,
	}
}

// Lock acquires the state mutex. It must not be held across network calls.
func (p *PlayerState) Lock() { p.mu.Lock() }

// Unlock releases the state mutex.
func (p *PlayerState) Unlock() { p.mu.Unlock() }

// GuildID returns the guild ID.
func (p *PlayerState) GuildID() snowflake.ID {
	return p.guildID
}

// VoiceChannelID returns the voice channel the bot is connected to.
func (p *PlayerState) VoiceChannelID() snowflake.ID {
	return p.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (p *PlayerState) SetVoiceChannelID(channelID snowflake.ID) {
	p.voiceChannelID = channelID
}

// NotificationChannelID returns the text channel used for notifications.
func (p *PlayerState) NotificationChannelID() snowflake.ID {
	return p.notificationChannelID
}

// SetNotificationChannelID updates the notification channel ID.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	p.notificationChannelID = channelID
}

// CurrentTrack returns the track of the latest play attempt, or nil.
func (p *PlayerState) CurrentTrack() *Track {
	return p.currentTrack
}

func (p *PlayerState) IsPlaying() bool { return p.isPlaying }
func (p *PlayerState) IsPaused() bool  { return p.isPaused }
func (p *PlayerState) IsLoading() bool { return p.isLoading }
func (p *PlayerState) RetryCount() int { return p.retryCount }

// LastError returns the user-facing message of the most recent failure.
func (p *PlayerState) LastError() string {
	return p.lastError
}

// PlayMode returns the current play mode.
func (p *PlayerState) PlayMode() PlayMode {
	return p.playMode
}

// SetPlayMode sets the play mode.
func (p *PlayerState) SetPlayMode(mode PlayMode) {
	p.playMode = mode
}

// CyclePlayMode advances list -> loop -> random -> list and returns the new mode.
func (p *PlayerState) CyclePlayMode() PlayMode {
	p.playMode = p.playMode.Next()
	return p.playMode
}

// Volume returns the output volume in [0, 1].
func (p *PlayerState) Volume() float64 {
	return p.volume
}

// SetVolume clamps v into [0, 1], stores it and returns the stored value.
func (p *PlayerState) SetVolume(v float64) float64 {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	p.volume = v
	return v
}

// Position returns the last known playback position.
func (p *PlayerState) Position() time.Duration {
	return p.position
}

// SetPosition records the playback position.
func (p *PlayerState) SetPosition(pos time.Duration) {
	p.position = pos
}

// Generation identifies the latest play attempt.
func (p *PlayerState) Generation() uint64 {
	return p.generation
}

// IsGeneration reports whether gen is still the latest play attempt.
func (p *PlayerState) IsGeneration(gen uint64) bool {
	return p.generation == gen
}

// BeginLoading starts a new play attempt for track and returns its generation.
// Results carrying an older generation must be discarded.
func (p *PlayerState) BeginLoading(track *Track) uint64 {
	p.generation++
	p.currentTrack = track
	p.isLoading = true
	p.isPaused = false
	p.lastError = ""
	p.position = 0
	return p.generation
}

// MarkPlaying records that the current attempt started successfully.
func (p *PlayerState) MarkPlaying() {
	p.isPlaying = true
	p.isPaused = false
	p.isLoading = false
	p.retryCount = 0
}

// MarkResumed records a user resume of paused output. Unlike MarkPlaying it
// leaves the retry budget alone.
func (p *PlayerState) MarkResumed() {
	p.isPlaying = true
	p.isPaused = false
}

// MarkFailed records a failed attempt with a user-facing message.
func (p *PlayerState) MarkFailed(message string) {
	p.isPlaying = false
	p.isLoading = false
	p.lastError = message
}

// MarkPaused records a user pause.
func (p *PlayerState) MarkPaused() {
	p.isPlaying = false
	p.isPaused = true
}

// MarkStopped records that nothing is playing any more, keeping the current track.
func (p *PlayerState) MarkStopped() {
	p.isPlaying = false
	p.isPaused = false
	p.isLoading = false
}

// SelectCurrent makes track current without starting it and invalidates
// in-flight attempts.
func (p *PlayerState) SelectCurrent(track *Track) {
	p.generation++
	p.currentTrack = track
	p.position = 0
	p.MarkStopped()
}

// ClearCurrent drops the current track and invalidates in-flight attempts.
func (p *PlayerState) ClearCurrent() {
	p.SelectCurrent(nil)
}

// ConsumeRetry reports whether an automatic advance is allowed after a
// failure, and counts it if so. Advancing needs another track to go to
// under the current play mode.
func (p *PlayerState) ConsumeRetry(maxRetry int) bool {
	if p.retryCount >= maxRetry || p.Queue.Len() <= 1 || !p.HasNext() {
		return false
	}
	p.retryCount++
	return true
}

// HasNext reports whether a next track is available under the current mode.
func (p *PlayerState) HasNext() bool {
	if p.Queue.IsEmpty() {
		return false
	}
	if p.playMode != PlayModeList {
		return true
	}
	return p.Queue.CurrentIndex()+1 < p.Queue.Len()
}

// HasPrev reports whether a previous track is available under the current mode.
func (p *PlayerState) HasPrev() bool {
	if p.Queue.IsEmpty() {
		return false
	}
	if p.playMode != PlayModeList {
		return true
	}
	return p.Queue.CurrentIndex() > 0
}
