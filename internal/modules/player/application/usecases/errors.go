package usecases

import "errors"

// Errors returned by the player use cases.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently loaded.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrQueueEmpty is returned when the queue is empty.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrInvalidPosition is returned when an invalid queue position is specified.
	ErrInvalidPosition = errors.New("invalid queue position")

	// ErrNoPlaybackURL is returned when no provider served the track at any quality.
	ErrNoPlaybackURL = errors.New("failed to get playback URL")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrUnknownSource is returned for a provider name that is not supported.
	ErrUnknownSource = errors.New("unknown music source")

	// ErrEndOfQueue is returned when there is no track in the requested direction.
	ErrEndOfQueue = errors.New("no more tracks in the queue")

	// ErrSuperseded is returned when a newer play request replaced this one
	// before it finished.
	ErrSuperseded = errors.New("superseded by a newer play request")
)

// Messages stored as the last error of a player.
const (
	msgPlaybackError   = "Playback error occurred"
	msgPlaybackBlocked = "Playback blocked. Join a voice channel and use /resume to start."
)
