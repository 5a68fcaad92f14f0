package ports

import (
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// SourceSwitchPublisher publishes provider switches.
type SourceSwitchPublisher interface {
	PublishSourceSwitch(event domain.SourceSwitchEvent)
}

// EventPublisher defines the interface for publishing player events.
// Publishing never blocks; events may be dropped under backpressure.
type EventPublisher interface {
	SourceSwitchPublisher
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
	PublishPlaybackFailed(event domain.PlaybackFailedEvent)
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishTrackException(event domain.TrackExceptionEvent)
}
