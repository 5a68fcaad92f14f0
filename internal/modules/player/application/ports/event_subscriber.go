package ports

import (
	"context"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// Unsubscribe removes a handler. Calling it more than once is a no-op.
type Unsubscribe func()

// EventSubscriber defines the interface for subscribing to player events.
type EventSubscriber interface {
	OnSourceSwitch(handler func(context.Context, domain.SourceSwitchEvent)) Unsubscribe
	OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent)) Unsubscribe
	OnPlaybackFailed(handler func(context.Context, domain.PlaybackFailedEvent)) Unsubscribe
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) Unsubscribe
	OnTrackException(handler func(context.Context, domain.TrackExceptionEvent)) Unsubscribe
}
