package infrastructure

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sglre6355/tunebot/internal/metrics"
	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

type subscription[E any] struct {
	id      uint64
	handler func(context.Context, E)
}

// topic is one buffered event stream with its subscribers.
// Fields other than events are guarded by the owning bus mutex.
type topic[E any] struct {
	name     string
	events   chan E
	handlers []subscription[E]
}

func newTopic[E any](name string, bufferSize int) *topic[E] {
	return &topic[E]{name: name, events: make(chan E, bufferSize)}
}

// ChannelEventBus provides a channel-based event bus for async event handling.
// Each topic is dispatched by its own goroutine, so handlers of one topic
// run in publish order and never concurrently with each other.
type ChannelEventBus struct {
	sourceSwitch    *topic[domain.SourceSwitchEvent]
	playbackStarted *topic[domain.PlaybackStartedEvent]
	playbackFailed  *topic[domain.PlaybackFailedEvent]
	trackEnded      *topic[domain.TrackEndedEvent]
	trackException  *topic[domain.TrackExceptionEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	nextID uint64
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		sourceSwitch:    newTopic[domain.SourceSwitchEvent]("SourceSwitch", bufferSize),
		playbackStarted: newTopic[domain.PlaybackStartedEvent]("PlaybackStarted", bufferSize),
		playbackFailed:  newTopic[domain.PlaybackFailedEvent]("PlaybackFailed", bufferSize),
		trackEnded:      newTopic[domain.TrackEndedEvent]("TrackEnded", bufferSize),
		trackException:  newTopic[domain.TrackExceptionEvent]("TrackException", bufferSize),
		ctx:             ctx,
		cancel:          cancel,
	}

	bus.wg.Add(5)
	go dispatch(bus, bus.sourceSwitch)
	go dispatch(bus, bus.playbackStarted)
	go dispatch(bus, bus.playbackFailed)
	go dispatch(bus, bus.trackEnded)
	go dispatch(bus, bus.trackException)

	return bus
}

func dispatch[E any](b *ChannelEventBus, t *topic[E]) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-t.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := slices.Clone(t.handlers)
			b.mu.RUnlock()
			for _, s := range handlers {
				s.handler(b.ctx, event)
			}
		}
	}
}

// publish never blocks: if the buffer is full the event is dropped with a warning.
func publish[E any](b *ChannelEventBus, t *topic[E], event E) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", t.name)
		return
	}

	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name)
	default:
		metrics.IncEventBusDrop(t.name)
		slog.Warn("event buffer full, dropping event", "type", t.name)
	}
}

func subscribe[E any](b *ChannelEventBus, t *topic[E], handler func(context.Context, E)) ports.Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	t.handlers = append(t.handlers, subscription[E]{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			t.handlers = slices.DeleteFunc(t.handlers, func(s subscription[E]) bool {
				return s.id == id
			})
		})
	}
}

// --- EventPublisher interface ---

// PublishSourceSwitch publishes a SourceSwitchEvent.
func (b *ChannelEventBus) PublishSourceSwitch(event domain.SourceSwitchEvent) {
	publish(b, b.sourceSwitch, event)
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent.
func (b *ChannelEventBus) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	publish(b, b.playbackStarted, event)
}

// PublishPlaybackFailed publishes a PlaybackFailedEvent.
func (b *ChannelEventBus) PublishPlaybackFailed(event domain.PlaybackFailedEvent) {
	publish(b, b.playbackFailed, event)
}

// PublishTrackEnded publishes a TrackEndedEvent.
func (b *ChannelEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	publish(b, b.trackEnded, event)
}

// PublishTrackException publishes a TrackExceptionEvent.
func (b *ChannelEventBus) PublishTrackException(event domain.TrackExceptionEvent) {
	publish(b, b.trackException, event)
}

// --- EventSubscriber interface ---

// OnSourceSwitch registers a handler for SourceSwitchEvent.
func (b *ChannelEventBus) OnSourceSwitch(
	handler func(context.Context, domain.SourceSwitchEvent),
) ports.Unsubscribe {
	return subscribe(b, b.sourceSwitch, handler)
}

// OnPlaybackStarted registers a handler for PlaybackStartedEvent.
func (b *ChannelEventBus) OnPlaybackStarted(
	handler func(context.Context, domain.PlaybackStartedEvent),
) ports.Unsubscribe {
	return subscribe(b, b.playbackStarted, handler)
}

// OnPlaybackFailed registers a handler for PlaybackFailedEvent.
func (b *ChannelEventBus) OnPlaybackFailed(
	handler func(context.Context, domain.PlaybackFailedEvent),
) ports.Unsubscribe {
	return subscribe(b, b.playbackFailed, handler)
}

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *ChannelEventBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) ports.Unsubscribe {
	return subscribe(b, b.trackEnded, handler)
}

// OnTrackException registers a handler for TrackExceptionEvent.
func (b *ChannelEventBus) OnTrackException(
	handler func(context.Context, domain.TrackExceptionEvent),
) ports.Unsubscribe {
	return subscribe(b, b.trackException, handler)
}

// Close stops dispatchers and drops any undelivered events.
// After calling Close, publishing will no longer send events.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()

	close(b.sourceSwitch.events)
	close(b.playbackStarted.events)
	close(b.playbackFailed.events)
	close(b.trackEnded.events)
	close(b.trackException.events)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
