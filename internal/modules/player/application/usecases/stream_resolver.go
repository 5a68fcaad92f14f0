package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/sglre6355/tunebot/internal/metrics"
	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// StreamResolver finds a playable locator for a track, trying other
// providers and then lower quality tiers before giving up. It never fails
// with an error: an absent locator is the failure signal.
type StreamResolver struct {
	resolver  ports.LocatorResolver
	publisher ports.SourceSwitchPublisher
	priority  []domain.MusicSource
	tiers     []domain.BitRate
	now       func() time.Time
}

// NewStreamResolver creates a StreamResolver with the default provider
// priority and quality tiers. publisher may be nil.
func NewStreamResolver(resolver ports.LocatorResolver, publisher ports.SourceSwitchPublisher) *StreamResolver {
	return &StreamResolver{
		resolver:  resolver,
		publisher: publisher,
		priority:  domain.SourcePriority(),
		tiers:     domain.BitRateFallback(),
		now:       time.Now,
	}
}

// ResolveStreamURL resolves the track at quality br, first from source and
// then from each other provider in priority order. The first alternate that
// succeeds is reported as a source switch.
func (s *StreamResolver) ResolveStreamURL(
	ctx context.Context,
	source domain.MusicSource,
	id string,
	br domain.BitRate,
) (string, bool) {
	if locator, ok := s.try(ctx, source, id, br); ok {
		return locator, true
	}

	for _, alt := range s.priority {
		if alt == source {
			continue
		}
		if ctx.Err() != nil {
			return "", false
		}

		slog.Debug("trying alternate source", "from", source, "to", alt, "id", id, "bitrate", br)
		locator, ok := s.try(ctx, alt, id, br)
		if !ok {
			continue
		}

		s.publishSwitch(ctx, source, alt)
		return locator, true
	}

	return "", false
}

// ResolveBestURL walks the quality tiers, resolving each with provider fallback.
func (s *StreamResolver) ResolveBestURL(ctx context.Context, source domain.MusicSource, id string) (string, bool) {
	for _, br := range s.tiers {
		locator, ok := s.ResolveStreamURL(ctx, source, id, br)
		if ok {
			metrics.IncStreamResolve(br.String(), "ok")
			return locator, true
		}
		metrics.IncStreamResolve(br.String(), "miss")

		if ctx.Err() != nil {
			break
		}
		slog.Info("no stream at quality tier, trying next", "source", source, "id", id, "bitrate", br)
	}
	return "", false
}

func (s *StreamResolver) try(
	ctx context.Context,
	source domain.MusicSource,
	id string,
	br domain.BitRate,
) (string, bool) {
	locator, err := s.resolver.StreamURL(ctx, source, id, br)
	if err != nil {
		slog.Warn("failed to resolve stream url",
			"source", source,
			"id", id,
			"bitrate", br,
			"error", err,
		)
		return "", false
	}
	return locator, locator != ""
}

func (s *StreamResolver) publishSwitch(ctx context.Context, from, to domain.MusicSource) {
	metrics.IncSourceSwitch(from.String(), to.String())
	slog.Info("switched source for stream", "from", from, "to", to)

	if s.publisher == nil {
		return
	}
	s.publisher.PublishSourceSwitch(domain.SourceSwitchEvent{
		GuildID:   domain.GuildIDFromContext(ctx),
		From:      from,
		To:        to,
		Timestamp: s.now(),
	})
}
