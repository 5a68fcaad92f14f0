// Package metrics exposes the Prometheus counters of the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EndpointFailoverTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebot_endpoint_failover_total",
		Help: "Total number of switches from the primary to the fallback upstream endpoint",
	})

	TunehubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebot_tunehub_requests_total",
		Help: "Total number of upstream resolution requests by kind and outcome",
	}, []string{"kind", "outcome"})

	SourceSwitchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebot_source_switch_total",
		Help: "Total number of provider switches by requested and serving provider",
	}, []string{"from", "to"})

	StreamResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebot_stream_resolve_total",
		Help: "Total number of stream resolution attempts by bitrate and outcome",
	}, []string{"bitrate", "outcome"})

	PlaybackAutoAdvanceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebot_playback_auto_advance_total",
		Help: "Total number of automatic advances after a playback failure",
	})

	PlaybackFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebot_playback_failures_total",
		Help: "Total number of failed play attempts by reason",
	}, []string{"reason"})

	EventBusDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebot_event_bus_drop_total",
		Help: "Total number of events dropped because a topic buffer was full",
	}, []string{"topic"})
)

// IncTunehubRequest records an upstream request outcome.
func IncTunehubRequest(kind, outcome string) {
	if kind == "" {
		kind = "unknown"
	}
	TunehubRequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncSourceSwitch records a provider switch.
func IncSourceSwitch(from, to string) {
	SourceSwitchTotal.WithLabelValues(from, to).Inc()
}

// IncStreamResolve records one quality tier attempt.
func IncStreamResolve(bitrate, outcome string) {
	StreamResolveTotal.WithLabelValues(bitrate, outcome).Inc()
}

// IncPlaybackFailure records a failed play attempt.
func IncPlaybackFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	PlaybackFailuresTotal.WithLabelValues(reason).Inc()
}

// IncEventBusDrop records a dropped event for the given topic.
func IncEventBusDrop(topic string) {
	EventBusDropsTotal.WithLabelValues(topic).Inc()
}
