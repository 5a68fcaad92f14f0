package tunehub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SourceSwitchEvent
}

func (p *recordingPublisher) PublishSourceSwitch(event domain.SourceSwitchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []domain.SourceSwitchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SourceSwitchEvent(nil), p.events...)
}

// countingServer answers every request with status and body and counts hits.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// deadURL returns the address of a server that is no longer listening.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	return addr
}

func query() url.Values {
	return Params{Type: TypeInfo, Source: domain.MusicSourceNetease, ID: "1"}.Values()
}

func TestTransport_Request_PrimarySuccess(t *testing.T) {
	primary, primaryHits := countingServer(t, http.StatusOK, `{"code":200}`)
	fallback, fallbackHits := countingServer(t, http.StatusOK, `{"code":200}`)

	tr := NewTransport(Config{PrimaryURL: primary.URL, FallbackURL: fallback.URL})

	resp, err := tr.Request(context.Background(), "/", query())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, primaryHits.Load())
	assert.EqualValues(t, 0, fallbackHits.Load())
	assert.True(t, tr.IsHealthy())
	assert.Equal(t, primary.URL, tr.CurrentEndpoint())
}

func TestTransport_Request_FailsOverOnServerError(t *testing.T) {
	primary, primaryHits := countingServer(t, http.StatusBadGateway, `{"message":"down"}`)
	fallback, fallbackHits := countingServer(t, http.StatusOK, `{"code":200}`)

	tr := NewTransport(Config{PrimaryURL: primary.URL, FallbackURL: fallback.URL})

	resp, err := tr.Request(context.Background(), "/", query())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, primaryHits.Load())
	assert.EqualValues(t, 1, fallbackHits.Load())
	assert.False(t, tr.IsHealthy())
	assert.Equal(t, fallback.URL, tr.CurrentEndpoint())
}

func TestTransport_Request_FailsOverWithoutResponse(t *testing.T) {
	fallback, fallbackHits := countingServer(t, http.StatusOK, `{"code":200}`)

	tr := NewTransport(Config{PrimaryURL: deadURL(t), FallbackURL: fallback.URL})

	_, err := tr.Request(context.Background(), "/", query())
	require.NoError(t, err)
	assert.EqualValues(t, 1, fallbackHits.Load())
}

func TestTransport_Request_RetriesAtMostOnce(t *testing.T) {
	primary, primaryHits := countingServer(t, http.StatusInternalServerError, `{"message":"boom"}`)
	fallback, fallbackHits := countingServer(t, http.StatusServiceUnavailable, `{"message":"also down"}`)

	tr := NewTransport(Config{PrimaryURL: primary.URL, FallbackURL: fallback.URL})

	_, err := tr.Request(context.Background(), "/", query())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "also down", statusErr.Message)
	assert.EqualValues(t, 1, primaryHits.Load())
	assert.EqualValues(t, 1, fallbackHits.Load())

	// Already on the fallback: the next failure is not retried.
	_, err = tr.Request(context.Background(), "/", query())
	require.Error(t, err)
	assert.EqualValues(t, 1, primaryHits.Load())
	assert.EqualValues(t, 2, fallbackHits.Load())
}

func TestTransport_Request_ClientErrorDoesNotFailOver(t *testing.T) {
	primary, _ := countingServer(t, http.StatusBadRequest, `{"code":400,"message":"bad id"}`)
	fallback, fallbackHits := countingServer(t, http.StatusOK, `{"code":200}`)

	tr := NewTransport(Config{PrimaryURL: primary.URL, FallbackURL: fallback.URL})

	_, err := tr.Request(context.Background(), "/", query())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "bad id", statusErr.Message)
	assert.False(t, statusErr.IsServerError())
	assert.EqualValues(t, 0, fallbackHits.Load())
	assert.True(t, tr.IsHealthy())
}

func TestTransport_Direct_ServerErrorDoesNotFailOver(t *testing.T) {
	primary, _ := countingServer(t, http.StatusInternalServerError, "")
	fallback, fallbackHits := countingServer(t, http.StatusOK, "")

	tr := NewTransport(Config{PrimaryURL: primary.URL, FallbackURL: fallback.URL})

	resp, err := tr.Direct(context.Background(), "/", query(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.EqualValues(t, 0, fallbackHits.Load())
}

func TestTransport_SwitchAndReset(t *testing.T) {
	tr := NewTransport(Config{PrimaryURL: "http://primary", FallbackURL: "http://fallback"})

	assert.True(t, tr.SwitchToFallback())
	assert.False(t, tr.SwitchToFallback(), "second switch must be a no-op")
	assert.Equal(t, "http://fallback", tr.CurrentEndpoint())
	assert.False(t, tr.IsHealthy())

	assert.True(t, tr.ResetToPrimary())
	assert.False(t, tr.ResetToPrimary())
	assert.Equal(t, "http://primary", tr.CurrentEndpoint())
	assert.True(t, tr.IsHealthy())
}

func TestTransport_SourceSwitchHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []domain.SourceSwitchEvent
	}{
		{
			name:   "valid hint",
			header: "netease -> kuwo",
			want: []domain.SourceSwitchEvent{{
				GuildID: snowflake.ID(42), From: domain.MusicSourceNetease, To: domain.MusicSourceKuwo,
			}},
		},
		{
			name:   "no whitespace",
			header: "qq->netease",
			want: []domain.SourceSwitchEvent{{
				GuildID: snowflake.ID(42), From: domain.MusicSourceQQ, To: domain.MusicSourceNetease,
			}},
		},
		{name: "malformed hint", header: "netease to kuwo"},
		{name: "unknown provider", header: "spotify -> kuwo"},
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(sourceSwitchHeader, tt.header)
				_, _ = w.Write([]byte(`{"code":200}`))
			}))
			defer srv.Close()

			pub := &recordingPublisher{}
			tr := NewTransport(
				Config{PrimaryURL: srv.URL},
				WithSourceSwitchPublisher(pub),
				WithClock(func() time.Time { return now }),
			)

			ctx := domain.ContextWithGuildID(context.Background(), snowflake.ID(42))
			_, err := tr.Request(ctx, "/", query())
			require.NoError(t, err)

			got := pub.Events()
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				tt.want[i].Timestamp = now
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}

func TestTransport_SendsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(requestIDHeader)
		_, _ = w.Write([]byte(`{"code":200}`))
	}))
	defer srv.Close()

	tr := NewTransport(Config{PrimaryURL: srv.URL})
	_, err := tr.Request(context.Background(), "/", query())
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestBuildURL(t *testing.T) {
	q := url.Values{"type": {"url"}}

	assert.Equal(t, "http://api/?type=url", buildURL("http://api", "/", q))
	assert.Equal(t, "http://proxy/?id=1&type=url", buildURL("http://api", "http://proxy/?id=1", q))
	assert.Equal(t, "http://api/", buildURL("http://api", "/", nil))
}
