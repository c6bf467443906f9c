package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/bitebuzz/internal/builder"
	"github.com/Clark-Hu/bitebuzz/internal/chat"
	"github.com/Clark-Hu/bitebuzz/internal/config"
	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/feedback"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/httpapi"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/memory"
)

func testConfig() config.Config {
	return config.Config{
		Port:             "0",
		RatingsBackend:   config.BackendMemory,
		RatingsTimeoutMS: 1000,
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
		ChatProvider:     "none",
		ChatTimeoutMS:    200,
	}
}

func buildTestServer(tb testing.TB, cfg config.Config, backend ratings.Backend) *Server {
	tb.Helper()
	catalog, err := menu.NewCatalog("", nil)
	if err != nil {
		tb.Fatalf("catalog: %v", err)
	}
	engine := feedback.New(backend, feedback.Options{Timeout: cfg.RatingsTimeout()})
	tb.Cleanup(func() { _ = engine.Close() })

	srv := New(cfg, engine, catalog, nil, nil)
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	srv.keepAlive = 50 * time.Millisecond
	return srv
}

func do(t testing.TB, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type brokenBackend struct {
	err error
}

func (b brokenBackend) Query(ctx context.Context) ([]domain.Rating, error) { return nil, b.err }
func (b brokenBackend) Append(ctx context.Context, in domain.RatingInput) error {
	return b.err
}
func (b brokenBackend) HealthCheck(ctx context.Context) error { return b.err }

func TestHealthz(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)

	cfg := testConfig()
	cfg.RatingsBackend = config.BackendNone
	srv = buildTestServer(t, cfg, nil)
	rec = do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "none", decode[healthResponse](t, rec).Backend)

	srv = buildTestServer(t, testConfig(), brokenBackend{err: ratings.ErrUnavailable})
	rec = do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[healthResponse](t, rec).Status)
}

func TestMenu(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())
	rec := do(t, srv, http.MethodGet, "/menu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[menuResponse](t, rec).Items, len(menu.Default()))
}

func TestLeaderboardRanksDishes(t *testing.T) {
	backend := memory.New(
		domain.Rating{ItemID: "bhel-poori", Value: 5},
		domain.Rating{ItemID: "bhel-poori", Value: 4},
		domain.Rating{ItemID: "mocktail", Value: 3},
	)
	srv := buildTestServer(t, testConfig(), backend)

	rec := do(t, srv, http.MethodGet, "/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[leaderboardResponse](t, rec)

	assert.Equal(t, domain.Snapshot{"bhel-poori": 5, "mocktail": 3}, resp.Ratings)
	assert.Nil(t, resp.Error)
	assert.True(t, resp.HasRatings)
	require.Len(t, resp.Entries, len(menu.Default()))
	assert.Equal(t, "bhel-poori", resp.Entries[0].ID)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, "mocktail", resp.Entries[1].ID)
	assert.True(t, resp.Entries[2].Pending)
}

func TestLeaderboardFallsBackToDemo(t *testing.T) {
	srv := buildTestServer(t, testConfig(), brokenBackend{err: ratings.ErrUnavailable})

	rec := do(t, srv, http.MethodPost, "/leaderboard/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[leaderboardResponse](t, rec)
	assert.Equal(t, domain.DemoSnapshot(), resp.Ratings)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "Unable to reach rating service")
}

func TestSubmitRating(t *testing.T) {
	backend := memory.New(domain.Rating{ItemID: "mocktail", Value: 1}, domain.Rating{ItemID: "mocktail", Value: 1})
	srv := buildTestServer(t, testConfig(), backend)

	rec := do(t, srv, http.MethodPost, "/dishes/mocktail/ratings", `{"rating":5,"userId":"ana"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ratingResponse](t, rec)
	assert.Equal(t, 5, resp.Rating)
	// Reconciled with the server: mean(1,1,5) rounds to 2.
	assert.Equal(t, 2, resp.Leaderboard.Ratings["mocktail"])

	events, err := backend.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "ana", events[2].SubmittedBy)
}

func TestSubmitRatingValidation(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown dish", "/dishes/pizza/ratings", `{"rating":3}`, http.StatusNotFound},
		{"missing rating", "/dishes/mocktail/ratings", `{}`, http.StatusUnprocessableEntity},
		{"out of range", "/dishes/mocktail/ratings", `{"rating":6}`, http.StatusUnprocessableEntity},
		{"negative", "/dishes/mocktail/ratings", `{"rating":-1}`, http.StatusUnprocessableEntity},
		{"fractional", "/dishes/mocktail/ratings", `{"rating":4.5}`, http.StatusUnprocessableEntity},
		{"malformed", "/dishes/mocktail/ratings", `{"rating":`, http.StatusUnprocessableEntity},
		{"empty body", "/dishes/mocktail/ratings", ``, http.StatusUnprocessableEntity},
		{"unknown field", "/dishes/mocktail/ratings", `{"rating":3,"stars":3}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, srv.engine.State().Ratings)
}

func TestSubmitRatingRollback(t *testing.T) {
	srv := buildTestServer(t, testConfig(), brokenBackend{err: errors.New("disk on fire")})

	rec := do(t, srv, http.MethodPost, "/dishes/nachos-salad/ratings", `{"rating":4}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "UPSTREAM_ERROR", resp.Code)

	_, ok := srv.engine.State().Ratings.Score("nachos-salad")
	assert.False(t, ok, "rolled back key must be absent")
	assert.Contains(t, srv.engine.State().Error, "disk on fire")
}

func TestSubmitRatingUnconfigured(t *testing.T) {
	cfg := testConfig()
	cfg.RatingsBackend = config.BackendNone
	srv := buildTestServer(t, cfg, nil)

	rec := do(t, srv, http.MethodPost, "/dishes/cucumber-boats/ratings", `{"rating":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ratingResponse](t, rec)
	assert.Equal(t, 2, resp.Leaderboard.Ratings["cucumber-boats"])
	require.NotNil(t, resp.Leaderboard.Error)
	assert.Contains(t, *resp.Leaderboard.Error, "stored locally")
}

func TestSubmitRatingRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	srv := buildTestServer(t, cfg, memory.New())

	first := do(t, srv, http.MethodPost, "/dishes/mocktail/ratings", `{"rating":3}`)
	require.Equal(t, http.StatusOK, first.Code)
	second := do(t, srv, http.MethodPost, "/dishes/mocktail/ratings", `{"rating":3}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestRatingsAPI(t *testing.T) {
	cfg := testConfig()
	cfg.RatingsAPIKey = "sekret"
	backend := memory.New()
	srv := buildTestServer(t, cfg, backend)

	rec := do(t, srv, http.MethodGet, "/ratings", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/ratings", `{"itemId":"mocktail","value":4,"submittedBy":"raj"}`, "X-API-Key", "sekret")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/ratings", `{"itemId":" ","value":4}`, "X-API-Key", "sekret")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodGet, "/ratings", "", "X-API-Key", "sekret")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[httpapi.RatingList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "mocktail", list.Items[0].ItemID)
	assert.Equal(t, "raj", list.Items[0].SubmittedBy)
	assert.NotEmpty(t, list.Items[0].ID)
}

func TestRatingsAPIWithoutBackend(t *testing.T) {
	cfg := testConfig()
	cfg.RatingsBackend = config.BackendNone
	srv := buildTestServer(t, cfg, nil)

	rec := do(t, srv, http.MethodGet, "/ratings", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_CONFIGURED", decode[errorResponse](t, rec).Code)
}

func TestRatingsAPIRoundTripThroughClient(t *testing.T) {
	backend := memory.New(domain.Rating{ItemID: "bhel-poori", Value: 4})
	srv := buildTestServer(t, testConfig(), backend)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := httpapi.NewClient(ts.URL, "", time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, client.Append(context.Background(), domain.RatingInput{ItemID: "bhel-poori", Value: 5}))
	events, err := client.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	// A second engine using this server as its backend sees the same scores.
	remote := feedback.New(client, feedback.Options{Timeout: time.Second})
	t.Cleanup(func() { _ = remote.Close() })
	require.NoError(t, remote.FetchLeaderboard(context.Background()))
	assert.Equal(t, domain.Snapshot{"bhel-poori": 5}, remote.State().Ratings)
}

func TestRatingEventsStream(t *testing.T) {
	backend := memory.New()
	srv := buildTestServer(t, testConfig(), backend)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/ratings/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return backend.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, backend.Append(context.Background(), domain.RatingInput{ItemID: "mocktail", Value: 5}))

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "event: changed" {
			break
		}
	}
}

func TestLeaderboardStream(t *testing.T) {
	backend := memory.New(domain.Rating{ItemID: "mocktail", Value: 4})
	srv := buildTestServer(t, testConfig(), backend)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/leaderboard/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	next := func() leaderboardResponse {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var out leaderboardResponse
				require.NoError(t, json.Unmarshal([]byte(data), &out))
				return out
			}
		}
	}

	require.Eventually(t, func() bool {
		return srv.engine.StreamStatus().State == feedback.Subscribed
	}, 2*time.Second, 10*time.Millisecond)

	// Pushed writes from elsewhere show up without polling.
	require.NoError(t, backend.Append(context.Background(), domain.RatingInput{ItemID: "mocktail", Value: 1}))
	for {
		snap := next()
		if snap.Ratings["mocktail"] == 3 {
			assert.Equal(t, 1, snap.Stream.Subscribers)
			break
		}
	}

	cancel()
	require.Eventually(t, func() bool {
		return srv.engine.StreamStatus().Subscribers == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatFallback(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())

	rec := do(t, srv, http.MethodPost, "/chat?persona=genie", `{"history":[{"id":"1","role":"user","content":"Show me the menu"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Reply  string `json:"reply"`
		Mood   string `json:"mood"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Source)
	assert.True(t, strings.HasPrefix(resp.Reply, "Today's BiteBuzz lineup:"))
	assert.Contains(t, resp.Reply, "• Bhel Poori")

	rec = do(t, srv, http.MethodPost, "/chat", `{"history":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBuilderCatalog(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())

	rec := do(t, srv, http.MethodGet, "/builder", "")
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[builderCatalogResponse](t, rec)
	require.Len(t, catalog.Categories, 4)
	assert.Equal(t, builder.Base, catalog.Categories[0].ID)
	assert.Equal(t, "Flavor Boost", catalog.Categories[2].Title)
	assert.Len(t, catalog.Categories[0].Options, 2)
	assert.Len(t, catalog.Highlights, 3)
}

func TestBuildBowl(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())

	rec := do(t, srv, http.MethodPost, "/builder",
		`{"selections":{"base":"grain-bowl","protein":"miso-tofu","flavor":"green-goddess","finish":"crisp-lotus"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bowl := decode[builder.Bowl](t, rec)
	assert.Equal(t, 12+7+4+3, bowl.CookTime)
	assert.True(t, bowl.Complete)
	assert.Len(t, bowl.Pairings, 4)

	rec = do(t, srv, http.MethodPost, "/builder", `{"selections":{"base":"leafy-garden"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	bowl = decode[builder.Bowl](t, rec)
	assert.Equal(t, 1, bowl.Completed)
	assert.False(t, bowl.Complete)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown category", `{"selections":{"dessert":"kulfi"}}`, http.StatusUnprocessableEntity},
		{"option from another category", `{"selections":{"base":"miso-tofu"}}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"selections":{},"extra":true}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/builder", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestChatBuilderReply(t *testing.T) {
	srv := buildTestServer(t, testConfig(), memory.New())

	rec := do(t, srv, http.MethodPost, "/chat", `{"history":[{"id":"1","role":"user","content":"Any wine pairing ideas?"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[chat.Response](t, rec)
	assert.Equal(t, chat.SourceScripted, resp.Source)
	assert.Equal(t, builder.PairingGuide(), resp.Reply)
}

func TestVisitorLimiterSweepsStaleEntries(t *testing.T) {
	l := newVisitorLimiter(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.get("10.0.0.1")
	l.get("10.0.0.2")
	require.Equal(t, 2, l.size())

	now = now.Add(visitorTTL + visitorSweepGap + time.Second)
	l.get("10.0.0.3")
	assert.Equal(t, 1, l.size())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", clientIP(req))
	req.RemoteAddr = "[2001:db8::1]"
	assert.Equal(t, "2001:db8::1", clientIP(req))
}

func BenchmarkHandleSubmitRating(b *testing.B) {
	srv := buildTestServer(b, testConfig(), memory.New())
	payload := []byte(`{"rating":4}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/dishes/mocktail/ratings", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
