package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/config"
	"solar-system-ai/internal/metrics"
	"solar-system-ai/internal/sim"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

type stubRelay struct {
	mu      sync.Mutex
	reply   string
	err     error
	body    string
	message string
}

func (s *stubRelay) Reply(_ context.Context, body, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body, s.message = body, message
	return s.reply, s.err
}

func (s *stubRelay) last() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body, s.message
}

type fixture struct {
	srv  *Server
	ts   *httptest.Server
	loop *sim.Loop
}

func newFixture(t *testing.T, relay chat.Relay, mutate func(*config.ServerConfig)) *fixture {
	t.Helper()
	cfg := config.DefaultConfig().Server
	cfg.StreamEvery = 1
	if mutate != nil {
		mutate(&cfg)
	}
	bodies := celestial.InitSolarSystemObjects()
	loop := sim.NewLoop(sim.NewState(bodies, rand.New(rand.NewSource(1))), 120)
	srv := NewServer(cfg, relay, loop, bodies, metrics.NewMetricsCollector(prometheus.NewRegistry()), zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return &fixture{srv: srv, ts: ts, loop: loop}
}

func (f *fixture) ask(t *testing.T, body string) (*http.Response, string) {
	t.Helper()
	resp, err := f.ts.Client().Post(f.ts.URL+"/ask-planet", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestAskPlanet(t *testing.T) {
	relay := &stubRelay{reply: "Hello there"}
	f := newFixture(t, relay, nil)

	resp, raw := f.ask(t, `{"message":"hi","planet":"Earth"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out askResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, "Hello there", out.Response)
	body, message := relay.last()
	assert.Equal(t, "Earth", body)
	assert.Equal(t, "hi", message)
}

func TestAskPlanetLocalRelay(t *testing.T) {
	f := newFixture(t, chat.LocalRelay{}, nil)

	resp, body := f.ask(t, `{"message":"hi","planet":"Mars"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"response":"The Red Planet, waiting for your visit someday!"}`, body)
}

func TestAskPlanetRelayFailure(t *testing.T) {
	f := newFixture(t, &stubRelay{err: errors.New("upstream 401")}, nil)

	resp, body := f.ask(t, `{"message":"hi","planet":"Earth"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Something went wrong with the AI.", body)
	assert.NotContains(t, body, "401")
}

func TestAskPlanetRemoteRelayFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer upstream.Close()

	rc := config.DefaultConfig().Relay
	rc.BaseURL = upstream.URL
	f := newFixture(t, chat.NewOpenAIRelay(rc, zap.NewNop()), nil)

	resp, body := f.ask(t, `{"message":"hi","planet":"Earth"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, chat.FailureMessage, body)
}

func TestAskPlanetBadRequests(t *testing.T) {
	f := newFixture(t, &stubRelay{reply: "x"}, nil)

	resp, _ := f.ask(t, `{"message":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := f.ts.Client().Get(f.ts.URL + "/ask-planet")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestAskPlanetRateLimit(t *testing.T) {
	f := newFixture(t, &stubRelay{reply: "x"}, func(c *config.ServerConfig) {
		c.RatePerMinute = 1
	})

	resp, _ := f.ask(t, `{"message":"a","planet":"Mars"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.ask(t, `{"message":"b","planet":"Mars"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCORSAndRequestID(t *testing.T) {
	f := newFixture(t, &stubRelay{reply: "x"}, nil)

	req, err := http.NewRequest(http.MethodOptions, f.ts.URL+"/ask-planet", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err = http.NewRequest(http.MethodPost, f.ts.URL+"/ask-planet", strings.NewReader(`{"message":"a","planet":"Mars"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = f.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestBodies(t *testing.T) {
	f := newFixture(t, chat.LocalRelay{}, nil)

	resp, err := f.ts.Client().Get(f.ts.URL + "/bodies")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bodiesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, celestial.SunName, out.Sun.Name)
	assert.Len(t, out.Bodies, 8)
	assert.Equal(t, "Mercury", out.Bodies[0].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, chat.LocalRelay{}, nil)
	f.ask(t, `{"message":"hi","planet":"Venus"}`)

	resp, err := f.ts.Client().Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `orrery_asks_total{body="Venus",outcome="ok"} 1`)
}

func TestAskMetricsLabelUnknownPlanets(t *testing.T) {
	relay := &stubRelay{reply: "x"}
	f := newFixture(t, relay, nil)

	for _, planet := range []string{"junk-1", "junk-2", "junk-3", "mars"} {
		resp, _ := f.ask(t, `{"message":"hi","planet":"`+planet+`"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	body, _ := relay.last()
	assert.Equal(t, "mars", body, "the relay sees the name as sent")

	resp, err := f.ts.Client().Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `orrery_asks_total{body="unknown",outcome="ok"} 3`)
	assert.Contains(t, out, `orrery_asks_total{body="Mars",outcome="ok"} 1`)
	assert.NotContains(t, out, "junk")
}

func readSnapshot(t *testing.T, conn *websocket.Conn) sim.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestWebSocketStreamAndToggles(t *testing.T) {
	f := newFixture(t, chat.LocalRelay{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- f.loop.Run(ctx) }()
	defer func() {
		cancel()
		<-loopDone
	}()

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	snap := readSnapshot(t, conn)
	assert.True(t, snap.Moving)
	assert.True(t, snap.OrbitsVisible)
	assert.Len(t, snap.Bodies, 8)

	require.Eventually(t, func() bool { return f.srv.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(CommandToggleMovement)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(CommandToggleOrbits)))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap = readSnapshot(t, conn)
		if !snap.Moving && !snap.OrbitsVisible {
			break
		}
	}
	assert.False(t, snap.Moving)
	assert.False(t, snap.OrbitsVisible)

	// paused bodies stay put while frames keep coming
	a := readSnapshot(t, conn)
	b := readSnapshot(t, conn)
	assert.Greater(t, b.Frame, a.Frame)
	assert.Equal(t, a.Bodies, b.Bodies)
}

func TestHubPublishEvery(t *testing.T) {
	h := NewHub(3, zap.NewNop())
	c := &wsClient{send: make(chan []byte, 8)}
	require.True(t, h.register(c))

	st := sim.NewState(celestial.InitSolarSystemObjects(), rand.New(rand.NewSource(2)))
	for i := 0; i < 6; i++ {
		st.Tick()
		h.Publish(st, 1.0/60)
	}
	assert.Len(t, c.send, 2)

	h.unregister(c)
	assert.Equal(t, 0, h.Len())
}

func TestHubDropsForSlowClient(t *testing.T) {
	h := NewHub(1, zap.NewNop())
	c := &wsClient{send: make(chan []byte, 1)}
	require.True(t, h.register(c))

	st := sim.NewState(celestial.InitSolarSystemObjects(), rand.New(rand.NewSource(2)))
	for i := 0; i < 5; i++ {
		st.Tick()
		h.Publish(st, 1.0/60)
	}
	assert.Len(t, c.send, 1)
	h.unregister(c)
}

func TestIPRateLimiter(t *testing.T) {
	assert.Nil(t, newPerMinuteLimiter(0))

	l := newPerMinuteLimiter(6)
	r1 := httptest.NewRequest(http.MethodPost, "/ask-planet", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	r2 := httptest.NewRequest(http.MethodPost, "/ask-planet", nil)
	r2.RemoteAddr = "10.0.0.2:1234"

	assert.True(t, l.Allow(r1))
	assert.False(t, l.Allow(r1))
	assert.True(t, l.Allow(r2), "limits are per IP")
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
}

func TestSetupTLSDisabledWithoutHosts(t *testing.T) {
	cfg, err := setupTLS(config.TLSConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSetupTLSWithHosts(t *testing.T) {
	cfg, err := setupTLS(config.TLSConfig{Hosts: []string{"orrery.example.com"}, CacheDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.NotNil(t, cfg.GetCertificate)
	assert.Contains(t, cfg.NextProtos, "acme-tls/1")
}
