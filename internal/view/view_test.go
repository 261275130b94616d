package view

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"solar-system-ai/internal/camera"
	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/metrics"
	"solar-system-ai/internal/sim"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// testBodies are oversized so a single terminal cell reliably hits them
func testBodies() []celestial.Body {
	return []celestial.Body{
		{Name: "Earth", Radius: 10, OrbitRadius: 20, OrbitSpeed: 0.01, RotationSpeed: 0.01},
		{Name: "Mars", Radius: 2, OrbitRadius: 60, OrbitSpeed: 0.01, RotationSpeed: 0.01},
	}
}

func place(st *sim.State, name string, angle float64) {
	o, _ := st.Find(name)
	o.Angle = angle
	o.Position = celestial.OrbitPosition(o.Body.OrbitRadius, angle)
}

func newTestState() *sim.State {
	st := sim.NewState(testBodies(), rand.New(rand.NewSource(7)))
	place(st, "Earth", math.Pi/2) // (0, 0, 20), between the sun and the camera
	place(st, "Mars", 0)
	return st
}

type harness struct {
	screen  tcell.SimulationScreen
	state   *sim.State
	loop    *sim.Loop
	view    *View
	metrics *metrics.MetricsCollector
}

func newHarness(t *testing.T, relay chat.Relay) *harness {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)

	st := newTestState()
	loop := sim.NewLoop(st, 120)
	panel := chat.NewPanel(relay, zap.NewNop())
	m := metrics.NewMetricsCollector(prometheus.NewRegistry())
	v := NewView(screen, loop, st, panel, zap.NewNop(), Options{
		OrbitPoints: 64,
		Metrics:     m,
	})
	return &harness{screen: screen, state: st, loop: loop, view: v, metrics: m}
}

// cellOf returns the screen cell a body projects into
func (h *harness) cellOf(t *testing.T, name string) (int, int) {
	t.Helper()
	o, ok := h.state.Find(name)
	require.True(t, ok)
	x, y, _, visible := h.view.cam.Camera.Project(o.Position)
	require.True(t, visible)
	col, row := h.view.toCell(x, y)
	return int(col), int(row)
}

func (h *harness) row(y int) string {
	w, _ := h.screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := h.screen.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func char(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func click(x, y int) *tcell.EventMouse {
	return tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone)
}

func TestViewportFollowsScreen(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	assert.Equal(t, 23, h.view.sceneHeight())
	assert.InDelta(t, 80*cellAspect/23, h.view.cam.Camera.Aspect, 1e-9)

	h.screen.SetSize(100, 40)
	h.view.HandleEvent(tcell.NewEventResize(100, 40))
	assert.Equal(t, 39, h.view.sceneHeight())
	assert.InDelta(t, 100*cellAspect/39, h.view.cam.Camera.Aspect, 1e-9)
}

func TestClickSelectsOpensAndZooms(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	x, y := h.cellOf(t, "Earth")
	assert.True(t, h.view.HandleEvent(click(x, y)))

	assert.Equal(t, "Earth", h.view.Picker().Selection())
	require.True(t, h.view.panel.IsOpen())
	assert.Equal(t, "Earth", h.view.panel.Current().Body)
	assert.Equal(t, 24-statusRows-panelRows, h.view.sceneHeight())
	require.NotNil(t, h.view.Camera().Active())

	// the frame hook drives the zoom to completion
	h.view.frame(h.state, camera.ZoomDuration)
	assert.Nil(t, h.view.Camera().Active())
	earth, _ := h.state.Find("Earth")
	want := earth.Position.Add(celestial.Vec3(0, 0, camera.ZoomMargin))
	assert.InDelta(t, 0, h.view.cam.Camera.Position.DistanceTo(want), 1e-9)
	assert.InDelta(t, 0, h.view.cam.Camera.Target.DistanceTo(earth.Position), 1e-9)
}

func TestClickRecordsSelection(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	x, y := h.cellOf(t, "Earth")
	h.view.HandleEvent(click(x, y))

	rec := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `orrery_selections_total{body="Earth"} 1`)
}

func TestClickOnEmptySpaceIsNoop(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	h.view.HandleEvent(click(0, 0))
	assert.Empty(t, h.view.Picker().Selection())
	assert.False(t, h.view.panel.IsOpen())
	assert.Nil(t, h.view.Camera().Active())
}

func TestClickOnStatusRowIgnored(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	h.view.HandleEvent(click(40, 23))
	assert.Empty(t, h.view.Picker().Selection())
}

func TestToggleKeys(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	h.view.frame(h.state, h.loop.FrameStep())
	assert.Contains(t, h.row(23), "Stop Movement")
	assert.Contains(t, h.row(23), "Orbits: on")

	h.view.HandleEvent(char('m'))
	h.view.HandleEvent(char('o'))
	assert.False(t, h.state.Moving)
	assert.False(t, h.state.OrbitsVisible)

	h.view.frame(h.state, h.loop.FrameStep())
	assert.Contains(t, h.row(23), "Start Movement")
	assert.Contains(t, h.row(23), "Orbits: off")
}

func TestTypingWhilePanelOpen(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	x, y := h.cellOf(t, "Earth")
	h.view.HandleEvent(click(x, y))

	for _, r := range "moon" {
		h.view.HandleEvent(char(r))
	}
	assert.True(t, h.state.Moving, "runes go to the input line while chatting")
	assert.Equal(t, "moon", string(h.view.input))

	h.view.HandleEvent(key(tcell.KeyBackspace2))
	assert.Equal(t, "moo", string(h.view.input))

	h.view.HandleEvent(key(tcell.KeyEscape))
	assert.False(t, h.view.panel.IsOpen())
	assert.Empty(t, h.view.input)
	assert.Equal(t, 23, h.view.sceneHeight())
}

func TestBlankEnterSendsNothing(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	x, y := h.cellOf(t, "Earth")
	h.view.HandleEvent(click(x, y))
	h.view.HandleEvent(char(' '))
	h.view.HandleEvent(key(tcell.KeyEnter))

	assert.Equal(t, 1, h.view.panel.Current().Transcript.Len())
}

func TestManualCameraCancelsZoom(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	x, y := h.cellOf(t, "Earth")
	h.view.HandleEvent(click(x, y))
	require.NotNil(t, h.view.Camera().Active())

	h.view.HandleEvent(key(tcell.KeyLeft))
	assert.Nil(t, h.view.Camera().Active())
}

func TestCtrlCQuits(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	assert.False(t, h.view.HandleEvent(key(tcell.KeyCtrlC)))
}

func TestRenderDrawsBodiesAndPanel(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()

	x, y := h.cellOf(t, "Earth")
	h.view.frame(h.state, 0)
	r, _, _, _ := h.screen.GetContent(x, y)
	assert.Equal(t, 'E', r)

	h.view.HandleEvent(click(x, y))
	h.view.frame(h.state, 0)

	var panel strings.Builder
	for row := 24 - panelRows; row < 24; row++ {
		panel.WriteString(h.row(row))
		panel.WriteByte('\n')
	}
	assert.Contains(t, panel.String(), "Earth: "+celestial.Greeting("Earth"))
	assert.Contains(t, panel.String(), "> _")
}

// onLoop runs fn on the loop goroutine and waits for it
func onLoop(t *testing.T, loop *sim.Loop, fn func(*sim.State)) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, loop.Post(context.Background(), func(st *sim.State) {
		fn(st)
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not run task")
	}
}

func TestRunConversationEndToEnd(t *testing.T) {
	h := newHarness(t, chat.LocalRelay{})
	defer h.screen.Fini()
	h.state.Moving = false

	// make Mars big enough to hit before the loop takes over the state
	mars, _ := h.state.Find("Mars")
	mars.Body.Radius = 10
	x, y := h.cellOf(t, "Mars")

	runDone := make(chan error, 1)
	go func() { runDone <- h.view.Run(context.Background()) }()

	h.screen.InjectMouse(x, y, tcell.Button1, tcell.ModNone)

	require.Eventually(t, func() bool {
		open := false
		onLoop(t, h.loop, func(*sim.State) { open = h.view.panel.IsOpen() })
		return open
	}, 2*time.Second, 10*time.Millisecond)

	h.screen.InjectKey(tcell.KeyRune, 'h', tcell.ModNone)
	h.screen.InjectKey(tcell.KeyRune, 'i', tcell.ModNone)
	h.screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	var entries []chat.Entry
	require.Eventually(t, func() bool {
		onLoop(t, h.loop, func(*sim.State) {
			entries = h.view.panel.Current().Transcript.Entries()
		})
		return len(entries) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, chat.Entry{Speaker: "You", Text: "hi"}, entries[1])
	assert.Equal(t, chat.Entry{Speaker: "Mars", Text: celestial.CannedLine("Mars")}, entries[2])

	h.screen.InjectKey(tcell.KeyCtrlC, 0, tcell.ModNone)
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("view did not quit")
	}
}
