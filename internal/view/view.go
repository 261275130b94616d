// Package view is a terminal front end for the orrery. It renders the scene
// through the camera, picks bodies with the mouse and hosts the chat panel.
package view

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solar-system-ai/internal/camera"
	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/metrics"
	"solar-system-ai/internal/picking"
	"solar-system-ai/internal/sim"
)

// Terminal cells are roughly twice as tall as they are wide
const cellAspect = 0.5

const (
	statusRows = 1
	panelRows  = 9
	orbitStep  = 0.05 // radians per arrow key press
	dollyStep  = 1.1
)

// Options tune a View
type Options struct {
	OrbitPoints int
	Metrics     *metrics.MetricsCollector
}

// View owns the terminal screen. Every field below is touched only on the
// frame loop goroutine.
type View struct {
	screen tcell.Screen
	loop   *sim.Loop
	state  *sim.State
	panel  *chat.Panel
	logger *zap.Logger
	opts   Options

	cam    *camera.Controller
	picker *picking.Controller

	width, height int
	input         []rune
	quit          bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewView wires a screen to the loop that owns state. It registers a frame
// hook, so it must be called before the loop runs.
func NewView(screen tcell.Screen, loop *sim.Loop, state *sim.State, panel *chat.Panel, logger *zap.Logger, opts Options) *View {
	if opts.OrbitPoints < 3 {
		opts.OrbitPoints = 128
	}
	v := &View{
		screen: screen,
		loop:   loop,
		state:  state,
		panel:  panel,
		logger: logger,
		opts:   opts,
		cam:    camera.NewController(camera.New(1)),
		ctx:    context.Background(),
	}
	v.picker = picking.NewController(v.cam.Camera, picking.SphereIntersector{State: state}, panel, 0, 0)
	v.picker.OnSelect = v.zoomTo
	v.resize()

	loop.OnFrame(v.frame)
	return v
}

// Camera returns the camera controller
func (v *View) Camera() *camera.Controller {
	return v.cam
}

// Picker returns the picking controller
func (v *View) Picker() *picking.Controller {
	return v.picker
}

// Run drives the frame loop and feeds terminal events into it until the user
// quits or ctx is cancelled. The caller owns screen Init and Fini.
func (v *View) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	v.ctx, v.cancel = ctx, cancel

	v.screen.EnableMouse()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return v.loop.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				err := v.loop.Post(gctx, func(st *sim.State) {
					if !v.HandleEvent(ev) {
						cancel()
					}
				})
				if err != nil {
					return nil
				}
			}
		}
	})

	err := g.Wait()
	v.wg.Wait()
	return err
}

// HandleEvent applies one terminal event and reports whether the view
// should keep running. It must run on the loop goroutine.
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.resize()

	case *tcell.EventMouse:
		v.handleMouse(ev)

	case *tcell.EventKey:
		return v.handleKey(ev)
	}
	return !v.quit
}

func (v *View) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		v.cam.Dolly(1 / dollyStep)
	case buttons&tcell.WheelDown != 0:
		v.cam.Dolly(dollyStep)
	case buttons&tcell.Button1 != 0:
		if y >= v.sceneHeight() {
			return
		}
		// pick at the centre of the clicked cell
		v.picker.Click(float64(x)+0.5, float64(y)+0.5)
	}
}

func (v *View) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		v.quit = true
		return false
	case tcell.KeyEscape:
		if v.panel.IsOpen() {
			v.panel.Close()
			v.input = v.input[:0]
			v.resize()
		}
	case tcell.KeyEnter:
		v.send()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(v.input); n > 0 {
			v.input = v.input[:n-1]
		}
	case tcell.KeyLeft:
		v.cam.Orbit(-orbitStep, 0)
	case tcell.KeyRight:
		v.cam.Orbit(orbitStep, 0)
	case tcell.KeyUp:
		v.cam.Orbit(0, orbitStep)
	case tcell.KeyDown:
		v.cam.Orbit(0, -orbitStep)
	case tcell.KeyPgUp:
		if conv := v.panel.Current(); conv != nil {
			conv.Transcript.Scroll(1)
		}
	case tcell.KeyPgDn:
		if conv := v.panel.Current(); conv != nil {
			conv.Transcript.Scroll(-1)
		}
	case tcell.KeyRune:
		v.handleRune(ev.Rune())
	}
	return true
}

// handleRune types into the input line while a conversation is open and
// otherwise treats runes as commands
func (v *View) handleRune(r rune) {
	if v.panel.IsOpen() {
		v.input = append(v.input, r)
		return
	}
	switch r {
	case 'm':
		moving := v.state.ToggleMovement()
		v.logger.Debug("Movement toggled", zap.Bool("moving", moving))
	case 'o':
		v.state.SetOrbitsVisible(!v.state.OrbitsVisible)
	case '+':
		v.cam.Dolly(1 / dollyStep)
	case '-':
		v.cam.Dolly(dollyStep)
	}
}

// send starts an exchange for the input line. The relay call runs on its own
// goroutine and its outcome is applied back on the loop.
func (v *View) send() {
	ex, err := v.panel.Begin(string(v.input))
	v.input = v.input[:0]
	if err != nil {
		return
	}

	relay := v.panel.Relay()
	ctx := v.ctx
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		reply, err := ex.Fetch(ctx, relay)
		if postErr := v.loop.Post(ctx, func(*sim.State) {
			v.panel.Complete(ex, reply, err)
		}); postErr != nil {
			v.logger.Debug("Dropping reply after shutdown", zap.String("body", ex.Conversation.Body))
		}
	}()
}

// zoomTo is the picker's selection hook
func (v *View) zoomTo(name string) {
	if v.opts.Metrics != nil {
		v.opts.Metrics.RecordSelection(name)
	}
	orbit, ok := v.state.Find(name)
	if !ok {
		return
	}
	v.cam.ZoomTo(func() celestial.Vector3 { return orbit.Position })
	v.resize()
}

// frame is the loop hook: advance the camera then redraw
func (v *View) frame(st *sim.State, dt float64) {
	v.cam.Step(dt)
	v.draw(st)
}

func (v *View) sceneHeight() int {
	h := v.height - statusRows
	if v.panel.IsOpen() {
		h -= panelRows
	}
	if h < 1 {
		h = 1
	}
	return h
}

// resize recomputes the scene viewport from the screen size and panel state
func (v *View) resize() {
	v.width, v.height = v.screen.Size()
	if v.width < 1 || v.height < 1 {
		return
	}
	sh := v.sceneHeight()
	v.picker.Resize(float64(v.width), float64(sh))
	v.cam.Camera.SetAspect(float64(v.width) * cellAspect / float64(sh))
}
