package sim

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultFPS is the nominal display refresh rate
const DefaultFPS = 60

// ErrLoopStopped is returned by Post once the loop has exited
var ErrLoopStopped = errors.New("frame loop stopped")

// FrameHook runs on the loop goroutine after each tick. dt is the fixed frame
// step in seconds. Hooks run whether or not movement is enabled.
type FrameHook func(s *State, dt float64)

// Loop owns a State and is the only goroutine that touches it. Other
// goroutines reach the state through Post.
type Loop struct {
	state *State
	fps   int
	dt    float64

	mu    sync.Mutex
	hooks []FrameHook

	tasks chan func(*State)
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop for state at fps frames per second.
// A non-positive fps falls back to DefaultFPS.
func NewLoop(state *State, fps int) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Loop{
		state: state,
		fps:   fps,
		dt:    1 / float64(fps),
		tasks: make(chan func(*State), 64),
		done:  make(chan struct{}),
	}
}

// OnFrame registers a hook. Must be called before Run.
func (l *Loop) OnFrame(hook FrameHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// FrameStep returns the fixed frame step in seconds
func (l *Loop) FrameStep() float64 {
	return l.dt
}

// Post schedules fn to run on the loop goroutine between frames. Tasks run in
// the order they were posted.
func (l *Loop) Post(ctx context.Context, fn func(*State)) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks the state until ctx is cancelled. It must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn(l.state)
		case <-ticker.C:
			l.drain()
			l.Step()
		}
	}
}

// Step runs exactly one frame on the caller's goroutine. Only use it when
// Run is not active, e.g. for headless stepping.
func (l *Loop) Step() {
	l.state.Tick()

	l.mu.Lock()
	hooks := l.hooks
	l.mu.Unlock()

	for _, hook := range hooks {
		hook(l.state, l.dt)
	}
}

// drain runs queued tasks without blocking
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.tasks:
			fn(l.state)
		default:
			return
		}
	}
}
