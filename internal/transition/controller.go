// Package transition sequences backdrop replacements as an animated
// crossfade state machine. At most one animation runs at a time; a
// replacement requested mid-animation is queued (latest wins) and
// applied without a second sequential animation once the running one
// completes, so a storm of rapid requests converges to the newest image.
package transition

import (
	"sync"
	"time"

	"github.com/papapumpkin/scrim/internal/flow"
)

// State is the controller's lifecycle position.
type State int

const (
	Idle          State = iota // no transition running
	Transitioning              // a crossfade is in progress
)

// String returns the snake_case name of the state.
func (s State) String() string {
	if s == Transitioning {
		return "transitioning"
	}
	return "idle"
}

// Surface is the rendering side of the host bridge: it makes a backdrop
// image visible. The visual crossfade itself belongs to the host.
type Surface interface {
	ShowBackdrop(path string) error
}

// safetyMargin is added to the configured transition duration when
// waiting for the host's completion signal, so a lost signal cannot
// wedge the state machine.
const safetyMargin = 250 * time.Millisecond

type request struct {
	path    string
	id      flow.ID
	restore bool
}

// Controller owns the crossfade state machine.
type Controller struct {
	flows    *flow.Sequencer
	surface  Surface
	duration time.Duration

	// OnApplied, when set, runs after an image becomes the applied
	// backdrop (including the no-op re-apply of the current image, so
	// dependent overlay recomputes still fire).
	OnApplied func(path string)

	// OnError, when set, receives surface failures; they do not stop
	// the state machine.
	OnError func(err error)

	mu       sync.Mutex
	state    State
	applied  string
	pending  *request
	complete chan struct{}
}

// NewController creates a controller driving the given surface with the
// configured animation duration.
func NewController(flows *flow.Sequencer, surface Surface, duration time.Duration) *Controller {
	return &Controller{flows: flows, surface: surface, duration: duration}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Applied returns the path of the currently applied backdrop, or empty.
func (c *Controller) Applied() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// Apply requests that path become the visible backdrop. Calls carrying
// a stale flow id are rejected unless restore is set (the startup
// cache-restore path has no live flow yet). Returns whether the request
// was accepted.
func (c *Controller) Apply(path string, id flow.ID, restore bool) bool {
	if !restore && !c.flows.Current(id) {
		return false
	}

	c.mu.Lock()
	if c.state == Transitioning {
		// Queue for after the running animation; only the latest wins.
		c.pending = &request{path: path, id: id, restore: restore}
		c.mu.Unlock()
		return true
	}
	if path == c.applied {
		c.mu.Unlock()
		// Idempotent re-apply: no animation, but dependents recompute.
		c.notifyApplied(path)
		return true
	}

	c.state = Transitioning
	ch := make(chan struct{}, 1)
	c.complete = ch
	c.mu.Unlock()

	go c.run(request{path: path, id: id, restore: restore}, ch)
	return true
}

// NotifyComplete delivers the host's visual-transition-complete signal.
// Signals arriving with no transition in flight are dropped.
func (c *Controller) NotifyComplete() {
	c.mu.Lock()
	ch := c.complete
	c.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// run performs one animated transition: show the image, wait for the
// completion signal or the safety timeout, mark applied, then apply any
// queued replacement directly (no second sequential animation).
func (c *Controller) run(req request, ch chan struct{}) {
	if err := c.surface.ShowBackdrop(req.path); err != nil && c.OnError != nil {
		c.OnError(err)
	}

	timer := time.NewTimer(c.duration + safetyMargin)
	select {
	case <-ch:
	case <-timer.C:
	}
	timer.Stop()

	c.mu.Lock()
	c.applied = req.path
	c.state = Idle
	c.complete = nil
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.notifyApplied(req.path)

	if pending != nil {
		c.applyDirect(*pending)
	}
}

// applyDirect makes a queued replacement visible without awaiting an
// animation. The flow check is repeated: the queue entry may have gone
// stale while the animation ran.
func (c *Controller) applyDirect(req request) {
	if !req.restore && !c.flows.Current(req.id) {
		return
	}

	c.mu.Lock()
	if req.path == c.applied {
		c.mu.Unlock()
		c.notifyApplied(req.path)
		return
	}
	c.applied = req.path
	c.mu.Unlock()

	if err := c.surface.ShowBackdrop(req.path); err != nil && c.OnError != nil {
		c.OnError(err)
	}
	c.notifyApplied(req.path)
}

func (c *Controller) notifyApplied(path string) {
	if c.OnApplied != nil {
		c.OnApplied(path)
	}
}
