// Package engine owns the synchronization cycle: it polls the source
// image and window geometry, decides staleness through the cache
// manager, feeds pipeline results to the transition controller under
// the flow-id guard, repositions the backdrop beneath the viewport,
// and recomputes the overlay scrim from sampled brightness.
package engine

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/papapumpkin/scrim/internal/blur"
	"github.com/papapumpkin/scrim/internal/brightness"
	"github.com/papapumpkin/scrim/internal/cache"
	"github.com/papapumpkin/scrim/internal/config"
	"github.com/papapumpkin/scrim/internal/flow"
	"github.com/papapumpkin/scrim/internal/geometry"
	"github.com/papapumpkin/scrim/internal/history"
	"github.com/papapumpkin/scrim/internal/host"
	"github.com/papapumpkin/scrim/internal/metadata"
	"github.com/papapumpkin/scrim/internal/source"
	"github.com/papapumpkin/scrim/internal/telemetry"
	"github.com/papapumpkin/scrim/internal/transition"
	"github.com/papapumpkin/scrim/internal/ui"
)

// Reason explains why the next cycle was scheduled. Keeping the reason
// with the wake time makes the backoff behavior observable in telemetry
// and testable without wall-clock waits.
type Reason int

const (
	ReasonStartup Reason = iota
	ReasonInterval
	ReasonError
	ReasonWatcher
	ReasonGeometry
	ReasonForce
)

// String returns the snake_case name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonStartup:
		return "startup"
	case ReasonInterval:
		return "interval"
	case ReasonError:
		return "error"
	case ReasonWatcher:
		return "watcher"
	case ReasonGeometry:
		return "geometry"
	case ReasonForce:
		return "force"
	default:
		return "unknown"
	}
}

// schedule is the single explicit entry naming when the next cycle runs
// and why. There is exactly one; later decisions replace it.
type schedule struct {
	at     time.Time
	reason Reason
}

// geometryDebounce coalesces move/resize bursts before the backdrop is
// repositioned and brightness resampled; the pixel read-back is too
// costly to run on every intermediate frame of a drag.
const geometryDebounce = 120 * time.Millisecond

// pipeEventKind tags internal pipeline notifications.
type pipeEventKind int

const (
	pipeStage pipeEventKind = iota
	pipeDiscarded
	pipeFailed
	pipeDone
)

// pipeEvent carries one pipeline notification from the regeneration
// goroutine into the engine loop.
type pipeEvent struct {
	kind  pipeEventKind
	res   cache.Result
	id    flow.ID
	stage cache.Kind
	err   error
}

// Options wires an Engine. Bridge, Provider, and CacheDir are required;
// Watcher, History, Telemetry, and Transformer are optional (a nil
// Transformer selects the in-process blur processor).
type Options struct {
	Config      config.Config
	Printer     *ui.Printer
	Bridge      host.Bridge
	Provider    source.Provider
	Watcher     *source.Watcher
	History     *history.Store
	Telemetry   *telemetry.Emitter
	Transformer blur.Transformer
	CacheDir    string
}

// Engine runs the synchronization loop. All mutable cycle state is
// owned by the loop goroutine; pipeline and transition goroutines only
// communicate through channels and the flow-id guard.
type Engine struct {
	cfg      config.Config
	printer  *ui.Printer
	bridge   host.Bridge
	provider source.Provider
	watcher  *source.Watcher
	hist     *history.Store
	tel      *telemetry.Emitter
	tracker  *geometry.Tracker
	flows    *flow.Sequencer
	cache    *cache.Manager
	trans    *transition.Controller
	metaPath string

	pipeCh    chan pipeEvent
	appliedCh chan string

	// Loop-owned cycle state.
	next         schedule
	snap         geometry.Snapshot
	mode         brightness.Mode
	backdrop     image.Image
	backdropPath string
	forceNext    bool
}

// New constructs an engine from its collaborators.
func New(opts Options) *Engine {
	e := &Engine{
		cfg:       opts.Config,
		printer:   opts.Printer,
		bridge:    opts.Bridge,
		provider:  opts.Provider,
		watcher:   opts.Watcher,
		hist:      opts.History,
		tel:       opts.Telemetry,
		tracker:   geometry.NewTracker(opts.Config.Margin, opts.Config.TitleBar),
		flows:     &flow.Sequencer{},
		metaPath:  filepath.Join(opts.CacheDir, metadata.FileName),
		pipeCh:    make(chan pipeEvent, 16),
		appliedCh: make(chan string, 16),
	}

	transformer := opts.Transformer
	if transformer == nil {
		transformer = &blur.Processor{}
	}
	e.cache = cache.NewManager(transformer, e.flows, e, opts.CacheDir,
		cache.Profile{ZipRatio: opts.Config.PreviewZipRatio, Radius: opts.Config.PreviewRadius, Quality: opts.Config.PreviewQuality},
		cache.Profile{ZipRatio: opts.Config.FinalZipRatio, Radius: opts.Config.FinalRadius, Quality: opts.Config.FinalQuality},
	)

	e.trans = transition.NewController(e.flows, opts.Bridge, opts.Config.Transition)
	e.trans.OnApplied = func(path string) { e.appliedCh <- path }
	e.trans.OnError = func(err error) { e.printer.Warn(fmt.Sprintf("surface: %v", err)) }
	return e
}

// Run executes the engine loop until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	e.restore()
	e.next = schedule{at: time.Now(), reason: ReasonStartup}

	timer := time.NewTimer(0)
	defer timer.Stop()

	geomTimer := time.NewTimer(geometryDebounce)
	if !geomTimer.Stop() {
		<-geomTimer.C
	}
	defer geomTimer.Stop()

	var hints <-chan struct{}
	if e.watcher != nil {
		hints = e.watcher.Hints
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			e.runCycle(ctx, e.next.reason)
			resetTimer(timer, time.Until(e.next.at))

		case <-hints:
			e.scheduleNow(ReasonWatcher)
			resetTimer(timer, time.Until(e.next.at))

		case ev, ok := <-e.bridge.Events():
			if !ok {
				return fmt.Errorf("engine: host bridge closed")
			}
			if e.handleHostEvent(ev, geomTimer) {
				resetTimer(timer, time.Until(e.next.at))
			}

		case <-geomTimer.C:
			e.refreshViewportDependent()

		case pe := <-e.pipeCh:
			if e.handlePipeEvent(ctx, pe) {
				resetTimer(timer, time.Until(e.next.at))
			}

		case path := <-e.appliedCh:
			e.handleApplied(path)
		}
	}
}

// resetTimer drains and re-arms a timer for d (never negative).
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

// scheduleNow moves the next wake to the present for the given reason.
func (e *Engine) scheduleNow(reason Reason) {
	e.next = schedule{at: time.Now(), reason: reason}
}

// scheduleAfter moves the next wake d into the future.
func (e *Engine) scheduleAfter(d time.Duration, reason Reason) {
	e.next = schedule{at: time.Now().Add(d), reason: reason}
}

// restore primes the cache manager from persisted metadata and, when a
// final artifact survived from a previous run, re-applies it without
// waiting for the first regeneration cycle.
func (e *Engine) restore() {
	meta, err := metadata.Load(e.metaPath)
	if err != nil {
		e.printer.Warn(err.Error())
	}
	if meta.LastSourceImage != "" {
		e.cache.Seed(meta.LastSourceImage, meta.LastDisplayWidth, meta.LastDisplayHeight)
	}
	if _, err := os.Stat(e.cache.FinalPath()); err == nil {
		e.trans.Apply(e.cache.FinalPath(), e.flows.Active(), true)
	}
}
