package engine

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // artifact decoder for brightness read-back
	"os"
	"time"

	"github.com/papapumpkin/scrim/internal/brightness"
	"github.com/papapumpkin/scrim/internal/cache"
	"github.com/papapumpkin/scrim/internal/flow"
	"github.com/papapumpkin/scrim/internal/history"
	"github.com/papapumpkin/scrim/internal/host"
	"github.com/papapumpkin/scrim/internal/metadata"
	"github.com/papapumpkin/scrim/internal/telemetry"
)

// runCycle performs one evaluation: resolve the source image and
// geometry, check staleness, and launch regeneration when needed. It
// always leaves a fresh schedule entry behind, and reports whether a
// regeneration pipeline was launched.
func (e *Engine) runCycle(ctx context.Context, reason Reason) bool {
	e.emit(telemetry.Event{Kind: telemetry.KindCycleStart, Data: map[string]any{"reason": reason.String()}})

	identity, err := e.provider.Current(ctx)
	if err != nil {
		e.cycleError(fmt.Errorf("source image: %w", err))
		return false
	}
	if identity == "" {
		// No wallpaper known yet: transient, not an error worth logging.
		e.emit(telemetry.Event{Kind: telemetry.KindCycleSkipped, Data: map[string]any{"cause": "no_source"}})
		e.scheduleAfter(e.cfg.ErrorInterval, ReasonError)
		return false
	}

	e.tracker.SetViewport(e.bridge.Viewport())
	e.tracker.SetDisplays(e.bridge.Displays())
	e.snap = e.tracker.Snapshot()
	e.mode = e.cfg.Mode(e.bridge.Theme() == host.ThemeDark)

	if !e.snap.Display.Positive() {
		e.cycleError(fmt.Errorf("invalid display bounds %+v", e.snap.Display))
		return false
	}

	force := e.forceNext || reason == ReasonForce
	e.forceNext = false

	display := image.Pt(e.snap.Display.W, e.snap.Display.H)
	outcome, id := e.cache.EvaluateAndRegenerate(ctx, identity, display, force)

	switch outcome {
	case cache.OutcomeFresh:
		// Reuse the existing final rendition; re-apply only if it is
		// not already the visible image. The restore flag bypasses the
		// flow guard — reuse issues no flow.
		if e.trans.Applied() != e.cache.FinalPath() {
			e.trans.Apply(e.cache.FinalPath(), id, true)
		}
		e.emit(telemetry.Event{Kind: telemetry.KindCycleSkipped, FlowID: int64(id), Data: map[string]any{"cause": "fresh"}})

	case cache.OutcomeStarted:
		e.printer.RegenStart(int64(id), identity, display.X, display.Y)
		e.emit(telemetry.Event{Kind: telemetry.KindRegenStart, FlowID: int64(id), Data: map[string]any{
			"identity": identity,
			"width":    display.X,
			"height":   display.Y,
		}})
	}

	e.reposition()
	e.scheduleAfter(e.cfg.PollInterval, ReasonInterval)
	return outcome == cache.OutcomeStarted
}

// cycleError logs a transient failure and backs off on the error
// interval. Nothing is torn down; the last applied image stays visible.
func (e *Engine) cycleError(err error) {
	e.printer.Warn(err.Error())
	e.emit(telemetry.Event{Kind: telemetry.KindCycleError, Data: map[string]any{"error": err.Error()}})
	e.scheduleAfter(e.cfg.ErrorInterval, ReasonError)
}

// handleHostEvent reacts to one bridge notification. It returns true
// when the schedule changed and the loop timer must be re-armed.
func (e *Engine) handleHostEvent(ev host.Event, geomTimer *time.Timer) bool {
	switch ev.Kind {
	case host.EventMoved, host.EventResized, host.EventMaximized, host.EventRestored:
		if ev.Viewport.Positive() {
			e.tracker.SetViewport(ev.Viewport)
		}
		resetTimer(geomTimer, geometryDebounce)
		return false

	case host.EventDisplaysChanged:
		e.tracker.SetDisplays(ev.Displays)
		// A display change can alter the resolved resolution, which is
		// a staleness trigger; evaluate promptly.
		e.scheduleNow(ReasonGeometry)
		return true

	case host.EventThemeChanged:
		e.mode = e.cfg.Mode(ev.Theme == host.ThemeDark)
		e.updateOverlay()
		return false

	case host.EventTransitionComplete:
		e.trans.NotifyComplete()
		return false
	}
	return false
}

// refreshViewportDependent runs after the geometry debounce window:
// reposition the backdrop and resample brightness once per coalesced
// burst of move/resize events.
func (e *Engine) refreshViewportDependent() {
	e.snap = e.tracker.Snapshot()
	e.emit(telemetry.Event{Kind: telemetry.KindGeometryChange, Data: map[string]any{
		"viewport": fmt.Sprintf("%+v", e.snap.Viewport),
		"display":  fmt.Sprintf("%+v", e.snap.Display),
	}})
	e.reposition()
	e.updateOverlay()

	// A resize may have moved the window onto a different-resolution
	// display; let the next cycle re-evaluate staleness soon.
	e.scheduleNow(ReasonGeometry)
}

// reposition translates the display-sized backdrop so it stays fixed to
// the desktop while the window moves.
func (e *Engine) reposition() {
	dx, dy := e.snap.Offset()
	if err := e.bridge.SetBackdropOffset(dx, dy); err != nil {
		e.printer.Warn(fmt.Sprintf("reposition: %v", err))
	}
}

// handlePipeEvent processes one pipeline notification. Returns true
// when the schedule changed.
func (e *Engine) handlePipeEvent(ctx context.Context, pe pipeEvent) bool {
	switch pe.kind {
	case pipeStage:
		e.handleStage(ctx, pe.res)
		return false

	case pipeDiscarded:
		e.printer.StageDiscarded(stageName(pe.stage), int64(pe.id))
		e.emit(telemetry.Event{Kind: telemetry.KindStageDiscarded, FlowID: int64(pe.id), Data: map[string]any{"stage": stageName(pe.stage)}})
		e.record(ctx, history.Entry{FlowID: int64(pe.id), Stage: stageName(pe.stage), Outcome: "discarded"})
		return false

	case pipeFailed:
		e.printer.Warn(pe.err.Error())
		e.record(ctx, history.Entry{FlowID: int64(pe.id), Stage: stageName(pe.stage), Outcome: "error"})
		return false

	case pipeDone:
		if pe.err != nil {
			e.emit(telemetry.Event{Kind: telemetry.KindCycleError, FlowID: int64(pe.id), Data: map[string]any{"error": pe.err.Error()}})
			e.scheduleAfter(e.cfg.ErrorInterval, ReasonError)
		} else {
			e.scheduleAfter(e.cfg.PollInterval, ReasonInterval)
		}
		return true
	}
	return false
}

// handleStage applies one successful pipeline stage through the
// transition controller and records it. The final stage also updates
// the last-applied record and persists metadata for cold-start reuse.
func (e *Engine) handleStage(ctx context.Context, res cache.Result) {
	e.trans.Apply(res.Path, res.Flow, false)

	kind := telemetry.KindPreviewApplied
	if res.Kind == cache.KindFinal {
		kind = telemetry.KindFinalApplied
	}
	e.printer.StageApplied(stageName(res.Kind), int64(res.Flow), res.Duration.Milliseconds())
	e.emit(telemetry.Event{Kind: kind, FlowID: int64(res.Flow), Data: map[string]any{"path": res.Path}})
	e.record(ctx, history.Entry{
		FlowID:     int64(res.Flow),
		Identity:   res.Identity,
		Width:      res.Width,
		Height:     res.Height,
		Stage:      stageName(res.Kind),
		Outcome:    "applied",
		DurationMs: res.Duration.Milliseconds(),
	})

	if res.Kind == cache.KindFinal && e.flows.Current(res.Flow) {
		e.cache.MarkApplied(res.Identity, res.Width, res.Height)
		if err := metadata.Save(e.metaPath, metadata.Metadata{
			LastSourceImage:   res.Identity,
			LastDisplayWidth:  res.Width,
			LastDisplayHeight: res.Height,
		}); err != nil {
			e.printer.Warn(err.Error())
		}
	}
}

// handleApplied runs after the transition controller marks an image
// applied: decode it once for brightness read-back, then recompute the
// overlay.
func (e *Engine) handleApplied(path string) {
	if path != e.backdropPath {
		e.backdrop = nil
		e.backdropPath = path
		f, err := os.Open(path)
		if err == nil {
			img, _, derr := image.Decode(f)
			f.Close()
			if derr == nil {
				e.backdrop = img
			} else {
				e.printer.Warn(fmt.Sprintf("decode backdrop: %v", derr))
			}
		}
	}
	e.updateOverlay()
}

// updateOverlay recomputes the scrim color from the visible region's
// extreme brightness. Sampling failure degrades to the deterministic
// extreme alpha for the active mode rather than leaving the overlay
// stale.
func (e *Engine) updateOverlay() {
	if !e.cfg.Overlay.Enabled {
		return
	}

	params := e.cfg.AlphaParams()
	extreme := brightness.Sentinel(e.mode)
	if e.backdrop != nil {
		scale := 1.0
		if ratio := e.appliedZipRatio(); ratio > 0 {
			scale = 1.0 / ratio
		}
		extreme = brightness.SampleExtreme(e.backdrop, e.snap.ContentRect(), scale, e.mode)
	}

	alpha := brightness.AlphaFor(extreme, e.mode, params)
	color := brightness.OverlayColor(e.cfg.OverlayRGB(e.mode), alpha)
	if err := e.bridge.SetOverlay(color); err != nil {
		e.printer.Warn(fmt.Sprintf("overlay: %v", err))
		return
	}
	e.printer.OverlayUpdate(color, extreme)
	e.emit(telemetry.Event{Kind: telemetry.KindOverlayUpdate, Data: map[string]any{
		"color":    color,
		"extreme":  extreme,
		"mode":     e.mode.String(),
	}})
}

// appliedZipRatio returns the reduction ratio of the currently applied
// artifact, which the sampler needs to scale display coordinates into
// artifact pixels.
func (e *Engine) appliedZipRatio() float64 {
	if e.backdropPath == e.cache.PreviewPath() {
		return e.cfg.PreviewZipRatio
	}
	return e.cache.FinalZipRatio()
}

// record appends a history entry, tolerating a missing store.
func (e *Engine) record(ctx context.Context, entry history.Entry) {
	if err := e.hist.Record(ctx, entry); err != nil {
		e.printer.Debug(fmt.Sprintf("history: %v", err))
	}
}

// emit writes a telemetry event, tolerating a missing emitter.
func (e *Engine) emit(evt telemetry.Event) {
	if err := e.tel.Emit(evt); err != nil {
		e.printer.Debug(err.Error())
	}
}

func stageName(k cache.Kind) string {
	if k == cache.KindFinal {
		return "final"
	}
	return "preview"
}

// --- cache.Sink implementation -------------------------------------

// StageApplied forwards a successful stage into the engine loop.
func (e *Engine) StageApplied(res cache.Result) {
	e.pipeCh <- pipeEvent{kind: pipeStage, res: res, id: res.Flow, stage: res.Kind}
}

// StageDiscarded forwards a stale-stage notification.
func (e *Engine) StageDiscarded(id flow.ID, kind cache.Kind) {
	e.pipeCh <- pipeEvent{kind: pipeDiscarded, id: id, stage: kind}
}

// StageFailed forwards a transform failure.
func (e *Engine) StageFailed(id flow.ID, kind cache.Kind, err error) {
	e.pipeCh <- pipeEvent{kind: pipeFailed, id: id, stage: kind, err: err}
}

// PipelineDone forwards the end-of-pipeline signal.
func (e *Engine) PipelineDone(id flow.ID, err error) {
	e.pipeCh <- pipeEvent{kind: pipeDone, id: id, err: err}
}

// RunOnce executes a single synchronous cycle: evaluate, and when a
// regeneration starts, drain pipeline events until the final rendition
// is both generated and visible. Used by the regen command.
func (e *Engine) RunOnce(ctx context.Context, force bool) error {
	e.restore()
	e.forceNext = force
	if !e.runCycle(ctx, ReasonForce) {
		// Nothing launched: the artifacts were already current, or the
		// cycle failed transiently.
		return nil
	}

	// The final stage's application is asynchronous: it may sit queued
	// behind the preview animation when the pipeline-done signal lands,
	// so completion requires both the done signal and the final path
	// becoming the applied backdrop.
	done := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pe := <-e.pipeCh:
			e.handlePipeEvent(ctx, pe)
			if pe.kind == pipeDone {
				if pe.err != nil {
					return pe.err
				}
				if e.trans.Applied() == e.cache.FinalPath() {
					return nil
				}
				done = true
			}
		case path := <-e.appliedCh:
			e.handleApplied(path)
			if done && path == e.cache.FinalPath() {
				return nil
			}
		}
	}
}
