// Package cache decides when the blurred backdrop artifacts are stale
// and drives the two-stage regeneration pipeline: a fast preview for
// near-instant feedback, then the final rendition at full display
// resolution. Stale results are never applied; the flow id captured at
// pipeline start is re-checked before every hand-off.
package cache

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/papapumpkin/scrim/internal/blur"
	"github.com/papapumpkin/scrim/internal/flow"
)

// Kind distinguishes the two artifact renditions.
type Kind int

const (
	KindPreview Kind = iota
	KindFinal
)

// Profile holds the transform parameters for one rendition.
type Profile struct {
	ZipRatio float64 // downscale divisor relative to the display size
	Radius   int     // blur radius in output pixels
	Quality  int     // JPEG quality
}

// Result is one successful pipeline stage, tagged with the flow it
// belongs to. The sink must discard results whose flow is stale.
type Result struct {
	Kind     Kind
	Path     string
	Flow     flow.ID
	Identity string
	Width    int // display width the artifact targets
	Height   int
	ZipRatio float64
	Duration time.Duration
}

// Outcome summarizes one EvaluateAndRegenerate call.
type Outcome int

const (
	OutcomeFresh   Outcome = iota // artifacts current, nothing invoked
	OutcomeStarted                // regeneration pipeline launched
)

// Sink receives pipeline stage results and the end-of-pipeline signal.
// StageApplied is called once per successful current-flow stage;
// StageDiscarded when a stage finished but its flow had gone stale;
// StageFailed when the transform itself errored. PipelineDone fires
// exactly once per launched pipeline, with the first stage error if any
// stage failed.
type Sink interface {
	StageApplied(res Result)
	StageDiscarded(id flow.ID, kind Kind)
	StageFailed(id flow.ID, kind Kind, err error)
	PipelineDone(id flow.ID, err error)
}

// Manager owns staleness evaluation and artifact paths.
type Manager struct {
	transformer blur.Transformer
	flows       *flow.Sequencer
	sink        Sink
	preview     Profile
	final       Profile
	dir         string

	mu           sync.Mutex
	lastIdentity string // identity of the last applied final rendition
	lastW, lastH int    // display size the final rendition targets
}

// NewManager creates a manager writing artifacts into dir.
func NewManager(t blur.Transformer, flows *flow.Sequencer, sink Sink, dir string, preview, final Profile) *Manager {
	return &Manager{
		transformer: t,
		flows:       flows,
		sink:        sink,
		preview:     preview,
		final:       final,
		dir:         dir,
	}
}

// PreviewPath returns the fixed on-disk location of the preview artifact.
func (m *Manager) PreviewPath() string {
	return filepath.Join(m.dir, artifactName(KindPreview))
}

// FinalPath returns the fixed on-disk location of the final artifact.
func (m *Manager) FinalPath() string {
	return filepath.Join(m.dir, artifactName(KindFinal))
}

// FinalZipRatio exposes the final rendition's reduction ratio, needed by
// the brightness sampler to scale viewport coordinates into artifact
// pixels.
func (m *Manager) FinalZipRatio() float64 {
	return m.final.ZipRatio
}

// Seed primes the last-applied record from persisted metadata, so an
// unchanged wallpaper with surviving artifacts skips the first-run
// regeneration.
func (m *Manager) Seed(identity string, width, height int) {
	m.mu.Lock()
	m.lastIdentity = identity
	m.lastW, m.lastH = width, height
	m.mu.Unlock()
}

// MarkApplied records that the final rendition for identity at the given
// display size is now the applied image.
func (m *Manager) MarkApplied(identity string, width, height int) {
	m.Seed(identity, width, height)
}

// stale reports whether regeneration is required. Any one condition
// suffices: forced, identity change, a missing artifact, or a final
// rendition targeting a different display size. A display resize
// regenerates both renditions; both are resolution-dependent.
func (m *Manager) stale(identity string, display image.Point, force bool) bool {
	if force {
		return true
	}
	m.mu.Lock()
	lastIdentity, lastW, lastH := m.lastIdentity, m.lastW, m.lastH
	m.mu.Unlock()

	switch {
	case identity != lastIdentity:
		return true
	case !exists(m.PreviewPath()):
		return true
	case !exists(m.FinalPath()):
		return true
	case display.X != lastW || display.Y != lastH:
		return true
	}
	return false
}

// EvaluateAndRegenerate checks staleness and, when required, issues a
// fresh flow id and launches the two-stage pipeline in the background.
// When the artifacts are current it performs no I/O beyond existence
// checks and invokes no transform.
func (m *Manager) EvaluateAndRegenerate(ctx context.Context, identity string, display image.Point, force bool) (Outcome, flow.ID) {
	if !m.stale(identity, display, force) {
		return OutcomeFresh, m.flows.Active()
	}

	id := m.flows.Issue()
	go m.runPipeline(ctx, id, identity, display)
	return OutcomeStarted, id
}

// runPipeline executes the preview and final stages for one flow. A
// stage whose flow has gone stale still finishes its on-disk write —
// the artifact path is fixed, so a later cycle can reuse it — but its
// result is not handed to the sink.
func (m *Manager) runPipeline(ctx context.Context, id flow.ID, identity string, display image.Point) {
	var firstErr error

	if err := m.runStage(ctx, id, KindPreview, identity, display, m.preview); err != nil {
		m.sink.StageFailed(id, KindPreview, err)
		firstErr = err
	}
	if err := m.runStage(ctx, id, KindFinal, identity, display, m.final); err != nil {
		m.sink.StageFailed(id, KindFinal, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	m.sink.PipelineDone(id, firstErr)
}

// runStage invokes the transform for one rendition and hands the result
// to the sink if the flow is still current.
func (m *Manager) runStage(ctx context.Context, id flow.ID, kind Kind, identity string, display image.Point, prof Profile) error {
	start := time.Now()
	out := filepath.Join(m.dir, artifactName(kind))

	path, err := m.transformer.Transform(ctx, identity, display, blur.Options{
		OutPath:  out,
		ZipRatio: prof.ZipRatio,
		Radius:   prof.Radius,
		Quality:  prof.Quality,
	})
	if err != nil {
		return fmt.Errorf("cache: %s stage: %w", describe(kind), err)
	}

	// The write above is side-effect-safe even when stale; only the
	// hand-off is guarded.
	if !m.flows.Current(id) {
		m.sink.StageDiscarded(id, kind)
		return nil
	}

	m.sink.StageApplied(Result{
		Kind:     kind,
		Path:     path,
		Flow:     id,
		Identity: identity,
		Width:    display.X,
		Height:   display.Y,
		ZipRatio: prof.ZipRatio,
		Duration: time.Since(start),
	})
	return nil
}
