package cache

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/papapumpkin/scrim/internal/blur"
	"github.com/papapumpkin/scrim/internal/flow"
)

// fakeTransformer records invocations and writes a stub artifact.
type fakeTransformer struct {
	mu      sync.Mutex
	calls   []blur.Options
	release chan struct{} // when non-nil, Transform blocks until closed
	err     error
}

func (f *fakeTransformer) Transform(ctx context.Context, src string, target image.Point, opts blur.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(opts.OutPath, []byte("artifact"), 0o644); err != nil {
		return "", err
	}
	return opts.OutPath, nil
}

func (f *fakeTransformer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordSink collects pipeline notifications.
type recordSink struct {
	mu        sync.Mutex
	applied   []Result
	discarded []Kind
	failed    []error
	done      chan error
}

func newRecordSink() *recordSink {
	return &recordSink{done: make(chan error, 1)}
}

func (s *recordSink) StageApplied(res Result) {
	s.mu.Lock()
	s.applied = append(s.applied, res)
	s.mu.Unlock()
}

func (s *recordSink) StageDiscarded(id flow.ID, kind Kind) {
	s.mu.Lock()
	s.discarded = append(s.discarded, kind)
	s.mu.Unlock()
}

func (s *recordSink) StageFailed(id flow.ID, kind Kind, err error) {
	s.mu.Lock()
	s.failed = append(s.failed, err)
	s.mu.Unlock()
}

func (s *recordSink) PipelineDone(id flow.ID, err error) {
	s.done <- err
}

func (s *recordSink) appliedResults() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.applied...)
}

func (s *recordSink) waitDone(t *testing.T) error {
	t.Helper()
	select {
	case err := <-s.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not complete")
		return nil
	}
}

func newTestManager(t *testing.T, tr blur.Transformer, sink Sink) (*Manager, *flow.Sequencer) {
	t.Helper()
	flows := &flow.Sequencer{}
	m := NewManager(tr, flows, sink, t.TempDir(),
		Profile{ZipRatio: 8, Radius: 24, Quality: 40},
		Profile{ZipRatio: 4, Radius: 12, Quality: 80},
	)
	return m, flows
}

func seedArtifacts(t *testing.T, m *Manager) {
	t.Helper()
	for _, p := range []string{m.PreviewPath(), m.FinalPath()} {
		if err := os.WriteFile(p, []byte("artifact"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEvaluateFreshIsNoop(t *testing.T) {
	tr := &fakeTransformer{}
	sink := newRecordSink()
	m, flows := newTestManager(t, tr, sink)

	seedArtifacts(t, m)
	m.Seed("wallpaper1.jpg", 1920, 1080)
	before := flows.Active()

	outcome, _ := m.EvaluateAndRegenerate(context.Background(), "wallpaper1.jpg", image.Pt(1920, 1080), false)
	if outcome != OutcomeFresh {
		t.Fatalf("outcome = %v, want OutcomeFresh", outcome)
	}
	if tr.callCount() != 0 {
		t.Errorf("transform invoked %d times, want 0", tr.callCount())
	}
	if flows.Active() != before {
		t.Error("fresh evaluation must not issue a flow")
	}
}

func TestForceRegeneratesBothStages(t *testing.T) {
	tr := &fakeTransformer{}
	sink := newRecordSink()
	m, flows := newTestManager(t, tr, sink)

	seedArtifacts(t, m)
	m.Seed("wallpaper1.jpg", 1920, 1080)

	outcome, id := m.EvaluateAndRegenerate(context.Background(), "wallpaper1.jpg", image.Pt(1920, 1080), true)
	if outcome != OutcomeStarted {
		t.Fatalf("outcome = %v, want OutcomeStarted", outcome)
	}
	if err := sink.waitDone(t); err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	if tr.callCount() != 2 {
		t.Errorf("transform invoked %d times, want 2", tr.callCount())
	}
	if flows.Active() != id {
		t.Errorf("expected exactly one flow issuance; active %d, issued %d", flows.Active(), id)
	}

	applied := sink.appliedResults()
	if len(applied) != 2 {
		t.Fatalf("applied %d stages, want 2", len(applied))
	}
	if applied[0].Kind != KindPreview || applied[1].Kind != KindFinal {
		t.Errorf("stage order = %v, %v; want preview then final", applied[0].Kind, applied[1].Kind)
	}
	if applied[0].Flow != id || applied[1].Flow != id {
		t.Errorf("stages tagged %d/%d, want both %d", applied[0].Flow, applied[1].Flow, id)
	}
}

func TestIdentityChangeIsStale(t *testing.T) {
	tr := &fakeTransformer{}
	sink := newRecordSink()
	m, _ := newTestManager(t, tr, sink)

	seedArtifacts(t, m)
	m.Seed("old.jpg", 1920, 1080)

	outcome, _ := m.EvaluateAndRegenerate(context.Background(), "new.jpg", image.Pt(1920, 1080), false)
	if outcome != OutcomeStarted {
		t.Fatalf("identity change: outcome = %v, want OutcomeStarted", outcome)
	}
	sink.waitDone(t)
}

func TestDisplayResizeIsStale(t *testing.T) {
	tr := &fakeTransformer{}
	sink := newRecordSink()
	m, _ := newTestManager(t, tr, sink)

	seedArtifacts(t, m)
	m.Seed("wallpaper1.jpg", 1920, 1080)

	outcome, _ := m.EvaluateAndRegenerate(context.Background(), "wallpaper1.jpg", image.Pt(2560, 1440), false)
	if outcome != OutcomeStarted {
		t.Fatalf("display resize: outcome = %v, want OutcomeStarted", outcome)
	}
	if err := sink.waitDone(t); err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	// Both renditions regenerate at the new size.
	if tr.callCount() != 2 {
		t.Errorf("transform invoked %d times, want 2", tr.callCount())
	}
	for _, res := range sink.appliedResults() {
		if res.Width != 2560 || res.Height != 1440 {
			t.Errorf("stage targeted %dx%d, want 2560x1440", res.Width, res.Height)
		}
	}
}

func TestMissingArtifactIsStale(t *testing.T) {
	tr := &fakeTransformer{}
	sink := newRecordSink()
	m, _ := newTestManager(t, tr, sink)

	m.Seed("wallpaper1.jpg", 1920, 1080)
	if err := os.WriteFile(m.PreviewPath(), []byte("artifact"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Final artifact deliberately absent.

	outcome, _ := m.EvaluateAndRegenerate(context.Background(), "wallpaper1.jpg", image.Pt(1920, 1080), false)
	if outcome != OutcomeStarted {
		t.Fatalf("missing final: outcome = %v, want OutcomeStarted", outcome)
	}
	sink.waitDone(t)
}

func TestStaleFlowResultsDiscarded(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTransformer{release: release}
	sink := newRecordSink()
	m, flows := newTestManager(t, tr, sink)

	outcome, id := m.EvaluateAndRegenerate(context.Background(), "a.jpg", image.Pt(1920, 1080), true)
	if outcome != OutcomeStarted {
		t.Fatal("expected pipeline start")
	}

	// A newer flow supersedes the in-flight one before any stage lands.
	flows.Issue()
	if flows.Current(id) {
		t.Fatal("superseded flow still current")
	}
	close(release)

	if err := sink.waitDone(t); err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	if got := sink.appliedResults(); len(got) != 0 {
		t.Errorf("stale flow applied %d stages, want 0", len(got))
	}
	sink.mu.Lock()
	discarded := len(sink.discarded)
	sink.mu.Unlock()
	if discarded != 2 {
		t.Errorf("discarded %d stages, want 2", discarded)
	}

	// The on-disk writes still completed for reuse by a later cycle.
	if _, err := os.Stat(m.FinalPath()); err != nil {
		t.Errorf("stale flow's artifact missing: %v", err)
	}
}

func TestTransformFailureIsNonFatal(t *testing.T) {
	wantErr := errors.New("decode failed")
	tr := &fakeTransformer{err: wantErr}
	sink := newRecordSink()
	m, _ := newTestManager(t, tr, sink)

	outcome, _ := m.EvaluateAndRegenerate(context.Background(), "a.jpg", image.Pt(1920, 1080), true)
	if outcome != OutcomeStarted {
		t.Fatal("expected pipeline start")
	}

	err := sink.waitDone(t)
	if !errors.Is(err, wantErr) {
		t.Errorf("PipelineDone error = %v, want wrapped %v", err, wantErr)
	}
	if len(sink.appliedResults()) != 0 {
		t.Error("failed stages must not be applied")
	}
	sink.mu.Lock()
	failed := len(sink.failed)
	sink.mu.Unlock()
	if failed != 2 {
		t.Errorf("failed notifications = %d, want 2", failed)
	}
}

func TestPrepareDirFallback(t *testing.T) {
	tmp := t.TempDir()

	// First candidate is a regular file: MkdirAll under it must fail.
	blocked := filepath.Join(tmp, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	usable := filepath.Join(tmp, "usable")

	dir, err := PrepareDir([]string{filepath.Join(blocked, "nested"), usable})
	if err != nil {
		t.Fatalf("PrepareDir: %v", err)
	}
	if filepath.Dir(dir) != usable {
		t.Errorf("dir = %q, want under %q", dir, usable)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("prepared dir missing: %v", err)
	}
}

func TestPrepareDirNoCandidates(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := PrepareDir([]string{"", filepath.Join(blocked, "sub")})
	if !errors.Is(err, ErrNoWritableDir) {
		t.Errorf("err = %v, want ErrNoWritableDir", err)
	}
}
