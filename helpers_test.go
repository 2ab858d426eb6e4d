package invoicepdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"sync"
	"testing"
)

// testPNG encodes a white w×h bitmap.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

// Mock implementations for testing.

// mockSurface is an in-memory Surface. Zero-value errors mean success.
type mockSurface struct {
	targets  map[string]bool
	snapshot StyleSnapshot
	images   []ImageState
	stuck    map[int]bool // images that never settle
	capture  []byte

	lookupErr, stageErr, stylesErr, applyErr error
	imagesErr, rasterErr, unstageErr         error

	blockRaster bool   // Rasterize waits for ctx
	panicOn     string // method name that panics

	// stageGate, when set, holds Stage until closed; staging is signalled first.
	stageGate   chan struct{}
	staging     chan struct{}
	stagingOnce sync.Once

	mu         sync.Mutex
	staged     int
	live       int
	applied    []StylePatch
	awaited    []int
	rasterOpts CaptureOptions

	// State seen when Rasterize is called.
	awaitedAtCapture int
	appliedAtCapture int
}

var _ Surface = (*mockSurface)(nil)

func newMockSurface(t *testing.T, targetID string, w, h int) *mockSurface {
	t.Helper()
	return &mockSurface{
		targets: map[string]bool{targetID: true},
		capture: testPNG(t, w, h),
	}
}

func (m *mockSurface) maybePanic(method string) {
	if m.panicOn == method {
		panic("mock " + method + " exploded")
	}
}

func (m *mockSurface) Lookup(ctx context.Context, targetID string) (Node, error) {
	m.maybePanic("Lookup")
	if m.lookupErr != nil {
		return Node{}, m.lookupErr
	}
	if !m.targets[targetID] {
		return Node{}, ErrTargetNotFound
	}
	return Node{Ref: targetID}, nil
}

func (m *mockSurface) Stage(ctx context.Context, target Node) (Node, error) {
	m.maybePanic("Stage")
	if m.stageErr != nil {
		return Node{}, m.stageErr
	}
	if m.stageGate != nil {
		if m.staging != nil {
			m.stagingOnce.Do(func() { close(m.staging) })
		}
		<-m.stageGate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged++
	m.live++
	return Node{Ref: target.Ref + "-clone"}, nil
}

func (m *mockSurface) Unstage(ctx context.Context, clone Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unstageErr != nil {
		return m.unstageErr
	}
	m.live--
	return nil
}

func (m *mockSurface) ComputedStyles(ctx context.Context, clone Node) (StyleSnapshot, error) {
	m.maybePanic("ComputedStyles")
	return m.snapshot, m.stylesErr
}

func (m *mockSurface) ApplyStyles(ctx context.Context, clone Node, patches []StylePatch) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, patches...)
	return nil
}

func (m *mockSurface) Images(ctx context.Context, clone Node) ([]ImageState, error) {
	return m.images, m.imagesErr
}

func (m *mockSurface) AwaitImage(ctx context.Context, clone Node, index int) error {
	if m.stuck[index] {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awaited = append(m.awaited, index)
	return nil
}

func (m *mockSurface) Rasterize(ctx context.Context, clone Node, opts CaptureOptions) (*CaptureResult, error) {
	m.maybePanic("Rasterize")
	m.mu.Lock()
	m.rasterOpts = opts
	m.awaitedAtCapture = len(m.awaited)
	m.appliedAtCapture = len(m.applied)
	m.mu.Unlock()

	if m.blockRaster {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.rasterErr != nil {
		return nil, m.rasterErr
	}
	return &CaptureResult{PNG: m.capture}, nil
}

func (m *mockSurface) liveClones() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// elementPatch returns the patch applied to the element at index.
func (m *mockSurface) elementPatch(index int) (StylePatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.applied {
		if p.Index == index {
			return p, true
		}
	}
	return StylePatch{}, false
}

func (m *mockSurface) rootPatch() (StylePatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.applied {
		if p.Index == RootIndex {
			return p, true
		}
	}
	return StylePatch{}, false
}

// mockOpener hands out a fixed surface.
type mockOpener struct {
	surface Surface
	err     error

	mu       sync.Mutex
	html     string
	opened   int
	released bool
	closed   bool
}

var _ surfaceOpener = (*mockOpener)(nil)

func (m *mockOpener) Open(ctx context.Context, htmlContent string) (Surface, func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened++
	m.html = htmlContent
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.surface, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.released = true
		return nil
	}, nil
}

func (m *mockOpener) Close() error {
	m.closed = true
	return nil
}

// mockSaver records saved files.
type mockSaver struct {
	err error

	mu    sync.Mutex
	saved map[string][]byte
}

func (m *mockSaver) Save(ctx context.Context, filename string, pdf []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = pdf
	return "mem://" + filename, nil
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// mockNotifier records notifications.
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

func (m *mockNotifier) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// testHarness bundles an Exporter with its recording collaborators.
type testHarness struct {
	exporter *Exporter
	saver    *mockSaver
	notifier *mockNotifier
	logs     *bytes.Buffer
}

func newTestExporter(t *testing.T, opener surfaceOpener, opts ...Option) *testHarness {
	t.Helper()

	h := &testHarness{
		saver:    &mockSaver{},
		notifier: &mockNotifier{},
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := []Option{
		WithSaver(h.saver),
		WithNotifier(h.notifier),
		WithLogger(logger),
	}
	if opener != nil {
		base = append(base, withOpener(opener))
	} else {
		base = append(base, withOpener(&mockOpener{}))
	}

	e, err := NewExporter(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	h.exporter = e
	return h
}
