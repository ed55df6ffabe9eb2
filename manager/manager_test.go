package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/bus"
	"github.com/pipeless-ai/pipeless/hooks"
	"github.com/pipeless-ai/pipeless/models"
	"github.com/pipeless-ai/pipeless/stages"
)

// fakeInput is a no-op InputPipeline test double; the test drives events
// directly through the Manager's Bus rather than through a real decoder.
type fakeInput struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeInput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeInput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeOutput struct {
	mu      sync.Mutex
	caps    string
	tags    []map[string]string
	frames  []*models.Frame
	eosSeen bool
	closed  bool
}

func (f *fakeOutput) OnNewFrame(frame *models.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeOutput) OnNewTags(tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tags)
	return nil
}

func (f *fakeOutput) OnEOS() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eosSeen = true
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeOutput) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func noopInputFactory(in *fakeInput) InputPipelineFactory {
	return func(inputURI string, producer *bus.Bus) (InputPipeline, error) {
		return in, nil
	}
}

func fixedOutputFactory(out *fakeOutput) OutputPipelineFactory {
	return func(outputURI, caps string, initialTags map[string]string, producer *bus.Bus) (OutputPipeline, error) {
		out.caps = caps
		if initialTags != nil {
			out.tags = append(out.tags, initialTags)
		}
		return out, nil
	}
}

func newTestManager(t *testing.T, outputURI string) (*Manager, *fakeInput, *fakeOutput, chan models.DispatcherEvent) {
	t.Helper()
	stage := models.NewStage("identity")
	if err := stage.AddHook(&models.Hook{
		Phase: models.Process,
		Executor: hooks.NativeFunc(func(ctx context.Context, f *models.Frame, sc models.StageContext) (*models.Frame, error) {
			return f, nil
		}),
	}); err != nil {
		t.Fatalf("AddHook: %v", err)
	}
	registry := stages.NewRegistry(map[string]*models.Stage{"identity": stage})
	path, err := registry.NewFramePath("identity")
	if err != nil {
		t.Fatalf("NewFramePath: %v", err)
	}
	executor := stages.NewExecutor(registry, zerolog.Nop())

	in := &fakeInput{}
	out := &fakeOutput{}
	dispatcherEvents := make(chan models.DispatcherEvent, 4)

	m, err := New(
		"input://fake",
		outputURI,
		path,
		executor,
		noopInputFactory(in),
		fixedOutputFactory(out),
		dispatcherEvents,
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, in, out, dispatcherEvents
}

func TestManagerProcessesFrameWithNoOutputConfigured(t *testing.T) {
	m, _, out, _ := newTestManager(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	frame := models.NewFrame(uuid.New(), 1, []byte{1, 2, 3}, 4, 4)
	m.Bus().Send(models.NewFrameChangeEvent(frame))

	time.Sleep(50 * time.Millisecond)
	if out.frameCount() != 0 {
		t.Fatalf("expected no output pipeline to receive frames, got %d", out.frameCount())
	}
}

func TestManagerBuildsOutputLazilyOnNewInputCaps(t *testing.T) {
	m, _, out, _ := newTestManager(t, "output://fake")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Bus().Send(models.NewInputCapsEvent("video/x-raw,width=640"))
	time.Sleep(50 * time.Millisecond)

	frame := models.NewFrame(uuid.New(), 1, []byte{1, 2, 3}, 4, 4)
	m.Bus().Send(models.NewFrameChangeEvent(frame))
	time.Sleep(50 * time.Millisecond)

	if out.caps != "video/x-raw,width=640" {
		t.Fatalf("expected output pipeline built with observed caps, got %q", out.caps)
	}
	if out.frameCount() != 1 {
		t.Fatalf("expected 1 frame delivered to output, got %d", out.frameCount())
	}
}

func TestManagerStashesTagsBeforeOutputExists(t *testing.T) {
	m, _, out, _ := newTestManager(t, "output://fake")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Bus().Send(models.NewTagsChangeEvent(map[string]string{"title": "demo"}))
	time.Sleep(30 * time.Millisecond)
	m.Bus().Send(models.NewInputCapsEvent("video/x-raw"))
	time.Sleep(50 * time.Millisecond)

	if len(out.tags) != 1 || out.tags[0]["title"] != "demo" {
		t.Fatalf("expected stashed tags forwarded at output construction, got %+v", out.tags)
	}
}

func TestManagerEndOfInputStreamWithNoOutputFinishesCompleted(t *testing.T) {
	m, _, _, events := newTestManager(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Bus().Send(models.NewEndOfInputStreamEvent())

	select {
	case ev := <-events:
		if ev.Kind != models.PipelineFinished || ev.Reason != models.ReasonCompleted {
			t.Fatalf("expected PipelineFinished/Completed, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for PipelineFinished")
	}
}

func TestManagerEndOfOutputStreamFinishesCompleted(t *testing.T) {
	m, _, _, events := newTestManager(t, "output://fake")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Bus().Send(models.NewEndOfOutputStreamEvent())

	select {
	case ev := <-events:
		if ev.Kind != models.PipelineFinished || ev.Reason != models.ReasonCompleted {
			t.Fatalf("expected PipelineFinished/Completed, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for PipelineFinished")
	}
}

func TestManagerStreamErrorFinishesWithError(t *testing.T) {
	m, _, _, events := newTestManager(t, "output://fake")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Bus().Send(models.NewInputStreamErrorEvent("decoder crashed"))

	select {
	case ev := <-events:
		if ev.Kind != models.PipelineFinished || ev.Reason != models.ReasonError {
			t.Fatalf("expected PipelineFinished/Error, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for PipelineFinished")
	}
}

func TestManagerStopClosesBothPipelinesCooperatively(t *testing.T) {
	m, in, out, _ := newTestManager(t, "output://fake")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Bus().Send(models.NewInputCapsEvent("video/x-raw"))
	time.Sleep(30 * time.Millisecond)

	id := m.Stop()
	if id != m.PipelineID() {
		t.Fatalf("Stop returned wrong pipeline id")
	}
	if !in.isClosed() {
		t.Fatal("expected input pipeline closed")
	}
	out.mu.Lock()
	closed := out.closed
	out.mu.Unlock()
	if !closed {
		t.Fatal("expected output pipeline closed")
	}
}
