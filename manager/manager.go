package manager

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pipeless-ai/pipeless/bus"
	"github.com/pipeless-ai/pipeless/models"
	"github.com/pipeless-ai/pipeless/stages"
)

// FrameConcurrencyLimit is "2x the CPU core count by construction", shared
// by both the Event Bus's buffer capacity and the Manager's process_events
// concurrency limit.
func FrameConcurrencyLimit() int {
	return runtime.NumCPU() * 2
}

// Manager is the per-stream event loop: one Manager per stream, owning its
// Event Bus, input pipeline, optional (initially absent) output pipeline,
// and a handle to send Dispatcher events.
type Manager struct {
	pipelineID uuid.UUID
	outputURI  string
	framePath  stages.FramePath

	bus              *bus.Bus
	executor         *stages.Executor
	dispatcherEvents chan<- models.DispatcherEvent
	outputFactory    OutputPipelineFactory

	log zerolog.Logger

	mu             sync.RWMutex
	inputPipeline  InputPipeline
	outputPipeline OutputPipeline
	pendingTags    map[string]string
}

// New builds the input pipeline immediately (decoding starts right away)
// and stashes the output URI without building the output pipeline yet —
// output dimensions/framerate aren't known until the first NewInputCaps.
func New(
	inputURI, outputURI string,
	framePath stages.FramePath,
	executor *stages.Executor,
	inputFactory InputPipelineFactory,
	outputFactory OutputPipelineFactory,
	dispatcherEvents chan<- models.DispatcherEvent,
	log zerolog.Logger,
) (*Manager, error) {
	pipelineID := uuid.New()
	eventBus := bus.New(FrameConcurrencyLimit(), log)

	m := &Manager{
		pipelineID:       pipelineID,
		outputURI:        outputURI,
		framePath:        framePath,
		bus:              eventBus,
		executor:         executor,
		dispatcherEvents: dispatcherEvents,
		outputFactory:    outputFactory,
		log:              log.With().Str("pipeline_id", pipelineID.String()).Logger(),
	}

	input, err := inputFactory(inputURI, eventBus)
	if err != nil {
		return nil, fmt.Errorf("constructing input pipeline: %w", err)
	}
	m.inputPipeline = input

	return m, nil
}

func (m *Manager) PipelineID() uuid.UUID { return m.pipelineID }

// Bus exposes the Manager's Event Bus so an input pipeline implementation
// built outside this package can send onto it.
func (m *Manager) Bus() *bus.Bus { return m.bus }

// Start spawns the consumer loop. It returns immediately; the loop runs
// until ctx is canceled, the bus is closed, or SignalEnd fires.
func (m *Manager) Start(ctx context.Context) {
	go bus.ProcessEvents(ctx, m.bus, FrameConcurrencyLimit(), m.handleEvent)
}

func (m *Manager) handleEvent(ctx context.Context, event models.BusEvent) error {
	switch event.Kind {
	case models.FrameChange:
		return m.handleFrameChange(ctx, event.Frame)
	case models.NewInputCaps:
		m.handleNewInputCaps(event.Caps)
	case models.TagsChange:
		m.handleTagsChange(event.Tags)
	case models.EndOfInputStream:
		m.handleEndOfInputStream()
	case models.EndOfOutputStream:
		m.finish(models.ReasonCompleted)
		m.bus.SignalEnd()
	case models.InputStreamError, models.OutputStreamError:
		m.log.Error().Str("event", event.Kind.String()).Str("error", event.Err).Msg("stream error")
		m.finish(models.ReasonError)
		m.bus.SignalEnd()
	}
	return nil
}

func (m *Manager) handleFrameChange(ctx context.Context, frame *models.Frame) error {
	result, err := m.executor.Execute(ctx, m.framePath, frame)
	if err != nil {
		// Hook errors drop the affected frame; the stream continues.
		m.log.Error().Err(err).Uint64("frame_number", frame.FrameNumber).Msg("frame path execution failed, dropping frame")
		return nil
	}
	if result == nil {
		m.log.Debug().Uint64("frame_number", frame.FrameNumber).Msg("frame path returned no frame, dropping")
		return nil
	}

	m.mu.RLock()
	out := m.outputPipeline
	m.mu.RUnlock()
	if out == nil {
		m.log.Debug().Uint64("frame_number", frame.FrameNumber).Msg("no output pipeline, dropping processed frame")
		return nil
	}
	if err := out.OnNewFrame(result); err != nil {
		m.log.Error().Err(err).Msg("output pipeline rejected frame")
	}
	return nil
}

func (m *Manager) handleNewInputCaps(caps string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outputPipeline != nil || m.outputURI == "" {
		return
	}
	out, err := m.outputFactory(m.outputURI, caps, m.pendingTags, m.bus)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to build output pipeline, stream continues without output")
		return
	}
	m.outputPipeline = out
}

func (m *Manager) handleTagsChange(tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outputPipeline != nil {
		if err := m.outputPipeline.OnNewTags(tags); err != nil {
			m.log.Error().Err(err).Msg("output pipeline rejected tags")
		}
		return
	}
	m.pendingTags = tags
}

func (m *Manager) handleEndOfInputStream() {
	m.mu.RLock()
	out := m.outputPipeline
	m.mu.RUnlock()

	if out != nil {
		if err := out.OnEOS(); err != nil {
			m.log.Error().Err(err).Msg("error sending EOS downstream")
		}
		return
	}

	// No output configured: the stream is done as soon as input EOS arrives.
	m.finish(models.ReasonCompleted)
	m.bus.SignalEnd()
}

func (m *Manager) finish(reason models.FinishReason) {
	select {
	case m.dispatcherEvents <- models.NewPipelineFinishedEvent(m.pipelineID, reason):
	default:
		m.log.Warn().Str("reason", reason.String()).Msg("dispatcher event channel full, finish event dropped")
	}
}

// Stop is cooperative: it tells the input and output pipelines to halt
// concurrently and returns the pipeline id. It does not emit EOS events —
// the caller (the Dispatcher) treats this as a forced teardown and sets
// outcome itself.
func (m *Manager) Stop() uuid.UUID {
	m.mu.RLock()
	in, out := m.inputPipeline, m.outputPipeline
	m.mu.RUnlock()

	var g errgroup.Group
	if in != nil {
		g.Go(func() error { return in.Close() })
	}
	if out != nil {
		g.Go(func() error { return out.Close() })
	}
	if err := g.Wait(); err != nil {
		m.log.Warn().Err(err).Msg("error closing pipelines during stop")
	}
	return m.pipelineID
}
