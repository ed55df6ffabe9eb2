package stages

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/pipeless-ai/pipeless/models"
)

// Executor is the Frame-Path Executor: it traverses a validated Frame Path
// over a frame, running each stage's PreProcess -> Process -> PostProcess
// hooks in that order. Every hook call runs on the calling goroutine once
// it holds a slot of a CPU-sized semaphore, so at most NumCPU hook bodies
// run at once; no separate worker pool is used.
type Executor struct {
	registry *Registry
	cpuPool  *semaphore.Weighted
	log      zerolog.Logger

	mu       sync.Mutex
	statesBy map[*models.Hook]*statefulState
}

// NewExecutor sizes the hook semaphore to the host's core count, distinct
// from (and independent of) the Event Bus's frame concurrency limit.
func NewExecutor(registry *Registry, log zerolog.Logger) *Executor {
	return &Executor{
		registry: registry,
		cpuPool:  semaphore.NewWeighted(int64(runtime.NumCPU())),
		log:      log,
		statesBy: make(map[*models.Hook]*statefulState),
	}
}

// Execute runs path over frame. A nil, nil return means a hook explicitly
// dropped the frame; a non-nil error means the hook failed and the caller
// should drop the frame and continue the stream rather than treat it as
// fatal.
func (e *Executor) Execute(ctx context.Context, path FramePath, frame *models.Frame) (*models.Frame, error) {
	current := frame
	for _, stageName := range path.Names() {
		stage, ok := e.registry.Stage(stageName)
		if !ok {
			e.log.Warn().Str("stage", stageName).Msg("stage not found, skipping execution")
			continue
		}

		for _, phase := range models.Phases() {
			hook, ok := stage.Hook(phase)
			if !ok {
				continue
			}
			result, err := e.runHook(ctx, hook, current, stage.Context)
			if err != nil {
				return nil, err
			}
			if result == nil {
				// Explicit drop: the path terminates early.
				return nil, nil
			}
			current = result
		}
	}
	return current, nil
}

// runHook enforces per-stream frame_number ordering for stateful hooks
// before acquiring a CPU semaphore slot for the invocation, and restores the
// frame's original buffer defensively regardless of what the hook did.
//
// The ordering wait must happen before cpuPool.Acquire: a stateful hook's
// waitTurn blocks until an earlier frame_number has been processed, and
// that earlier frame needs a pool slot of its own to make progress. If a
// frame acquired its slot first and then waited, NumCPU frames stuck
// waiting on an earlier one would exhaust the pool and nothing could ever
// acquire the slot the earlier frame needs — a permanent deadlock.
func (e *Executor) runHook(ctx context.Context, hook *models.Hook, frame *models.Frame, stageCtx models.StageContext) (*models.Frame, error) {
	var state *statefulState
	if hook.Stateful {
		state = e.statefulStateFor(hook)
		if err := state.waitTurn(ctx, frame.PipelineID, frame.FrameNumber); err != nil {
			return nil, err
		}
	}

	if err := e.cpuPool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.cpuPool.Release(1)

	original := frame.Original

	if hook.Stateful {
		state.lock.Lock()
		defer state.lock.Unlock()
		defer state.advance(frame.PipelineID, frame.FrameNumber)
	}

	result, err := hook.Executor.ExecHook(ctx, frame, stageCtx)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	result.Original = original
	return result, nil
}

func (e *Executor) statefulStateFor(hook *models.Hook) *statefulState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.statesBy[hook]
	if !ok {
		state = newStatefulState()
		e.statesBy[hook] = state
	}
	return state
}

// statefulState is the "one logical lock per hook" plus the per-stream
// last_processed_frame_number counter the stateful-hook contract requires.
// The lock is shared across every stream using this hook instance (stages
// are process-wide singletons), so a stateful hook body never runs
// concurrently with itself; the counter independently guarantees each
// stream enters in strictly increasing frame_number order.
type statefulState struct {
	lock sync.Mutex

	countersMu sync.Mutex
	lastByPipe map[uuid.UUID]uint64
}

func newStatefulState() *statefulState {
	return &statefulState{lastByPipe: make(map[uuid.UUID]uint64)}
}

// waitTurn blocks (cooperatively yielding between checks) until this
// stream's previous frame has been processed.
func (s *statefulState) waitTurn(ctx context.Context, pipelineID uuid.UUID, frameNumber uint64) error {
	for {
		s.countersMu.Lock()
		last := s.lastByPipe[pipelineID]
		s.countersMu.Unlock()

		if frameNumber == last+1 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}
}

func (s *statefulState) advance(pipelineID uuid.UUID, frameNumber uint64) {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	s.lastByPipe[pipelineID] = frameNumber
}
