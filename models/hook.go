package models

import (
	"context"
	"fmt"
	"strings"
)

// Phase enumerates the three points in a stage a hook may bind to. The
// source carries near-duplicate code per phase (PreProcess/Process/
// PostProcess); this type lets the executor traverse them uniformly with
// a single loop instead.
type Phase int

const (
	PreProcess Phase = iota
	Process
	PostProcess
)

var phaseOrder = [...]Phase{PreProcess, Process, PostProcess}

// Phases returns the three phases in their mandatory traversal order.
func Phases() []Phase {
	return phaseOrder[:]
}

func (p Phase) String() string {
	switch p {
	case PreProcess:
		return "pre-process"
	case Process:
		return "process"
	case PostProcess:
		return "post-process"
	default:
		return "unknown"
	}
}

// ParsePhase accepts both hyphen and underscore spellings, matching the
// "pre-process.*" / "pre_process.*" file-naming convention from the
// project layout.
func ParsePhase(s string) (Phase, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch normalized {
	case "pre-process":
		return PreProcess, nil
	case "process":
		return Process, nil
	case "post-process":
		return PostProcess, nil
	default:
		return 0, fmt.Errorf("unknown hook phase %q", s)
	}
}

// StageContext is the sum type passed by shared reference to every hook
// call for a stage: Empty when the stage has no init hook, or an opaque
// language-specific payload otherwise. The executor never inspects it.
type StageContext interface {
	isStageContext()
}

// EmptyStageContext is used by stages with no init hook.
type EmptyStageContext struct{}

func (EmptyStageContext) isStageContext() {}

// ScriptStageContext carries whatever an init hook returned, keyed by the
// language that produced it (e.g. "js").
type ScriptStageContext struct {
	Language string
	Values   map[string]any
}

func (ScriptStageContext) isStageContext() {}

// HookExecutor is the single capability every hook implementation (embedded
// script, inference backend, native) must satisfy. Stateful vs. stateless
// is a property of the binding in Hook, not of the executor body — the
// body always satisfies this one single-frame contract.
type HookExecutor interface {
	// ExecHook runs the hook body against one frame. Returning (nil, nil)
	// is an explicit drop: the frame path terminates early.
	ExecHook(ctx context.Context, frame *Frame, stageCtx StageContext) (*Frame, error)
}

// Hook binds a HookExecutor to a phase and declares whether it must be
// serialized per-stream (stateful) or may run concurrently (stateless).
type Hook struct {
	Phase    Phase
	Stateful bool
	Executor HookExecutor
}

// Stage owns a name, at most one hook per phase, and an initialized
// context shared read-only by every frame of every stream traversing it.
type Stage struct {
	Name    string
	Hooks   map[Phase]*Hook
	Context StageContext
}

// NewStage normalizes hyphens to underscores in the name per the Stream
// Entry's frame_path normalization rule, and defaults to an empty context.
func NewStage(name string) *Stage {
	return &Stage{
		Name:    strings.ReplaceAll(name, "-", "_"),
		Hooks:   make(map[Phase]*Hook),
		Context: EmptyStageContext{},
	}
}

// AddHook rejects a second hook for the same phase — "exactly one hook per
// phase per stage, duplicates must be rejected".
func (s *Stage) AddHook(hook *Hook) error {
	if _, exists := s.Hooks[hook.Phase]; exists {
		return fmt.Errorf("stage %q already has a %s hook", s.Name, hook.Phase)
	}
	s.Hooks[hook.Phase] = hook
	return nil
}

func (s *Stage) Hook(phase Phase) (*Hook, bool) {
	h, ok := s.Hooks[phase]
	return h, ok
}
