// Package inference defines the inference-backend external collaborator
// contract. Concrete backends (ONNX, Roboflow, ...) are out of scope for
// the core; only the session contract lives here.
package inference

import (
	"context"

	"github.com/pipeless-ai/pipeless/models"
)

// Config is the resolved shape of a process.json short-form hook
// definition: runtime name, model location, and backend-specific
// parameters (already resolved from any "$js:" dynamic expressions).
type Config struct {
	Runtime   string
	ModelURI  string
	Params    map[string]any
	StageName string
}

// Session is owned by a stage for its lifetime. infer(frame) fills
// frame.InferenceOutput from frame.InferenceInput; sessions must be safe
// for concurrent use since stateless inference hooks may run concurrently.
type Session interface {
	Infer(ctx context.Context, frame *models.Frame) error
	Close() error
}

// Factory builds a Session for a given runtime, e.g. "onnx" or
// "roboflow". Concrete runtimes register themselves here; the only one
// that ships with the core is the "noop" runtime in noop.go.
type Factory func(cfg Config) (Session, error)

var registry = make(map[string]Factory)

func Register(runtime string, factory Factory) {
	registry[runtime] = factory
}

func Build(cfg Config) (Session, error) {
	factory, ok := registry[cfg.Runtime]
	if !ok {
		return nil, &UnknownRuntimeError{Runtime: cfg.Runtime}
	}
	return factory(cfg)
}

type UnknownRuntimeError struct {
	Runtime string
}

func (e *UnknownRuntimeError) Error() string {
	return "unknown inference runtime: " + e.Runtime
}
