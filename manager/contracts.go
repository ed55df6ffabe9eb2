// Package manager implements the Pipeline Manager: the per-stream event
// loop coupling an input decoding pipeline, the Frame-Path Executor, and
// an output encoding pipeline through an Event Bus.
package manager

import (
	"github.com/pipeless-ai/pipeless/bus"
	"github.com/pipeless-ai/pipeless/models"
)

// InputPipeline is the input-side external collaborator: constructed from
// an input URI, it emits FrameChange/NewInputCaps/TagsChange/
// EndOfInputStream/InputStreamError onto the Manager's bus. Its
// implementation (media decoding) is out of the core's scope.
type InputPipeline interface {
	Close() error
}

// OutputPipeline is the output-side external collaborator. It cannot be
// constructed until the input side's caps are known, so the Manager holds
// a factory rather than an instance until NewInputCaps arrives.
type OutputPipeline interface {
	OnNewFrame(frame *models.Frame) error
	OnNewTags(tags map[string]string) error
	OnEOS() error
	Close() error
}

// InputPipelineFactory builds the input pipeline for a stream. The
// Manager calls this once, synchronously, at construction. The factory
// receives the Bus's producer handle (safe to call from synchronous
// decoder-callback threads) to emit events onto.
type InputPipelineFactory func(inputURI string, producer *bus.Bus) (InputPipeline, error)

// OutputPipelineFactory builds the output pipeline once input caps are
// known. initialTags carries any TagsChange the Manager observed before
// the output pipeline existed.
type OutputPipelineFactory func(outputURI, caps string, initialTags map[string]string, producer *bus.Bus) (OutputPipeline, error)
