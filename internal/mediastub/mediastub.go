// Package mediastub provides placeholder InputPipeline/OutputPipeline
// factories for cmd/pipeless. Real media ingest/egress is treated as an
// external collaborator: the core only needs something that satisfies
// manager.InputPipeline/OutputPipeline so the Dispatcher and Pipeline
// Manager can be exercised end to end without a real GStreamer-equivalent
// decoder wired in.
package mediastub

import (
	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/bus"
	"github.com/pipeless-ai/pipeless/manager"
	"github.com/pipeless-ai/pipeless/models"
)

// input is a no-op InputPipeline: it announces a placeholder caps string
// and immediately signals end of stream, so a Manager wired to it runs
// through its full lifecycle instead of hanging forever waiting on frames
// that will never arrive.
type input struct {
	log zerolog.Logger
}

func (i *input) Close() error { return nil }

// NewInputPipelineFactory returns a manager.InputPipelineFactory backed by
// the stub. log is used to make the placeholder nature of the stream
// visible in the logs rather than silently pretending to decode media.
func NewInputPipelineFactory(log zerolog.Logger) manager.InputPipelineFactory {
	return func(inputURI string, producer *bus.Bus) (manager.InputPipeline, error) {
		log.Warn().Str("input_uri", inputURI).
			Msg("no media decoding backend is wired in, using a placeholder input pipeline")
		producer.Send(models.NewInputCapsEvent("video/x-raw,format=RGB,width=0,height=0,framerate=0/1"))
		producer.Send(models.NewEndOfInputStreamEvent())
		return &input{log: log}, nil
	}
}

// output is a no-op OutputPipeline: every frame/tag it receives is
// dropped, matching the "egress machinery is external" boundary. On EOS it
// reports EndOfOutputStream back onto the bus so the Manager can finish.
type output struct {
	producer *bus.Bus
}

func (output) OnNewFrame(*models.Frame) error    { return nil }
func (output) OnNewTags(map[string]string) error { return nil }
func (o output) OnEOS() error {
	o.producer.Send(models.NewEndOfOutputStreamEvent())
	return nil
}
func (output) Close() error { return nil }

// NewOutputPipelineFactory returns a manager.OutputPipelineFactory backed
// by the stub.
func NewOutputPipelineFactory(log zerolog.Logger) manager.OutputPipelineFactory {
	return func(outputURI, caps string, initialTags map[string]string, producer *bus.Bus) (manager.OutputPipeline, error) {
		if outputURI != "" {
			log.Warn().Str("output_uri", outputURI).
				Msg("no media encoding backend is wired in, using a placeholder output pipeline")
		}
		return output{producer: producer}, nil
	}
}
