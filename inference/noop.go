package inference

import (
	"context"

	"github.com/pipeless-ai/pipeless/models"
)

// noopSession leaves InferenceOutput untouched. It exists so the stage
// loader and its tests have a runtime to exercise without a real backend
// wired in: an empty inference_input is passed through unchanged, the
// session is free to skip it.
type noopSession struct{}

func (noopSession) Infer(ctx context.Context, frame *models.Frame) error { return nil }
func (noopSession) Close() error                                        { return nil }

func init() {
	Register("noop", func(cfg Config) (Session, error) {
		return noopSession{}, nil
	})
}
