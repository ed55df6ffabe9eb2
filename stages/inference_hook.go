package stages

import (
	"context"

	"github.com/pipeless-ai/pipeless/inference"
	"github.com/pipeless-ai/pipeless/models"
)

// InferenceHookExecutor adapts an inference.Session to models.HookExecutor,
// the shape a process.json short-form hook produces: run the session
// against the frame's inference_input, filling inference_output.
type InferenceHookExecutor struct {
	Session inference.Session
}

func (e *InferenceHookExecutor) ExecHook(ctx context.Context, frame *models.Frame, stageCtx models.StageContext) (*models.Frame, error) {
	if err := e.Session.Infer(ctx, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
