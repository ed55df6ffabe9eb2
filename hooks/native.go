package hooks

import (
	"context"

	"github.com/pipeless-ai/pipeless/models"
)

// NativeFunc adapts a plain Go function to models.HookExecutor, used for
// hooks implemented directly in Go (and in tests that don't need a
// scripting runtime at all).
type NativeFunc func(ctx context.Context, frame *models.Frame, stageCtx models.StageContext) (*models.Frame, error)

func (f NativeFunc) ExecHook(ctx context.Context, frame *models.Frame, stageCtx models.StageContext) (*models.Frame, error) {
	return f(ctx, frame, stageCtx)
}
