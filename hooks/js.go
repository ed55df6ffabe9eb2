// Package hooks implements HookExecutor bindings for the languages a
// stage's hook files may be written in.
package hooks

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/pipeless-ai/pipeless/kvstore"
	"github.com/pipeless-ai/pipeless/models"
)

// NamespacedKey builds the "<pipeline_id>:<stage_name>:<user_key>" key the
// Frame-Path Executor's KV-store injection contract requires.
func NamespacedKey(pipelineID uuid.UUID, stageName, userKey string) string {
	return fmt.Sprintf("%s:%s:%s", pipelineID, stageName, userKey)
}

// JsHook is a models.HookExecutor backed by an embedded goja JavaScript
// runtime: one fresh runtime per invocation, the user's code wrapped in an
// IIFE so `return` works at the top level, and the result exported back
// into Go.
//
// A hook mutates the frame in place: user_data and any kvs_* calls made
// during execution are visible in the frame or store once ExecHook returns.
// Returning an explicit null from the script is the "no frame" contract —
// the frame path terminates early.
type JsHook struct {
	StageName string
	Code      string
	Store     kvstore.Store
}

func (h *JsHook) ExecHook(ctx context.Context, frame *models.Frame, stageCtx models.StageContext) (*models.Frame, error) {
	runtime := goja.New()

	frameObj := map[string]any{
		"id":            frame.ID.String(),
		"width":         frame.Width,
		"height":        frame.Height,
		"frame_number":  frame.FrameNumber,
		"pts":           frame.PTS.Nanoseconds(),
		"dts":           frame.DTS.Nanoseconds(),
		"duration":      frame.Duration.Nanoseconds(),
		"frame_rate":    frame.FrameRate,
		"user_data":     frame.UserData.ToAny(),
		"get_user_data": func() any { return frame.UserData.ToAny() },
		"set_user_data": func(v any) { frame.UserData = models.UserDataFromAny(v) },
	}
	if err := runtime.Set("frame", frameObj); err != nil {
		return nil, fmt.Errorf("failed to set frame in javascript runtime: %w", err)
	}

	if err := runtime.Set("context", stageContextToJS(stageCtx)); err != nil {
		return nil, fmt.Errorf("failed to set stage context in javascript runtime: %w", err)
	}

	if h.Store != nil {
		runtime.Set("kvs_set", func(key, value string) {
			h.Store.Set(NamespacedKey(frame.PipelineID, h.StageName, key), value)
		})
		runtime.Set("kvs_get", func(key string) string {
			return h.Store.Get(NamespacedKey(frame.PipelineID, h.StageName, key))
		})
	}

	wrapped := "(function() {\n" + h.Code + "\n})()"
	result, err := runtime.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("javascript hook execution error: %w", err)
	}

	if result.Export() == nil {
		// Explicit null/undefined return is the "no frame" drop contract.
		return nil, nil
	}

	return frame, nil
}

func stageContextToJS(stageCtx models.StageContext) any {
	switch ctx := stageCtx.(type) {
	case models.ScriptStageContext:
		return ctx.Values
	default:
		return map[string]any{}
	}
}
