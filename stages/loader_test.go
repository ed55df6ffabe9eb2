package stages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/kvstore"
	"github.com/pipeless-ai/pipeless/models"
)

func writeStageFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadStagesBuildsHooksPerPhase(t *testing.T) {
	root := t.TempDir()
	stageDir := filepath.Join(root, "my-stage")
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeStageFile(t, stageDir, "pre-process.js", "return frame;")
	writeStageFile(t, stageDir, "post_process.js", "return frame;")

	stages, err := LoadStages(root, kvstore.NewMemoryStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadStages: %v", err)
	}

	stage, ok := stages["my_stage"]
	if !ok {
		t.Fatalf("expected stage name hyphens normalized to underscores, got keys %v", keysOf(stages))
	}
	if _, ok := stage.Hook(models.PreProcess); !ok {
		t.Fatal("expected a pre-process hook")
	}
	if _, ok := stage.Hook(models.PostProcess); !ok {
		t.Fatal("expected a post-process hook (underscore spelling accepted)")
	}
}

func TestLoadStagesMergesStageYAMLUnderInitContext(t *testing.T) {
	root := t.TempDir()
	stageDir := filepath.Join(root, "detector")
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeStageFile(t, stageDir, "init.js", `return {"threshold": 0.9};`)
	writeStageFile(t, stageDir, "stage.yaml", "threshold: 0.1\nlabel: person\n")

	stages, err := LoadStages(root, kvstore.NewMemoryStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadStages: %v", err)
	}

	ctx, ok := stages["detector"].Context.(models.ScriptStageContext)
	if !ok {
		t.Fatalf("expected ScriptStageContext, got %T", stages["detector"].Context)
	}
	if ctx.Values["threshold"] != 0.9 {
		t.Fatalf("expected init.js value to win over stage.yaml default, got %v", ctx.Values["threshold"])
	}
	if ctx.Values["label"] != "person" {
		t.Fatalf("expected stage.yaml-only key to be merged in, got %v", ctx.Values["label"])
	}
}

func TestLoadStagesRejectsDuplicatePhaseHooks(t *testing.T) {
	root := t.TempDir()
	stageDir := filepath.Join(root, "dup")
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeStageFile(t, stageDir, "process.js", "return frame;")
	writeStageFile(t, stageDir, "process.json", `{"runtime":"noop","model_uri":"file://m"}`)

	stages, err := LoadStages(root, kvstore.NewMemoryStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadStages: %v", err)
	}
	// One of the two process hooks loads first alphabetically (process.js),
	// the second (process.json) is rejected as a duplicate phase and logged.
	if _, ok := stages["dup"].Hook(models.Process); !ok {
		t.Fatal("expected exactly one process hook to have been registered")
	}
}

func keysOf(m map[string]*models.Stage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
