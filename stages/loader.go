package stages

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/pipeless-ai/pipeless/hooks"
	"github.com/pipeless-ai/pipeless/inference"
	"github.com/pipeless-ai/pipeless/kvstore"
	"github.com/pipeless-ai/pipeless/models"
)

// statefulMarker is the first-line convention ("// make stateful") a hook
// file uses to request stateful (serialized) execution.
const statefulMarker = "// make stateful"

// LoadStages walks dir, one sub-directory per stage, building a Stage per
// directory from its pre-process/process/post-process/init hook files and
// any process.json short-form inference hook. Unsupported or malformed
// files are logged and skipped rather than aborting the whole load — a
// single bad stage must not prevent the rest of the directory from
// loading.
func LoadStages(dir string, store kvstore.Store, log zerolog.Logger) (map[string]*models.Stage, error) {
	log.Info().Str("dir", dir).Msg("loading stages")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading stages directory %q: %w", dir, err)
	}

	stages := make(map[string]*models.Stage)
	for _, entry := range entries {
		if !entry.IsDir() {
			log.Warn().Str("path", filepath.Join(dir, entry.Name())).
				Msg("ignoring file at stages root, it does not belong to any stage")
			continue
		}

		stageDir := filepath.Join(dir, entry.Name())
		stage := models.NewStage(entry.Name())

		hookFiles, err := os.ReadDir(stageDir)
		if err != nil {
			log.Error().Err(err).Str("dir", stageDir).Msg("failed to read stage directory, skipping stage")
			continue
		}

		for _, hookFile := range hookFiles {
			if hookFile.IsDir() {
				continue
			}
			if err := loadHookFile(stage, stageDir, hookFile.Name(), store, log); err != nil {
				log.Error().Err(err).Str("file", hookFile.Name()).Str("stage", stage.Name).
					Msg("failed to load hook file, skipping")
			}
		}

		stages[stage.Name] = stage
	}

	return stages, nil
}

func loadHookFile(stage *models.Stage, stageDir, fileName string, store kvstore.Store, log zerolog.Logger) error {
	if fileName == "process.json" {
		return loadProcessJSON(stage, filepath.Join(stageDir, fileName))
	}
	if fileName == "stage.yaml" || fileName == "stage.yml" {
		return loadStageYAML(stage, filepath.Join(stageDir, fileName))
	}

	parts := strings.SplitN(fileName, ".", 2)
	if len(parts) != 2 {
		log.Warn().Str("file", fileName).Msg("ignoring file without a recognized hook extension")
		return nil
	}
	hookTypeStr, extension := parts[0], parts[1]

	if extension != "js" {
		log.Warn().Str("file", fileName).Str("extension", extension).Msg("unsupported hook extension")
		return nil
	}

	raw, err := os.ReadFile(filepath.Join(stageDir, fileName))
	if err != nil {
		return fmt.Errorf("reading hook file: %w", err)
	}
	code := string(raw)

	if hookTypeStr == "init" {
		stage.Context = initJsContext(code)
		return nil
	}

	phase, err := models.ParsePhase(hookTypeStr)
	if err != nil {
		log.Warn().Str("file", fileName).Msg("ignoring unsupported hook type")
		return nil
	}

	stateful := strings.HasPrefix(strings.TrimSpace(firstLine(code)), statefulMarker)
	hook := &models.Hook{
		Phase:    phase,
		Stateful: stateful,
		Executor: &hooks.JsHook{StageName: stage.Name, Code: code, Store: store},
	}
	return stage.AddHook(hook)
}

func firstLine(code string) string {
	if idx := strings.IndexByte(code, '\n'); idx >= 0 {
		return code[:idx]
	}
	return code
}

// initJsContext evaluates an init.js file once at load time and captures
// whatever it returns as the stage's read-shared context.
func initJsContext(code string) models.StageContext {
	runtime := goja.New()
	wrapped := "(function() {\n" + code + "\n})()"
	result, err := runtime.RunString(wrapped)
	if err != nil {
		return models.EmptyStageContext{}
	}
	exported := result.Export()
	values, ok := exported.(map[string]any)
	if !ok {
		return models.EmptyStageContext{}
	}
	return models.ScriptStageContext{Language: "js", Values: values}
}

// loadStageYAML seeds the stage's context from an optional manifest file,
// the YAML sibling of process.json's short-form inference hook. Values it
// defines are merged underneath whatever init.<lang> already produced, so
// an init hook's return value always wins on key collision — the manifest
// is meant for static defaults, the init hook for anything computed.
func loadStageYAML(stage *models.Stage, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading stage manifest: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parsing stage manifest for stage %q: %w", stage.Name, err)
	}

	switch existing := stage.Context.(type) {
	case models.ScriptStageContext:
		merged := make(map[string]any, len(values)+len(existing.Values))
		for k, v := range values {
			merged[k] = v
		}
		for k, v := range existing.Values {
			merged[k] = v
		}
		stage.Context = models.ScriptStageContext{Language: existing.Language, Values: merged}
	default:
		stage.Context = models.ScriptStageContext{Language: "yaml", Values: values}
	}
	return nil
}

// processJSONDef is the process.json short-form inference hook shape:
// {runtime, model_uri, inference_params, make_stateful?}.
type processJSONDef struct {
	Runtime         string         `json:"runtime"`
	ModelURI        string         `json:"model_uri"`
	InferenceParams map[string]any `json:"inference_params"`
	MakeStateful    bool           `json:"make_stateful"`
}

func loadProcessJSON(stage *models.Stage, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading process.json: %w", err)
	}

	var def processJSONDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("parsing process.json: %w", err)
	}
	if def.Runtime == "" {
		return fmt.Errorf("process.json for stage %q is missing required field 'runtime'", stage.Name)
	}
	if def.ModelURI == "" {
		return fmt.Errorf("process.json for stage %q is missing required field 'model_uri'", stage.Name)
	}

	params, err := ResolveParams(def.InferenceParams)
	if err != nil {
		return fmt.Errorf("resolving inference_params for stage %q: %w", stage.Name, err)
	}

	session, err := inference.Build(inference.Config{
		Runtime:   def.Runtime,
		ModelURI:  def.ModelURI,
		Params:    params,
		StageName: stage.Name,
	})
	if err != nil {
		return fmt.Errorf("building inference session for stage %q: %w", stage.Name, err)
	}

	hook := &models.Hook{
		Phase:    models.Process,
		Stateful: def.MakeStateful,
		Executor: &InferenceHookExecutor{Session: session},
	}
	return stage.AddHook(hook)
}
