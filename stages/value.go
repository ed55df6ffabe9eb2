package stages

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/pipeless-ai/pipeless/models"
)

// ValueSpec is a value from a process.json's inference_params that may be
// static JSON or a "$js:"-prefixed expression resolved once at stage-load
// time.
type ValueSpec interface {
	IsStatic() bool
	Resolve() (any, error)
}

type StaticValue struct {
	Value any
}

func (s StaticValue) IsStatic() bool       { return true }
func (s StaticValue) Resolve() (any, error) { return s.Value, nil }

// DynamicValue evaluates a JavaScript expression via goja. It carries no
// per-frame state: process.json is resolved once, when the stage loads,
// not per frame.
type DynamicValue struct {
	Expression string
}

func (d DynamicValue) IsStatic() bool { return false }

func (d DynamicValue) Resolve() (any, error) {
	runtime := goja.New()
	wrapped := "(function() {\n return " + d.Expression + "\n})()"
	result, err := runtime.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate js expression %q: %w", d.Expression, err)
	}
	return result.Export(), nil
}

const dynamicValuePrefix = "$js:"

// ParseConfigValue detects the "$js:" prefix convention and returns the
// matching ValueSpec.
func ParseConfigValue(raw any) ValueSpec {
	if s, ok := raw.(string); ok && strings.HasPrefix(s, dynamicValuePrefix) {
		return DynamicValue{Expression: strings.TrimPrefix(s, dynamicValuePrefix)}
	}
	return StaticValue{Value: raw}
}

// ResolveParams resolves every value of an inference_params object,
// returning the first resolution error encountered.
func ResolveParams(raw map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(raw))
	for key, v := range raw {
		spec := ParseConfigValue(v)
		value, err := spec.Resolve()
		if err != nil {
			return nil, fmt.Errorf("inference_params.%s: %w", key, models.ErrInterpolate(key, v, err))
		}
		resolved[key] = value
	}
	return resolved, nil
}
