// Package stages implements the Frame Path / Frame-Path Executor: loading
// Stage definitions from disk, validating Frame Paths against them, and
// executing a path over a frame with the phase ordering, CPU-bounded hook
// concurrency, and
// stateful-hook serialization the spec requires.
package stages

import (
	"fmt"
	"strings"

	"github.com/pipeless-ai/pipeless/models"
)

// FramePath is a validated ordered list of stage names. Construction
// rejects any name absent from the loaded stage set.
type FramePath struct {
	names []string
}

func (p FramePath) Names() []string { return p.names }

func (p FramePath) String() string {
	return strings.Join(p.names, "/")
}

// Registry holds every loaded Stage, shared by all pipelines and streams —
// "the same FramePathExecutor instance is created once and used by all
// pipelines and streams" in the source.
type Registry struct {
	stages map[string]*models.Stage
}

func NewRegistry(stages map[string]*models.Stage) *Registry {
	return &Registry{stages: stages}
}

func (r *Registry) Stage(name string) (*models.Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

// NewFramePath parses a slash-separated stage list and validates every
// name exists in the registry.
func (r *Registry) NewFramePath(path string) (FramePath, error) {
	names := strings.Split(strings.TrimSpace(path), "/")
	for _, name := range names {
		normalized := strings.ReplaceAll(name, "-", "_")
		if _, ok := r.stages[normalized]; !ok {
			return FramePath{}, fmt.Errorf("%s stage does not exist", normalized)
		}
	}
	normalizedAll := make([]string, len(names))
	for i, name := range names {
		normalizedAll[i] = strings.ReplaceAll(name, "-", "_")
	}
	return FramePath{names: normalizedAll}, nil
}
