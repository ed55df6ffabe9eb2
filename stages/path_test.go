package stages

import (
	"testing"

	"github.com/pipeless-ai/pipeless/models"
)

func TestNewFramePathValidatesStageNames(t *testing.T) {
	reg := NewRegistry(map[string]*models.Stage{
		"passthrough": models.NewStage("passthrough"),
	})

	if _, err := reg.NewFramePath("passthrough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.NewFramePath("does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown stage")
	}
}

func TestNewFramePathNormalizesHyphens(t *testing.T) {
	reg := NewRegistry(map[string]*models.Stage{
		"my_stage": models.NewStage("my-stage"),
	})
	path, err := reg.NewFramePath("my-stage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Names()[0] != "my_stage" {
		t.Errorf("expected normalized name my_stage, got %q", path.Names()[0])
	}
}

func TestFramePathOfLengthOne(t *testing.T) {
	reg := NewRegistry(map[string]*models.Stage{
		"only": models.NewStage("only"),
	})
	path, err := reg.NewFramePath("only")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path.Names()) != 1 {
		t.Fatalf("expected a single-stage path, got %d stages", len(path.Names()))
	}
}
