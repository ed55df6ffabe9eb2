package streams

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/models"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestAddRejectsDuplicateInput(t *testing.T) {
	tbl := NewTable()
	e1 := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())
	e2 := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())

	if err := tbl.Add(e1); err != nil {
		t.Fatalf("unexpected error adding first entry: %v", err)
	}
	if err := tbl.Add(e2); err != ErrDuplicateInput {
		t.Fatalf("expected ErrDuplicateInput, got %v", err)
	}
}

func TestAddRejectsDuplicateOutputUnlessScreen(t *testing.T) {
	tbl := NewTable()
	e1 := NewEntry("rtsp://a", "rtsp://out", nil, RestartNever, testLogger())
	e2 := NewEntry("rtsp://b", "rtsp://out", nil, RestartNever, testLogger())
	if err := tbl.Add(e1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tbl.Add(e2); err != ErrDuplicateOutput {
		t.Fatalf("expected ErrDuplicateOutput, got %v", err)
	}

	e3 := NewEntry("rtsp://c", ScreenOutput, nil, RestartNever, testLogger())
	e4 := NewEntry("rtsp://d", ScreenOutput, nil, RestartNever, testLogger())
	if err := tbl.Add(e3); err != nil {
		t.Fatalf("unexpected error adding screen output: %v", err)
	}
	if err := tbl.Add(e4); err != nil {
		t.Fatalf("expected screen output duplicates to be permitted, got %v", err)
	}
}

func TestRemoveEntry(t *testing.T) {
	tbl := NewTable()
	e := NewEntry("rtsp://a", "", nil, RestartNever, testLogger())
	_ = tbl.Add(e)

	removed, err := tbl.Remove(e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.ID != e.ID {
		t.Errorf("removed wrong entry")
	}
	if _, err := tbl.GetByID(e.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestSetAndRemoveEntryPipeline(t *testing.T) {
	tbl := NewTable()
	e := NewEntry("rtsp://a", "", nil, RestartNever, testLogger())
	_ = tbl.Add(e)

	pid := uuid.New()
	if err := tbl.BindPipeline(e.ID, pid); err != nil {
		t.Fatalf("unexpected error binding pipeline: %v", err)
	}

	other := NewEntry("rtsp://b", "", nil, RestartNever, testLogger())
	_ = tbl.Add(other)
	if err := tbl.BindPipeline(other.ID, pid); err != ErrDuplicatePipeline {
		t.Fatalf("expected ErrDuplicatePipeline, got %v", err)
	}

	if err := tbl.UnbindPipeline(e.ID); err != nil {
		t.Fatalf("unexpected error unbinding: %v", err)
	}
	if e.PipelineID != nil {
		t.Errorf("expected nil PipelineID after unbind")
	}
}

func TestFindByPipelineID(t *testing.T) {
	tbl := NewTable()
	e := NewEntry("rtsp://a", "", nil, RestartNever, testLogger())
	_ = tbl.Add(e)
	pid := uuid.New()
	_ = tbl.BindPipeline(e.ID, pid)

	found, ok := tbl.GetByPipelineID(pid)
	if !ok || found.ID != e.ID {
		t.Fatalf("expected to find entry by pipeline id")
	}

	if _, ok := tbl.GetByPipelineID(uuid.New()); ok {
		t.Errorf("expected no match for unrelated pipeline id")
	}
}

func TestUpdateByIDKeepsStoredHashButClearsPipeline(t *testing.T) {
	tbl := NewTable()
	e := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())
	_ = tbl.Add(e)
	storedHash := e.StoredHash()
	pid := uuid.New()
	_ = tbl.BindPipeline(e.ID, pid)

	updated, err := tbl.UpdateByID(e.ID, "", "", []string{"other_stage"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.StoredHash() != storedHash {
		t.Errorf("StoredHash should survive an update, got %d want %d", updated.StoredHash(), storedHash)
	}
	if !updated.LiveHashDiffers() {
		t.Errorf("expected live hash to diverge after frame_path change")
	}
	if updated.PipelineID != nil {
		t.Errorf("expected pipeline binding to be cleared by update")
	}
}

func TestUpdateByIDRejectsDuplicateInputAgainstAnotherEntry(t *testing.T) {
	tbl := NewTable()
	e1 := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())
	e2 := NewEntry("rtsp://b", "", []string{"passthrough"}, RestartNever, testLogger())
	_ = tbl.Add(e1)
	_ = tbl.Add(e2)

	if _, err := tbl.UpdateByID(e2.ID, "rtsp://a", "", nil, nil); err != ErrDuplicateInput {
		t.Fatalf("expected ErrDuplicateInput, got %v", err)
	}
	// e2 must be unchanged by the rejected update.
	got, _ := tbl.GetByID(e2.ID)
	if got.InputURI != "rtsp://b" {
		t.Errorf("expected input_uri left untouched after rejected update, got %q", got.InputURI)
	}
}

func TestUpdateByIDRejectsDuplicateOutputAgainstAnotherEntry(t *testing.T) {
	tbl := NewTable()
	e1 := NewEntry("rtsp://a", "rtsp://out", nil, RestartNever, testLogger())
	e2 := NewEntry("rtsp://b", "rtsp://other", nil, RestartNever, testLogger())
	_ = tbl.Add(e1)
	_ = tbl.Add(e2)

	if _, err := tbl.UpdateByID(e2.ID, "", "rtsp://out", nil, nil); err != ErrDuplicateOutput {
		t.Fatalf("expected ErrDuplicateOutput, got %v", err)
	}
}

func TestUpdateByIDAllowsUnchangedInputOnSameEntry(t *testing.T) {
	tbl := NewTable()
	e := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())
	_ = tbl.Add(e)

	if _, err := tbl.UpdateByID(e.ID, "rtsp://a", "", []string{"other_stage"}, nil); err != nil {
		t.Fatalf("unexpected error updating an entry against its own unchanged input_uri: %v", err)
	}
}

func TestUpdateByIDNormalizesFramePathHyphens(t *testing.T) {
	tbl := NewTable()
	e := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())
	_ = tbl.Add(e)

	updated, err := tbl.UpdateByID(e.ID, "", "", []string{"my-stage", "other-one"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"my_stage", "other_one"}
	if len(updated.FramePath) != len(want) || updated.FramePath[0] != want[0] || updated.FramePath[1] != want[1] {
		t.Fatalf("expected hyphens normalized to underscores, got %v", updated.FramePath)
	}
}

func TestContentHashIsFixedAtCreation(t *testing.T) {
	e := NewEntry("rtsp://a", "", []string{"passthrough"}, RestartNever, testLogger())
	before := e.StoredHash()
	e.InputURI = "rtsp://mutated"
	after := e.StoredHash()
	if before != after {
		t.Errorf("StoredHash must not change when fields mutate directly, got %d vs %d", before, after)
	}
	if !e.LiveHashDiffers() {
		t.Errorf("LiveHash should diverge once a field is mutated")
	}
}

func TestFileSchemeForcesNeverRestartPolicy(t *testing.T) {
	e := NewEntry("file:///a.mp4", "file:///b.mp4", nil, RestartAlways, testLogger())
	if e.RestartPolicy != RestartNever {
		t.Errorf("expected file:// URIs to force restart_policy=never, got %v", e.RestartPolicy)
	}
}

func TestFramePathHyphensNormalizedToUnderscores(t *testing.T) {
	e := NewEntry("rtsp://a", "", []string{"my-stage", "another-one"}, RestartNever, testLogger())
	want := []string{"my_stage", "another_one"}
	for i, name := range want {
		if e.FramePath[i] != name {
			t.Errorf("FramePath[%d] = %q, want %q", i, e.FramePath[i], name)
		}
	}
}

func TestNextTargetStateTransitionTable(t *testing.T) {
	cases := []struct {
		policy RestartPolicy
		reason models.FinishReason
		want   TargetState
	}{
		{RestartNever, models.ReasonCompleted, StateCompleted},
		{RestartNever, models.ReasonError, StateError},
		{RestartNever, models.ReasonUpdated, StateRunning},
		{RestartAlways, models.ReasonCompleted, StateRunning},
		{RestartAlways, models.ReasonError, StateRunning},
		{RestartAlways, models.ReasonUpdated, StateRunning},
		{RestartOnError, models.ReasonCompleted, StateError},
		{RestartOnError, models.ReasonError, StateRunning},
		{RestartOnError, models.ReasonUpdated, StateRunning},
		{RestartOnEos, models.ReasonCompleted, StateRunning},
		{RestartOnEos, models.ReasonError, StateCompleted},
		{RestartOnEos, models.ReasonUpdated, StateRunning},
	}
	for _, tc := range cases {
		got := NextTargetState(tc.policy, tc.reason)
		if got != tc.want {
			t.Errorf("NextTargetState(%v, %v) = %v, want %v", tc.policy, tc.reason, got, tc.want)
		}
	}
}

func TestParseRestartPolicyVariants(t *testing.T) {
	cases := map[string]RestartPolicy{
		"never":    RestartNever,
		"Always":   RestartAlways,
		"ON_ERROR": RestartOnError,
		"on-eos":   RestartOnEos,
	}
	for in, want := range cases {
		got, err := ParseRestartPolicy(in)
		if err != nil {
			t.Fatalf("ParseRestartPolicy(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseRestartPolicy(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseRestartPolicy("bogus"); err == nil {
		t.Error("expected error for unknown restart policy")
	}
}
