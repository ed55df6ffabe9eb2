package models

import (
	"time"

	"github.com/google/uuid"
)

// Frame is the unit of work carried between stages. It is created once by
// the input side, owned by exactly one bus event at a time, and mutated
// only by hook executions — never concurrently for the same frame.
//
// Frame deliberately has no Clone method. Ownership transfers by pointer
// through channels; once sent on a bus, the producer must not retain a
// second reference (see SPEC_FULL.md).
type Frame struct {
	ID uuid.UUID

	// Original must never be mutated by a hook. The executor restores it
	// after every hook call as a defensive measure against hooks that do.
	Original []byte
	Modified []byte
	Width    int
	Height   int

	PTS      time.Duration
	DTS      time.Duration
	Duration time.Duration

	FrameRate  float64
	IngestedAt time.Time

	InferenceInput  *Tensor
	InferenceOutput InferenceOutput

	PipelineID  uuid.UUID
	FrameNumber uint64

	UserData UserData
}

// NewFrame builds a frame with Modified initialized as a copy of Original,
// matching the "mutable modified buffer initialized as a copy" contract.
func NewFrame(pipelineID uuid.UUID, frameNumber uint64, original []byte, width, height int) *Frame {
	modified := make([]byte, len(original))
	copy(modified, original)
	return &Frame{
		ID:          uuid.New(),
		Original:    original,
		Modified:    modified,
		Width:       width,
		Height:      height,
		IngestedAt:  time.Now(),
		PipelineID:  pipelineID,
		FrameNumber: frameNumber,
		UserData:    EmptyUserData(),
	}
}
