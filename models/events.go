package models

import "github.com/google/uuid"

// BusEventKind tags the variant carried by a BusEvent.
type BusEventKind int

const (
	FrameChange BusEventKind = iota
	TagsChange
	NewInputCaps
	EndOfInputStream
	EndOfOutputStream
	InputStreamError
	OutputStreamError
)

func (k BusEventKind) String() string {
	switch k {
	case FrameChange:
		return "FrameChange"
	case TagsChange:
		return "TagsChange"
	case NewInputCaps:
		return "NewInputCaps"
	case EndOfInputStream:
		return "EndOfInputStream"
	case EndOfOutputStream:
		return "EndOfOutputStream"
	case InputStreamError:
		return "InputStreamError"
	case OutputStreamError:
		return "OutputStreamError"
	default:
		return "Unknown"
	}
}

// BusEvent is the tagged union flowing through the Event Bus. Only the
// field matching Kind is populated. A FrameChange event owns its Frame by
// transfer: once sent, the producer must drop its own reference (see
// Frame's doc comment) — there is intentionally no Clone here.
type BusEvent struct {
	Kind BusEventKind

	Frame *Frame            // FrameChange
	Tags  map[string]string // TagsChange
	Caps  string            // NewInputCaps
	Err   string            // InputStreamError / OutputStreamError
}

func NewFrameChangeEvent(f *Frame) BusEvent {
	return BusEvent{Kind: FrameChange, Frame: f}
}

func NewTagsChangeEvent(tags map[string]string) BusEvent {
	return BusEvent{Kind: TagsChange, Tags: tags}
}

func NewInputCapsEvent(caps string) BusEvent {
	return BusEvent{Kind: NewInputCaps, Caps: caps}
}

func NewEndOfInputStreamEvent() BusEvent {
	return BusEvent{Kind: EndOfInputStream}
}

func NewEndOfOutputStreamEvent() BusEvent {
	return BusEvent{Kind: EndOfOutputStream}
}

func NewInputStreamErrorEvent(msg string) BusEvent {
	return BusEvent{Kind: InputStreamError, Err: msg}
}

func NewOutputStreamErrorEvent(msg string) BusEvent {
	return BusEvent{Kind: OutputStreamError, Err: msg}
}

// DispatcherEventKind tags the variant carried by a DispatcherEvent.
type DispatcherEventKind int

const (
	TableChange DispatcherEventKind = iota
	PipelineFinished
)

// FinishReason is why a Pipeline Manager stopped, the input to the
// restart-policy transition table.
type FinishReason int

const (
	ReasonCompleted FinishReason = iota
	ReasonError
	ReasonUpdated
)

func (r FinishReason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonError:
		return "error"
	case ReasonUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// DispatcherEvent is the Dispatcher's own event channel payload.
type DispatcherEvent struct {
	Kind       DispatcherEventKind
	PipelineID uuid.UUID    // PipelineFinished
	Reason     FinishReason // PipelineFinished
}

func NewTableChangeEvent() DispatcherEvent {
	return DispatcherEvent{Kind: TableChange}
}

func NewPipelineFinishedEvent(pipelineID uuid.UUID, reason FinishReason) DispatcherEvent {
	return DispatcherEvent{Kind: PipelineFinished, PipelineID: pipelineID, Reason: reason}
}
