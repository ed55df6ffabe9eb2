package streams

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScreenOutput is the sentinel output_uri that permits duplicates.
const ScreenOutput = "screen"

// Entry is a stream's declarative record in the Streams Table.
type Entry struct {
	ID uuid.UUID

	InputURI      string
	OutputURI     string // empty means "no output configured"
	FramePath     []string
	RestartPolicy RestartPolicy

	PipelineID   *uuid.UUID
	TargetState  TargetState
	contentHash  uint64
}

// NewEntry constructs an Entry, normalizing hyphens in frame_path names to
// underscores and forcing restart_policy to Never (with a warning) when
// either URI uses a file-like scheme.
func NewEntry(inputURI, outputURI string, framePath []string, restartPolicy RestartPolicy, log zerolog.Logger) *Entry {
	normalizedPath := make([]string, len(framePath))
	for i, name := range framePath {
		normalizedPath[i] = strings.ReplaceAll(name, "-", "_")
	}

	if isFileURI(inputURI) || isFileURI(outputURI) {
		if restartPolicy != RestartNever {
			log.Warn().
				Str("input_uri", inputURI).
				Str("output_uri", outputURI).
				Msg("file-scheme URI forces restart_policy to never")
		}
		restartPolicy = RestartNever
	}

	e := &Entry{
		ID:            uuid.New(),
		InputURI:      inputURI,
		OutputURI:     outputURI,
		FramePath:     normalizedPath,
		RestartPolicy: restartPolicy,
		TargetState:   StateRunning,
	}
	e.contentHash = contentHash(e.InputURI, e.OutputURI, e.FramePath, e.RestartPolicy)
	return e
}

// StoredHash is the content_hash snapshotted at creation; it never changes
// once the entry is constructed, even across an update_by_id rebuild.
func (e *Entry) StoredHash() uint64 {
	return e.contentHash
}

// LiveHash recomputes the hash from the entry's current field values.
// Divergence from StoredHash is the Dispatcher's change signal.
func (e *Entry) LiveHash() uint64 {
	return contentHash(e.InputURI, e.OutputURI, e.FramePath, e.RestartPolicy)
}

func (e *Entry) LiveHashDiffers() bool {
	return e.LiveHash() != e.StoredHash()
}

func (e *Entry) clone() *Entry {
	framePath := make([]string, len(e.FramePath))
	copy(framePath, e.FramePath)
	var pid *uuid.UUID
	if e.PipelineID != nil {
		copied := *e.PipelineID
		pid = &copied
	}
	return &Entry{
		ID:            e.ID,
		InputURI:      e.InputURI,
		OutputURI:     e.OutputURI,
		FramePath:     framePath,
		RestartPolicy: e.RestartPolicy,
		PipelineID:    pid,
		TargetState:   e.TargetState,
		contentHash:   e.contentHash,
	}
}
