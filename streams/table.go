// Package streams implements the Streams Table: the reconciled
// configuration data model with content-hash based change detection, a
// restart-policy state machine, and the table's uniqueness invariants.
package streams

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Table is the in-memory, authoritative, non-durable set of Stream
// Entries. It is the only shared mutable state in the core; callers take
// the lock explicitly so the Dispatcher can diff under a read lock and
// mutate under a write lock without holding either across an await.
type Table struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[uuid.UUID]*Entry)}
}

// RLock/RUnlock/Lock/Unlock expose the table's lock directly so callers
// (the Dispatcher) control the diff/mutate window explicitly, per the
// "never hold the write lock across awaits" contract.
func (t *Table) RLock()   { t.mu.RLock() }
func (t *Table) RUnlock() { t.mu.RUnlock() }
func (t *Table) Lock()    { t.mu.Lock() }
func (t *Table) Unlock()  { t.mu.Unlock() }

// Add inserts entry, rejecting it with ErrDuplicateInput / ErrDuplicateOutput
// if it collides with an existing entry's input_uri or non-"screen"
// output_uri. The caller must hold the write lock.
func (t *Table) Add(entry *Entry) error {
	for _, existing := range t.entries {
		if existing.InputURI == entry.InputURI {
			return ErrDuplicateInput
		}
		if entry.OutputURI != "" && entry.OutputURI != ScreenOutput && existing.OutputURI == entry.OutputURI {
			return ErrDuplicateOutput
		}
	}
	t.entries[entry.ID] = entry
	return nil
}

// Remove deletes the entry by id, returning it, or ErrNotFound. The
// caller must hold the write lock.
func (t *Table) Remove(id uuid.UUID) (*Entry, error) {
	entry, ok := t.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(t.entries, id)
	return entry, nil
}

// GetByID is a read-only lookup. The caller must hold at least a read lock.
func (t *Table) GetByID(id uuid.UUID) (*Entry, error) {
	entry, ok := t.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// GetByPipelineID is a read-only lookup. The caller must hold at least a
// read lock.
func (t *Table) GetByPipelineID(pipelineID uuid.UUID) (*Entry, bool) {
	for _, entry := range t.entries {
		if entry.PipelineID != nil && *entry.PipelineID == pipelineID {
			return entry, true
		}
	}
	return nil, false
}

// All returns a snapshot slice of every entry, for reconciliation passes
// and GET /streams. The caller must hold at least a read lock; the slice
// itself is safe to range over after releasing it since entries are
// pointers owned by the table (callers must not mutate fields directly —
// go through the table's methods instead).
func (t *Table) All() []*Entry {
	out := make([]*Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	return out
}

// BindPipeline assigns pipelineID to entryID, rejecting with
// ErrDuplicatePipeline if a different entry already holds it. The caller
// must hold the write lock.
func (t *Table) BindPipeline(entryID, pipelineID uuid.UUID) error {
	entry, ok := t.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range t.entries {
		if id == entryID {
			continue
		}
		if other.PipelineID != nil && *other.PipelineID == pipelineID {
			return ErrDuplicatePipeline
		}
	}
	bound := pipelineID
	entry.PipelineID = &bound
	return nil
}

// UnbindPipeline clears the entry's pipeline binding. The caller must hold
// the write lock.
func (t *Table) UnbindPipeline(entryID uuid.UUID) error {
	entry, ok := t.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	entry.PipelineID = nil
	return nil
}

// SetTargetState sets the entry's lifecycle state, the Dispatcher's record
// of what should happen next for a stream whose pipeline just finished. The
// caller must hold the write lock.
func (t *Table) SetTargetState(entryID uuid.UUID, state TargetState) error {
	entry, ok := t.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	entry.TargetState = state
	return nil
}

// UpdateByID rebuilds the entry's mutable fields in place: clears the
// pipeline binding (so the Dispatcher tears down the stale Manager on the
// next reconciliation) but keeps the original content_hash — the
// divergence between the stored and live hash is the Dispatcher's signal
// to act. Zero-value arguments inherit the current field. The rebuilt
// input_uri/output_uri are re-checked against every other entry, same as
// Add, since the uniqueness invariants must hold after every mutation, not
// just at creation. The caller must hold the write lock.
func (t *Table) UpdateByID(entryID uuid.UUID, inputURI, outputURI string, framePath []string, restartPolicy *RestartPolicy) (*Entry, error) {
	entry, ok := t.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}

	newInputURI := entry.InputURI
	if inputURI != "" {
		newInputURI = inputURI
	}
	newOutputURI := entry.OutputURI
	if outputURI != "" {
		newOutputURI = outputURI
	}

	for id, other := range t.entries {
		if id == entryID {
			continue
		}
		if other.InputURI == newInputURI {
			return nil, ErrDuplicateInput
		}
		if newOutputURI != "" && newOutputURI != ScreenOutput && other.OutputURI == newOutputURI {
			return nil, ErrDuplicateOutput
		}
	}

	entry.InputURI = newInputURI
	entry.OutputURI = newOutputURI
	if framePath != nil {
		normalizedPath := make([]string, len(framePath))
		for i, name := range framePath {
			normalizedPath[i] = strings.ReplaceAll(name, "-", "_")
		}
		entry.FramePath = normalizedPath
	}
	if restartPolicy != nil {
		entry.RestartPolicy = *restartPolicy
	}
	if isFileURI(entry.InputURI) || isFileURI(entry.OutputURI) {
		entry.RestartPolicy = RestartNever
	}

	entry.PipelineID = nil
	return entry, nil
}
