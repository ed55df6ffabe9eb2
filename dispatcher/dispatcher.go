// Package dispatcher implements the Dispatcher: the component that keeps
// one Pipeline Manager running per Streams Table entry whose target_state
// is Running, reconciling on every TableChange and applying the
// restart-policy transition table on every PipelineFinished.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/eventexport"
	"github.com/pipeless-ai/pipeless/kvstore"
	"github.com/pipeless-ai/pipeless/manager"
	"github.com/pipeless-ai/pipeless/models"
	"github.com/pipeless-ai/pipeless/stages"
	"github.com/pipeless-ai/pipeless/streams"
)

// eventChannelConcurrency is deliberately small: these events are rare and
// mutually sensitive (a TableChange reconciliation and a PipelineFinished
// both touch the same table and manager map), so letting a handful run
// concurrently is enough to keep the channel from backing up without
// inviting races reconciliation itself can't already tolerate.
const eventChannelConcurrency = 3

// Dispatcher owns the pipeline_id -> Manager map and drives reconciliation
// against the shared Streams Table.
type Dispatcher struct {
	table    *streams.Table
	registry *stages.Registry
	executor *stages.Executor
	kv       kvstore.Store
	exporter eventexport.Exporter

	inputFactory  manager.InputPipelineFactory
	outputFactory manager.OutputPipelineFactory

	events chan models.DispatcherEvent

	managersMu sync.RWMutex
	managers   map[uuid.UUID]*manager.Manager

	log zerolog.Logger
}

func New(
	table *streams.Table,
	registry *stages.Registry,
	executor *stages.Executor,
	kv kvstore.Store,
	exporter eventexport.Exporter,
	inputFactory manager.InputPipelineFactory,
	outputFactory manager.OutputPipelineFactory,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		table:         table,
		registry:      registry,
		executor:      executor,
		kv:            kv,
		exporter:      exporter,
		inputFactory:  inputFactory,
		outputFactory: outputFactory,
		events:        make(chan models.DispatcherEvent, 64),
		managers:      make(map[uuid.UUID]*manager.Manager),
		log:           log,
	}
}

// Events returns the send side of the Dispatcher's channel, used by the
// HTTP control surface to post TableChange after every successful mutation.
func (d *Dispatcher) Events() chan<- models.DispatcherEvent {
	return d.events
}

// Start spawns the reconciliation loop and returns immediately.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.loop(ctx)
}

func (d *Dispatcher) loop(ctx context.Context) {
	sem := make(chan struct{}, eventChannelConcurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.events:
			if !ok {
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(ev models.DispatcherEvent) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						d.log.Error().Interface("panic", r).Msg("dispatcher event handler panicked")
					}
				}()
				d.handleEvent(ctx, ev)
			}(event)
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, event models.DispatcherEvent) {
	switch event.Kind {
	case models.TableChange:
		d.reconcile(ctx)
	case models.PipelineFinished:
		d.handlePipelineFinished(event.PipelineID, event.Reason)
	}
}

// reconcile performs the three passes in order: stop drifted pipelines,
// create missing ones, and tear down orphaned managers. Each pass diffs
// under a lock, releases it, then acts — the table's write lock is never
// held across a Manager construction or teardown.
func (d *Dispatcher) reconcile(ctx context.Context) {
	d.reconcileDrifted()
	d.reconcileMissing(ctx)
	d.reconcileOrphaned()
}

func (d *Dispatcher) reconcileDrifted() {
	d.table.RLock()
	var drifted []uuid.UUID
	for _, entry := range d.table.All() {
		if entry.PipelineID != nil && entry.LiveHashDiffers() {
			drifted = append(drifted, *entry.PipelineID)
		}
	}
	d.table.RUnlock()

	for _, pipelineID := range drifted {
		d.managersMu.RLock()
		mgr, ok := d.managers[pipelineID]
		d.managersMu.RUnlock()
		if !ok {
			continue
		}
		d.log.Info().Str("pipeline_id", pipelineID.String()).Msg("stopping pipeline, stream config changed")
		mgr.Stop()
		d.postFinished(pipelineID, models.ReasonUpdated)
	}
}

type pendingStream struct {
	entryID       uuid.UUID
	inputURI      string
	outputURI     string
	framePath     []string
	restartPolicy streams.RestartPolicy
}

func (d *Dispatcher) reconcileMissing(ctx context.Context) {
	d.table.RLock()
	var pending []pendingStream
	for _, entry := range d.table.All() {
		if entry.PipelineID == nil && entry.TargetState == streams.StateRunning {
			pending = append(pending, pendingStream{
				entryID:       entry.ID,
				inputURI:      entry.InputURI,
				outputURI:     entry.OutputURI,
				framePath:     append([]string(nil), entry.FramePath...),
				restartPolicy: entry.RestartPolicy,
			})
		}
	}
	d.table.RUnlock()

	for _, p := range pending {
		framePath, err := d.registry.NewFramePath(strings.Join(p.framePath, "/"))
		if err != nil {
			d.log.Warn().Err(err).Str("entry_id", p.entryID.String()).Msg("invalid frame path, rolling back stream entry")
			d.removeEntry(p.entryID)
			continue
		}

		outputURI := p.outputURI
		mgr, err := manager.New(
			p.inputURI, outputURI, framePath, d.executor,
			d.inputFactory, d.outputFactory, d.events, d.log,
		)
		if err != nil {
			d.log.Warn().Err(err).Str("entry_id", p.entryID.String()).Msg("failed to construct pipeline, rolling back stream entry")
			d.removeEntry(p.entryID)
			d.publishStartError(p.entryID)
			continue
		}

		d.table.Lock()
		bindErr := d.table.BindPipeline(p.entryID, mgr.PipelineID())
		d.table.Unlock()
		if bindErr != nil {
			d.log.Warn().Err(bindErr).Str("entry_id", p.entryID.String()).Msg("failed to bind new pipeline, stopping it")
			mgr.Stop()
			continue
		}

		d.managersMu.Lock()
		d.managers[mgr.PipelineID()] = mgr
		d.managersMu.Unlock()

		d.log.Info().Str("pipeline_id", mgr.PipelineID().String()).Str("entry_id", p.entryID.String()).Msg("pipeline started")
		mgr.Start(ctx)
	}
}

func (d *Dispatcher) reconcileOrphaned() {
	d.managersMu.RLock()
	snapshot := make(map[uuid.UUID]*manager.Manager, len(d.managers))
	for id, mgr := range d.managers {
		snapshot[id] = mgr
	}
	d.managersMu.RUnlock()

	for pipelineID, mgr := range snapshot {
		d.table.RLock()
		_, found := d.table.GetByPipelineID(pipelineID)
		d.table.RUnlock()
		if found {
			continue
		}

		d.log.Info().Str("pipeline_id", pipelineID.String()).Msg("stream entry removed, stopping orphaned pipeline")
		mgr.Stop()

		d.managersMu.Lock()
		delete(d.managers, pipelineID)
		d.managersMu.Unlock()

		d.kv.Clean(fmt.Sprintf("%s:", pipelineID.String()))
	}
}

func (d *Dispatcher) handlePipelineFinished(pipelineID uuid.UUID, reason models.FinishReason) {
	d.managersMu.Lock()
	delete(d.managers, pipelineID)
	d.managersMu.Unlock()

	d.table.Lock()
	entry, found := d.table.GetByPipelineID(pipelineID)
	if !found {
		d.table.Unlock()
		d.log.Warn().Str("pipeline_id", pipelineID.String()).Msg("pipeline finished but no matching stream entry found")
		return
	}
	entryID := entry.ID
	restartPolicy := entry.RestartPolicy
	_ = d.table.UnbindPipeline(entryID)
	newState := streams.NextTargetState(restartPolicy, reason)
	_ = d.table.SetTargetState(entryID, newState)
	d.table.Unlock()

	d.publishFinished(entryID, newState)

	select {
	case d.events <- models.NewTableChangeEvent():
	default:
		d.log.Warn().Msg("dispatcher event channel full, table change event dropped after pipeline finish")
	}
}

func (d *Dispatcher) removeEntry(entryID uuid.UUID) {
	d.table.Lock()
	_, _ = d.table.Remove(entryID)
	d.table.Unlock()
}

func (d *Dispatcher) postFinished(pipelineID uuid.UUID, reason models.FinishReason) {
	select {
	case d.events <- models.NewPipelineFinishedEvent(pipelineID, reason):
	default:
		d.log.Warn().Str("pipeline_id", pipelineID.String()).Msg("dispatcher event channel full, finished event dropped")
	}
}

func (d *Dispatcher) publishFinished(entryID uuid.UUID, state streams.TargetState) {
	payload, err := json.Marshal(eventexport.StreamFinished{
		Type:       "StreamFinished",
		EndState:   state.String(),
		StreamUUID: entryID.String(),
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to marshal stream-finished event")
		return
	}
	if err := d.exporter.Publish(string(payload)); err != nil {
		d.log.Warn().Err(err).Msg("failed to publish stream-finished event")
	}
}

func (d *Dispatcher) publishStartError(entryID uuid.UUID) {
	payload, err := json.Marshal(eventexport.StreamStartError{
		Type:       "StreamStartError",
		EndState:   "error",
		StreamUUID: entryID.String(),
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to marshal stream-start-error event")
		return
	}
	if err := d.exporter.Publish(string(payload)); err != nil {
		d.log.Warn().Err(err).Msg("failed to publish stream-start-error event")
	}
}
