package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
)

// DefaultStageTimeout bounds a single stage execution.
const DefaultStageTimeout = 90 * time.Second

// StateStore holds the live state of every run.
type StateStore interface {
	// Begin registers a new run. It fails with ErrRunActive when a run with
	// the same id has not reached a terminal status.
	Begin(id analysis.RunID, state *analysis.SharedState) error
	// Update mutates the state of id under its lock.
	Update(id analysis.RunID, fn func(*analysis.SharedState)) error
	// Get returns a snapshot.
	Get(id analysis.RunID) (*analysis.SharedState, error)
}

// RunOutcome is what a finished run hands back.
type RunOutcome struct {
	// Deliverable is nil when the run failed.
	Deliverable *analysis.Deliverable
	State       *analysis.SharedState
}

// Orchestrator executes runs against a stage graph.
type Orchestrator struct {
	levels       [][]Node
	upstream     map[analysis.StageName][]Edge
	store        StateStore
	retriever    analysis.ContextRetriever
	deliverables analysis.DeliverableStore
	publisher    events.Publisher
	logger       *slog.Logger
	stageTimeout time.Duration
	now          func() time.Time

	running sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetriever sets the context retriever consulted before the first stage.
func WithRetriever(r analysis.ContextRetriever) Option {
	return func(o *Orchestrator) { o.retriever = r }
}

// WithDeliverableStore sets where finished deliverables are saved.
func WithDeliverableStore(s analysis.DeliverableStore) Option {
	return func(o *Orchestrator) { o.deliverables = s }
}

// WithPublisher sets the run event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStageTimeout sets the per-stage time budget. Non-positive values keep the default.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stageTimeout = d
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator validates graph and prepares its execution levels.
func NewOrchestrator(graph *Graph, store StateStore, opts ...Option) (*Orchestrator, error) {
	if graph == nil {
		return nil, errors.New("orchestrator requires a graph")
	}
	if store == nil {
		return nil, errors.New("orchestrator requires a state store")
	}
	levels, err := graph.Levels()
	if err != nil {
		return nil, fmt.Errorf("plan graph: %w", err)
	}

	o := &Orchestrator{
		levels:       levels,
		upstream:     make(map[analysis.StageName][]Edge),
		store:        store,
		logger:       slog.Default(),
		stageTimeout: DefaultStageTimeout,
		now:          time.Now,
	}
	for _, n := range graph.Nodes() {
		o.upstream[n.Stage.Name()] = graph.Upstream(n.Stage.Name())
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the graph for one document and blocks until the run is terminal.
// When a critical stage fails the returned error is its *analysis.StageFailure
// and the outcome still carries the final state.
func (o *Orchestrator) Run(ctx context.Context, id analysis.RunID, text string) (*RunOutcome, error) {
	id, err := o.register(id, text)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, id)
}

// Submit registers the run and executes it in the background. Poll State for progress.
func (o *Orchestrator) Submit(ctx context.Context, id analysis.RunID, text string) (analysis.RunID, error) {
	id, err := o.register(id, text)
	if err != nil {
		return analysis.RunID{}, err
	}

	runCtx := context.WithoutCancel(ctx)
	o.running.Add(1)
	go func() {
		defer o.running.Done()
		if _, err := o.execute(runCtx, id); err != nil {
			o.logger.Warn("background run failed", "run_id", id.String(), "error", err)
		}
	}()
	return id, nil
}

// Wait blocks until every submitted run has finished.
func (o *Orchestrator) Wait() {
	o.running.Wait()
}

// State returns a snapshot of the run.
func (o *Orchestrator) State(id analysis.RunID) (*analysis.SharedState, error) {
	return o.store.Get(id)
}

func (o *Orchestrator) register(id analysis.RunID, text string) (analysis.RunID, error) {
	id, err := analysis.NewRunID(id.ProjectID, id.DocumentID)
	if err != nil {
		return analysis.RunID{}, err
	}
	if strings.TrimSpace(text) == "" {
		return analysis.RunID{}, &analysis.ValidationError{Field: "text", Reason: "document text is empty"}
	}
	if err := o.store.Begin(id, analysis.NewSharedState(id, text, o.now())); err != nil {
		return analysis.RunID{}, err
	}
	return id, nil
}

func (o *Orchestrator) execute(ctx context.Context, id analysis.RunID) (*RunOutcome, error) {
	fsm, err := analysis.NewRunStateMachine(analysis.RunPending, id.String())
	if err != nil {
		return nil, fmt.Errorf("create run state machine: %w", err)
	}
	started := o.now()

	o.transition(id, fsm, analysis.EventStart)
	o.publish(ctx, id, events.EventTypeRunStarted, map[string]interface{}{
		events.MetaProjectID:  id.ProjectID,
		events.MetaDocumentID: id.DocumentID,
	})

	o.retrieveContext(ctx, id)

	failure, degraded := o.runLevels(ctx, id)
	switch {
	case failure != nil:
		o.transition(id, fsm, analysis.EventFail)
	case degraded:
		o.transition(id, fsm, analysis.EventDegrade)
	default:
		o.transition(id, fsm, analysis.EventSucceed)
	}

	var deliverable *analysis.Deliverable
	if fsm.Current().HasDeliverable() {
		deliverable = o.persist(ctx, id)
	}

	final, err := o.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("load final state: %w", err)
	}
	o.publish(ctx, id, events.EventTypeRunFinished, map[string]interface{}{
		events.MetaStatus:   string(final.Status),
		events.MetaDuration: o.now().Sub(started).Seconds(),
	})

	outcome := &RunOutcome{Deliverable: deliverable, State: final}
	if failure != nil {
		return outcome, failure
	}
	return outcome, nil
}

// retrieveContext fetches supporting context. Failures degrade the run to
// document text only and are recorded as warnings.
func (o *Orchestrator) retrieveContext(ctx context.Context, id analysis.RunID) {
	if o.retriever == nil {
		return
	}

	text, err := o.retriever.RetrieveContext(ctx, id.DocumentID)
	var warning string
	switch {
	case err != nil:
		warning = fmt.Sprintf("context retrieval failed, using document text only: %v", err)
	case strings.TrimSpace(text) == "":
		warning = "no retrieved context, using document text only"
	}

	_ = o.update(id, func(s *analysis.SharedState) {
		if warning != "" {
			s.Warnings = append(s.Warnings, warning)
			return
		}
		s.SetRetrievedContext(text)
	})
	if warning != "" {
		o.publish(ctx, id, events.EventTypeRunContextDegraded, map[string]interface{}{
			events.MetaMessage: warning,
		})
	}
}

// runLevels executes the graph level by level. It returns the failure of the
// first critical stage that failed, and whether any other stage failed or was skipped.
func (o *Orchestrator) runLevels(ctx context.Context, id analysis.RunID) (*analysis.StageFailure, bool) {
	succeeded := make(map[analysis.StageName]bool)
	degraded := false

	for _, level := range o.levels {
		runnable := make([]Node, 0, len(level))
		for _, n := range level {
			if up, blocked := o.blockedBy(n, succeeded); blocked {
				o.logger.Info("skipping stage", "run_id", id.String(), "stage", n.Stage.Name(), "failed_upstream", up)
				degraded = true
				continue
			}
			runnable = append(runnable, n)
		}
		if len(runnable) == 0 {
			continue
		}

		startedAt := o.now()
		var snap *analysis.SharedState
		err := o.update(id, func(s *analysis.SharedState) {
			for _, n := range runnable {
				s.StartStage(n.Stage.Name(), startedAt)
			}
			snap = s.Snapshot()
		})
		if err != nil {
			return &analysis.StageFailure{Stage: runnable[0].Stage.Name(), Kind: analysis.KindDependency, Message: err.Error()}, degraded
		}
		for _, n := range runnable {
			o.publish(ctx, id, events.EventTypeStageStarted, map[string]interface{}{
				events.MetaStage:     string(n.Stage.Name()),
				events.MetaStartedAt: startedAt.Format(time.RFC3339Nano),
			})
		}

		results := o.runLevel(ctx, runnable, snap)

		_ = o.update(id, func(s *analysis.SharedState) {
			for i, n := range runnable {
				name := n.Stage.Name()
				res := results[i]
				if res.OK() {
					if err := s.Apply(name, n.Stage.Produces(), res.Update); err != nil {
						res.Err = &analysis.StageFailure{Stage: name, Kind: analysis.KindDependency, Message: err.Error()}
					}
				}
				if res.OK() {
					s.FinishStage(name, analysis.StageSucceeded, res.finishedAt)
				} else {
					s.RecordError(name, res.Err.Kind, res.Err.Message, res.finishedAt)
					s.FinishStage(name, analysis.StageFailed, res.finishedAt)
				}
				results[i] = res
			}
		})

		var failure *analysis.StageFailure
		for i, n := range runnable {
			o.publishStageFinished(ctx, id, n.Stage.Name(), startedAt, results[i])
			if results[i].OK() {
				succeeded[n.Stage.Name()] = true
				continue
			}
			if n.Critical && failure == nil {
				failure = results[i].Err
			} else {
				degraded = true
			}
		}
		if failure != nil {
			return failure, degraded
		}
	}
	return nil, degraded
}

// blockedBy reports the first hard upstream stage that did not succeed.
func (o *Orchestrator) blockedBy(n Node, succeeded map[analysis.StageName]bool) (analysis.StageName, bool) {
	for _, e := range o.upstream[n.Stage.Name()] {
		if e.Kind == HardEdge && !succeeded[e.From] {
			return e.From, true
		}
	}
	return "", false
}

// runLevel runs the nodes of one level. Siblings run concurrently and never
// cancel each other; results come back in declaration order.
func (o *Orchestrator) runLevel(ctx context.Context, nodes []Node, snap *analysis.SharedState) []StageResult {
	results := make([]StageResult, len(nodes))
	if len(nodes) == 1 {
		results[0] = o.runStage(ctx, nodes[0].Stage, snap)
		return results
	}

	var g errgroup.Group
	for i, n := range nodes {
		i, stage, view := i, n.Stage, snap.Snapshot()
		g.Go(func() error {
			results[i] = o.runStage(ctx, stage, view)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runStage executes one stage under the stage timeout and converts panics
// and timeouts into failures. A stage that ignores its context is abandoned
// at the deadline; its late result is discarded.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, snap *analysis.SharedState) StageResult {
	start := time.Now()
	returned := make(chan StageResult, 1)
	t := timeout.New[StageResult](timeout.Config{DefaultTimeout: o.stageTimeout})
	_, err := t.Execute(ctx, o.stageTimeout, func(ctx context.Context) (StageResult, error) {
		done := make(chan StageResult, 1)
		go func() { done <- safeExecute(ctx, stage, snap) }()
		select {
		case r := <-done:
			returned <- r
			return r, nil
		case <-ctx.Done():
			return StageResult{}, ctx.Err()
		}
	})

	var res StageResult
	select {
	case res = <-returned:
		overBudget := err != nil || time.Since(start) >= o.stageTimeout
		if overBudget && ctx.Err() == nil && !res.OK() && res.Err.Kind == analysis.KindCollaborator {
			res.Err.Kind = analysis.KindTimeout
		}
	default:
		if ctx.Err() != nil {
			res = Failed(stage.Name(), analysis.KindCollaborator, "%v", ctx.Err())
		} else {
			res = Failed(stage.Name(), analysis.KindTimeout, "stage exceeded its %s time budget", o.stageTimeout)
		}
	}
	if !res.OK() && res.Err.Stage == "" {
		res.Err.Stage = stage.Name()
	}
	res.finishedAt = o.now()
	return res
}

func safeExecute(ctx context.Context, stage Stage, snap *analysis.SharedState) (res StageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(stage.Name(), analysis.KindPanic, "stage panicked: %v", r)
		}
	}()
	return stage.Execute(ctx, snap)
}

// persist hands the deliverable to the store. Failures become warnings on an
// otherwise finished run.
func (o *Orchestrator) persist(ctx context.Context, id analysis.RunID) *analysis.Deliverable {
	state, err := o.store.Get(id)
	if err != nil {
		o.logger.Error("load state for deliverable", "run_id", id.String(), "error", err)
		return nil
	}
	deliverable := state.Deliverable()
	if o.deliverables == nil {
		return deliverable
	}

	if err := o.deliverables.SaveDeliverable(ctx, id.ProjectID, deliverable); err != nil {
		perr := &analysis.PersistenceError{ProjectID: id.ProjectID, Err: err}
		o.logger.Error("deliverable not saved", "run_id", id.String(), "error", perr)
		deliverable.Warnings = append(deliverable.Warnings, perr.Error())
		_ = o.update(id, func(s *analysis.SharedState) {
			s.Warnings = append(s.Warnings, perr.Error())
		})
		o.publish(ctx, id, events.EventTypeRunPersistFailed, map[string]interface{}{
			events.MetaMessage: perr.Error(),
		})
	}
	return deliverable
}

func (o *Orchestrator) transition(id analysis.RunID, fsm *analysis.RunStateMachine, event string) {
	if err := fsm.Transition(event); err != nil {
		o.logger.Error("run transition rejected", "run_id", id.String(), "event", event, "error", err)
		return
	}
	status := fsm.Current()
	_ = o.update(id, func(s *analysis.SharedState) {
		s.Status = status
		if status.IsTerminal() {
			s.FinishedAt = o.now()
		}
	})
}

func (o *Orchestrator) update(id analysis.RunID, fn func(*analysis.SharedState)) error {
	if err := o.store.Update(id, fn); err != nil {
		o.logger.Error("update run state", "run_id", id.String(), "error", err)
		return err
	}
	return nil
}

func (o *Orchestrator) publishStageFinished(ctx context.Context, id analysis.RunID, stage analysis.StageName, startedAt time.Time, res StageResult) {
	meta := map[string]interface{}{
		events.MetaStage:      string(stage),
		events.MetaStatus:     string(analysis.StageSucceeded),
		events.MetaStartedAt:  startedAt.Format(time.RFC3339Nano),
		events.MetaFinishedAt: res.finishedAt.Format(time.RFC3339Nano),
		events.MetaDuration:   res.finishedAt.Sub(startedAt).Seconds(),
	}
	if !res.OK() {
		meta[events.MetaStatus] = string(analysis.StageFailed)
		meta[events.MetaKind] = string(res.Err.Kind)
		meta[events.MetaMessage] = res.Err.Message
	}
	o.publish(ctx, id, events.EventTypeStageFinished, meta)
}

// publish emits a run event. Journal problems never affect the run.
func (o *Orchestrator) publish(ctx context.Context, id analysis.RunID, eventType string, meta map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	event := events.NewRunEvent(eventType, id.String(), o.now(), meta)
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("publish run event", "run_id", id.String(), "event_type", eventType, "error", err)
	}
}
