// Package pipeline runs an RFP document through the analysis graph.
//
// Each Stage reads fields of a SharedState snapshot and returns a StageResult.
// The Orchestrator owns the live state: it schedules stages level by level,
// runs independent stages concurrently, and applies their updates in declared
// order once a level has joined.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// Stage is one node of the analysis graph.
type Stage interface {
	Name() analysis.StageName
	// Requires lists the fields Execute reads.
	Requires() analysis.FieldSet
	// Produces lists the fields Execute may write.
	Produces() analysis.FieldSet
	// Execute must not mutate state; it reports everything through the result.
	Execute(ctx context.Context, state *analysis.SharedState) StageResult
}

// StageResult is either a successful update or a failure.
type StageResult struct {
	Update analysis.StageUpdate
	Err    *analysis.StageFailure

	finishedAt time.Time
}

// OK reports whether the stage succeeded.
func (r StageResult) OK() bool {
	return r.Err == nil
}

// Succeeded wraps an update.
func Succeeded(u analysis.StageUpdate) StageResult {
	return StageResult{Update: u}
}

// Failed builds a failure result.
func Failed(stage analysis.StageName, kind analysis.ErrorKind, format string, args ...interface{}) StageResult {
	return StageResult{Err: &analysis.StageFailure{Stage: stage, Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// FailedWith wraps an existing failure.
func FailedWith(f *analysis.StageFailure) StageResult {
	return StageResult{Err: f}
}

// requireFields turns a missing-field condition into a dependency failure.
func requireFields(s Stage, state *analysis.SharedState) *analysis.StageFailure {
	if err := state.Require(s.Name(), s.Requires()); err != nil {
		return &analysis.StageFailure{Stage: s.Name(), Kind: analysis.KindDependency, Message: err.Error()}
	}
	return nil
}
