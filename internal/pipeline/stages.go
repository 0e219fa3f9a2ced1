package pipeline

import (
	"context"
	"fmt"
	"time"

	goerrors "errors"

	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/metrics"

	"log/slog"
)

// Stage is a discrete unit of work in the pipeline run.
type Stage func(ctx context.Context, st *State) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

type namedStage struct {
	name string
	fn   Stage
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal error. Warnings are recorded and the run continues.
func runStages(ctx context.Context, st *State, rec metrics.Recorder, stages []namedStage) error {
	for _, stage := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(stage.name, ctx.Err())
			st.Report.Errors = append(st.Report.Errors, se)
			rec.IncStageResult(stage.name, metrics.ResultCanceled)
			return se
		default:
		}

		t0 := time.Now()
		err := stage.fn(ctx, st)
		dur := time.Since(t0)
		st.Report.StageDurations[stage.name] = dur
		rec.ObserveStageDuration(stage.name, dur)
		slog.Debug("Stage finished", logfields.Stage(stage.name), logfields.DurationMS(float64(dur.Milliseconds())))

		if err == nil {
			rec.IncStageResult(stage.name, metrics.ResultSuccess)
			continue
		}

		var se *StageError
		if !goerrors.As(err, &se) {
			se = newFatalStageError(stage.name, err)
		}
		switch se.Kind {
		case StageErrorWarning:
			st.Report.Warnings = append(st.Report.Warnings, se)
			rec.IncStageResult(stage.name, metrics.ResultWarning)
		case StageErrorCanceled:
			st.Report.Errors = append(st.Report.Errors, se)
			rec.IncStageResult(stage.name, metrics.ResultCanceled)
			return se
		default:
			st.Report.Errors = append(st.Report.Errors, se)
			rec.IncStageResult(stage.name, metrics.ResultFatal)
			return se
		}
	}
	return nil
}
