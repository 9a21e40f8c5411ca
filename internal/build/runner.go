package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// StageOutcome normalized result of stage execution.
type StageOutcome struct {
	Stage     StageName
	Error     *StageError
	Result    StageResult
	IssueCode ReportIssueCode
	Severity  IssueSeverity
	Abort     bool
}

// RunStages executes stages in order, recording timing and stopping on first fatal error.
func RunStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(st.Name, ctx.Err())
			bs.Report.StageErrorKinds[st.Name] = se.Kind
			bs.Report.AddIssue(IssueCanceled, st.Name, SeverityError, se.Error(), se)
			bs.Report.RecordStageResult(st.Name, StageResultCanceled, bs.Recorder)
			return se
		default:
		}

		bs.Logger.Debug("Stage started", logfields.Stage(string(st.Name)))
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		bs.Report.StageDurations[string(st.Name)] = dur
		if bs.Recorder != nil {
			bs.Recorder.ObserveStageDuration(string(st.Name), dur)
		}

		out := ClassifyStageResult(st.Name, err)
		if out.Error != nil {
			bs.Report.StageErrorKinds[st.Name] = out.Error.Kind
			bs.Report.AddIssue(out.IssueCode, out.Stage, out.Severity, out.Error.Error(), out.Error)
		}
		bs.Report.RecordStageResult(st.Name, out.Result, bs.Recorder)
		bs.Logger.Info("Stage complete",
			logfields.Stage(string(st.Name)),
			logfields.Elapsed(dur),
			slog.String("result", string(out.Result)))

		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}

// ClassifyStageResult converts a raw error from a stage into a StageOutcome.
// Plain errors are fatal, context errors are cancellations, and classified
// errors with warning severity become warnings.
func ClassifyStageResult(stage StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: StageResultSuccess}
	}

	var se *StageError
	if !stderrors.As(err, &se) {
		switch {
		case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
			se = NewCanceledStageError(stage, err)
		case errors.GetSeverity(err) == errors.SeverityWarning:
			se = NewWarnStageError(stage, err)
		default:
			se = NewFatalStageError(stage, err)
		}
	}

	switch se.Kind {
	case StageErrorCanceled:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultCanceled, IssueCode: IssueCanceled, Severity: SeverityError, Abort: true}
	case StageErrorWarning:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultWarning, IssueCode: classifyIssueCode(se), Severity: SeverityWarning}
	default:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultFatal, IssueCode: classifyIssueCode(se), Severity: SeverityError, Abort: true}
	}
}

// classifyIssueCode derives the issue code from the error category.
func classifyIssueCode(se *StageError) ReportIssueCode {
	switch errors.GetCategory(se.Err) {
	case errors.CategoryContent, errors.CategoryFileSystem:
		return IssueContentFailure
	case errors.CategoryTransform:
		return IssueTransformFailure
	case errors.CategoryValidation:
		return IssueInvalidMetadata
	case errors.CategoryRender:
		return IssueRenderFailure
	case errors.CategoryExternal:
		return IssueExternalTool
	default:
		return IssueGenericStageError
	}
}
