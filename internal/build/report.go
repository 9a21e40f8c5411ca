package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/metrics"
	"git.home.luguber.info/inful/inkpress/internal/version"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// ReportIssueCode enumerates machine-parseable issue identifiers.
type ReportIssueCode string

const (
	IssueCanceled          ReportIssueCode = "BUILD_CANCELED"
	IssueGenericStageError ReportIssueCode = "GENERIC_STAGE_ERROR"
	IssueContentFailure    ReportIssueCode = "CONTENT_FAILURE"
	IssueTransformFailure  ReportIssueCode = "TRANSFORM_FAILURE"
	IssueInvalidMetadata   ReportIssueCode = "INVALID_METADATA"
	IssueRenderFailure     ReportIssueCode = "RENDER_FAILURE"
	IssueExternalTool      ReportIssueCode = "EXTERNAL_TOOL"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ReportIssue is a structured entry describing a discrete problem.
type ReportIssue struct {
	Code     ReportIssueCode `json:"code"`
	Stage    StageName       `json:"stage"`
	Severity IssueSeverity   `json:"severity"`
	Message  string          `json:"message"`
}

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// BuildReport captures high-level metrics about a build.
type BuildReport struct {
	SchemaVersion   int
	Start           time.Time
	End             time.Time
	Errors          []error // fatal errors causing build abortion
	Warnings        []error
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount
	Skipped         map[StageName]string // stages left out of the pipeline, with the reason
	Issues          []ReportIssue
	Outcome         BuildOutcome

	Entries   int // content files discovered
	Documents int // markdown documents transformed
	Pages     int // page descriptors indexed
	Routes    int // routes enumerated
	Written   int // html files prerendered

	GitHubSHA string
	Version   string
}

// NewBuildReport constructs a new BuildReport.
func NewBuildReport() *BuildReport {
	return &BuildReport{
		SchemaVersion:   1,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
		Skipped:         make(map[StageName]string),
		Version:         version.Version,
	}
}

// AddIssue appends a structured issue and mirrors severity into Errors/Warnings slices.
func (r *BuildReport) AddIssue(code ReportIssueCode, stage StageName, severity IssueSeverity, msg string, err error) {
	r.Issues = append(r.Issues, ReportIssue{Code: code, Stage: stage, Severity: severity, Message: msg})
	if err != nil {
		switch severity {
		case SeverityError:
			r.Errors = append(r.Errors, err)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, err)
		}
	}
}

// Finish sets the end time of the report.
func (r *BuildReport) Finish() { r.End = time.Now() }

// RecordStageResult updates counters and emits metrics (if recorder non-nil).
func (r *BuildReport) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	if r.StageCounts == nil {
		r.StageCounts = make(map[StageName]StageCount)
	}
	sc := r.StageCounts[stage]
	var label metrics.ResultLabel
	switch res {
	case StageResultSuccess:
		sc.Success++
		label = metrics.ResultSuccess
	case StageResultWarning:
		sc.Warning++
		label = metrics.ResultWarning
	case StageResultFatal:
		sc.Fatal++
		label = metrics.ResultFatal
	case StageResultCanceled:
		sc.Canceled++
		label = metrics.ResultCanceled
	}
	if recorder != nil && label != "" {
		recorder.IncStageResult(string(stage), label)
	}
	r.StageCounts[stage] = sc
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("entries=%d documents=%d pages=%d routes=%d written=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.Entries, r.Documents, r.Pages, r.Routes, r.Written, dur.Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), string(r.Outcome))
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *BuildReport) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// BuildReportSerializable is the JSON form of a BuildReport.
type BuildReportSerializable struct {
	SchemaVersion   int                   `json:"schema_version"`
	Start           time.Time             `json:"start"`
	End             time.Time             `json:"end"`
	Errors          []string              `json:"errors"`
	Warnings        []string              `json:"warnings"`
	StageDurations  map[string]int64      `json:"stage_durations_ms"`
	StageErrorKinds map[string]string     `json:"stage_error_kinds"`
	StageCounts     map[string]StageCount `json:"stage_counts"`
	SkippedStages   map[string]string     `json:"skipped_stages,omitempty"`
	Issues          []ReportIssue         `json:"issues"`
	Outcome         string                `json:"outcome"`
	Counts          map[string]int        `json:"counts"`
	GitHubSHA       string                `json:"github_sha,omitempty"`
	Version         string                `json:"version"`
}

// SanitizedCopy converts error and duration fields for JSON output.
func (r *BuildReport) SanitizedCopy() *BuildReportSerializable {
	s := &BuildReportSerializable{
		SchemaVersion:   r.SchemaVersion,
		Start:           r.Start,
		End:             r.End,
		Errors:          make([]string, len(r.Errors)),
		Warnings:        make([]string, len(r.Warnings)),
		StageDurations:  make(map[string]int64, len(r.StageDurations)),
		StageErrorKinds: make(map[string]string, len(r.StageErrorKinds)),
		StageCounts:     make(map[string]StageCount, len(r.StageCounts)),
		SkippedStages:   make(map[string]string, len(r.Skipped)),
		Issues:          r.Issues,
		Outcome:         string(r.Outcome),
		Counts: map[string]int{
			"entries":   r.Entries,
			"documents": r.Documents,
			"pages":     r.Pages,
			"routes":    r.Routes,
			"written":   r.Written,
		},
		GitHubSHA: r.GitHubSHA,
		Version:   r.Version,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	for k, v := range r.StageDurations {
		s.StageDurations[k] = v.Milliseconds()
	}
	for k, v := range r.StageErrorKinds {
		s.StageErrorKinds[string(k)] = string(v)
	}
	for k, v := range r.StageCounts {
		s.StageCounts[string(k)] = v
	}
	for k, v := range r.Skipped {
		s.SkippedStages[string(k)] = v
	}
	if s.Issues == nil {
		s.Issues = []ReportIssue{}
	}
	return s
}

// Persist writes the report as JSON to path atomically.
func (r *BuildReport) Persist(path string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure dir for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.SanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jb, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}
