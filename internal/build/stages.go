// Package build runs the site build as an ordered pipeline of stages and
// keeps the incremental state of development mode.
package build

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names.
const (
	StageLoadContent StageName = "load_content"
	StageTransform   StageName = "transform"
	StageIndex       StageName = "index"
	StageBundle      StageName = "bundle"
	StageRoutes      StageName = "routes"
	StagePrerender   StageName = "prerender"
	StageSitemap     StageName = "sitemap"
	StageFinish      StageName = "finish"
	StageSearchIndex StageName = "search_index"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions. Stages left out
// are remembered with the reason they were left out.
type Pipeline struct {
	Defs    []StageDef
	Skipped map[StageName]string
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{Defs: make([]StageDef, 0, 9), Skipped: make(map[StageName]string)}
}

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddUnless appends a stage when skipReason is empty and records the reason
// otherwise.
func (p *Pipeline) AddUnless(skipReason string, name StageName, fn Stage) *Pipeline {
	if skipReason != "" {
		p.Skipped[name] = skipReason
		return p
	}
	return p.Add(name, fn)
}

// Build returns a copy of the stage definitions.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// Names lists the stage names in order.
func Names(defs []StageDef) []StageName {
	out := make([]StageName, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}
