package pipeline

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/gitrepo"
	"git.home.luguber.info/inful/texdiff/internal/latex"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/workspace"
)

// StageName is a strongly-typed identifier for a pipeline stage. All
// canonical stages are declared as constants here.
type StageName string

const (
	StageResolve      StageName = "resolve"
	StageWorkspace    StageName = "workspace"
	StageExtractOld   StageName = "extract_old"
	StageExtractNew   StageName = "extract_new"
	StageOverlay      StageName = "overlay"
	StagePrepare      StageName = "prepare"
	StageBibliography StageName = "bibliography"
	StageFlatten      StageName = "flatten"
	StageDiff         StageName = "diff"
	StageCompile      StageName = "compile"
	StageDeliver      StageName = "deliver"
)

// Stage is a discrete unit of work in the diff pipeline.
type Stage func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal   StageErrorKind = "fatal"   // Pipeline must abort.
	StageErrorWarning StageErrorKind = "warning" // Non-fatal; record and continue.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

// State carries mutable results across stages. The Options bundle inside
// it is read-only; stages only fill in what they produced.
type State struct {
	Opts   config.Options
	RunID  string
	Runner run.Runner

	Repo      *gitrepo.Repo
	Extractor *gitrepo.Extractor
	Workspace *workspace.Manager

	// Resolved by StageResolve.
	OldRev  string
	NewRev  string

	// Set by StageFlatten for the diff stage.
	FlattenMode latex.FlattenMode
	OldSource   string
	NewSource   string

	// Set by StageCompile / StageDeliver.
	Compile      latex.Result
	CompileOK    bool
	ArtifactPath string

	Warnings  []error
	Durations map[StageName]time.Duration
}
