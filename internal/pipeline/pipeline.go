// Package pipeline orchestrates one diff run as a strictly sequential
// state machine: snapshot extraction, preparation, flattening, diffing,
// compilation, delivery and cleanup. Each stage runs to completion before
// the next begins; the first fatal error aborts the rest of the pipeline.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/gitrepo"
	"git.home.luguber.info/inful/texdiff/internal/latex"
	"git.home.luguber.info/inful/texdiff/internal/logfields"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
	"git.home.luguber.info/inful/texdiff/internal/workspace"
)

// Pipeline is one configured diff run.
type Pipeline struct {
	opts   config.Options
	repo   *gitrepo.Repo
	runner run.Runner
	ws     *workspace.Manager
}

// New assembles a pipeline. A nil runner gets the exec-backed default
// once the workspace exists (its log directory is the workspace root).
func New(opts config.Options, repo *gitrepo.Repo, runner run.Runner) *Pipeline {
	return &Pipeline{
		opts:   opts,
		repo:   repo,
		runner: runner,
		ws:     workspace.NewManager(opts.TmpDirPrefix),
	}
}

// WorkspacePath returns the workspace root, empty before Run creates it
// or after cleanup removed it.
func (p *Pipeline) WorkspacePath() string { return p.ws.Path() }

// Run executes the whole pipeline. On success the artifact's final
// location has been reported; on a fatal error the workspace is kept for
// inspection and its path reported. The returned error is nil exactly
// when the process should exit zero.
func (p *Pipeline) Run(ctx context.Context) error {
	st := &State{
		Opts:      p.opts,
		RunID:     uuid.NewString(),
		Runner:    p.runner,
		Repo:      p.repo,
		Workspace: p.ws,
		Durations: make(map[StageName]time.Duration),
	}

	stages := []StageDef{
		{StageResolve, stageResolve},
		{StageWorkspace, stageWorkspace},
		{StageExtractOld, stageExtractOld},
		{StageExtractNew, stageExtractNew},
		{StageOverlay, stageOverlay},
		{StagePrepare, stagePrepare},
		{StageBibliography, stageBibliography},
		{StageFlatten, stageFlatten},
		{StageDiff, stageDiff},
		{StageCompile, stageCompile},
		{StageDeliver, stageDeliver},
	}

	err := runStages(ctx, st, stages)

	// Cleanup policy: a failed run (compilation or anything before it)
	// always keeps the workspace so the user can inspect logs and
	// intermediate files.
	if cleanupErr := p.ws.Cleanup(p.opts.Cleanup, err == nil && st.CompileOK); cleanupErr != nil {
		slog.Warn("Workspace cleanup failed", logfields.Error(cleanupErr))
	}
	if err != nil && p.ws.Path() != "" {
		slog.Info("Workspace kept for inspection", logfields.Path(p.ws.Path()))
	}
	return err
}

// stageResolve pins down both revisions and the main document before
// anything touches the filesystem. Resolution happens exactly once; the
// values are immutable afterwards.
func stageResolve(_ context.Context, st *State) error {
	old, err := st.Repo.Resolve(st.Opts.OldRev)
	if err != nil {
		return newFatalStageError(StageResolve, err)
	}
	st.OldRev = old

	newRev, err := st.Repo.Resolve(st.Opts.NewRev)
	if err != nil {
		return newFatalStageError(StageResolve, err)
	}
	st.NewRev = newRev

	if st.Opts.Main == "" {
		main, err := st.Repo.FindMainDocument(st.Opts.NewRev)
		if err != nil {
			return newFatalStageError(StageResolve, err)
		}
		st.Opts.Main = main
		slog.Info("Detected main document", logfields.Path(main))
	}

	slog.Debug("Resolved revisions",
		logfields.RunID(st.RunID),
		slog.String("old", st.OldRev),
		slog.String("new", st.NewRev))
	return nil
}

// stageWorkspace creates the temporary tree and, when no runner was
// injected, the exec runner logging into it.
func stageWorkspace(_ context.Context, st *State) error {
	if err := st.Workspace.Create(); err != nil {
		return newFatalStageError(StageWorkspace, err)
	}
	if st.Runner == nil {
		st.Runner = run.NewExecRunner(st.Opts.Verbosity, st.Workspace.Path())
	}
	st.Extractor = gitrepo.NewExtractor(st.Repo, st.Runner)
	return nil
}

// checkoutRoot returns the export scope: the main document's directory
// prefix in subtree mode, the whole repository otherwise.
func checkoutRoot(opts config.Options) string {
	if opts.Subtree {
		return opts.MainDir()
	}
	return ""
}

func stageExtractOld(ctx context.Context, st *State) error {
	dest := st.Workspace.SnapshotDir(workspace.OldDir)
	if err := st.Extractor.Extract(ctx, workspace.OldDir, st.OldRev, dest, checkoutRoot(st.Opts)); err != nil {
		return newFatalStageError(StageExtractOld, err)
	}
	return nil
}

func stageExtractNew(ctx context.Context, st *State) error {
	dest := st.Workspace.SnapshotDir(workspace.NewDir)
	if err := st.Extractor.Extract(ctx, workspace.NewDir, st.NewRev, dest, checkoutRoot(st.Opts)); err != nil {
		return newFatalStageError(StageExtractNew, err)
	}
	return nil
}

// stageOverlay links the live document directory into the new snapshot
// when requested (always when diffing against the working tree).
func stageOverlay(_ context.Context, st *State) error {
	if !st.Opts.LnUntracked {
		return nil
	}
	dest := st.Workspace.SnapshotDir(workspace.NewDir)
	if err := st.Extractor.LinkUntracked(dest, st.Opts.MainDir()); err != nil {
		return newFatalStageError(StageOverlay, err)
	}
	return nil
}

// stagePrepare runs the prepare command in each snapshot, old first, and
// verifies the main document exists on both sides afterwards.
func stagePrepare(ctx context.Context, st *State) error {
	for _, side := range []string{workspace.OldDir, workspace.NewDir} {
		err := latex.Prepare(ctx, st.Runner, st.Workspace.SnapshotDir(side),
			st.Opts.MainDir(), st.Opts.MainBase(), st.Opts.Prepare, side)
		if err != nil {
			return newFatalStageError(StagePrepare, err)
		}
	}
	return nil
}

func stageBibliography(ctx context.Context, st *State) error {
	if !st.Opts.UseBBL {
		return nil
	}
	for _, side := range []string{workspace.OldDir, workspace.NewDir} {
		if err := latex.EnsureBibliography(ctx, st.Runner, st.Workspace.SnapshotDir(side), st.Opts, side); err != nil {
			return newFatalStageError(StageBibliography, err)
		}
	}
	return nil
}

// stageFlatten decides the flattening strategy and produces the two
// sources the diff stage will consume.
func stageFlatten(ctx context.Context, st *State) error {
	st.FlattenMode = latex.DecideFlatten(st.Opts, st.Runner.Available(latex.LatexpandTool))

	rawOld := filepath.Join(st.Workspace.SnapshotDir(workspace.OldDir), st.Opts.Main)
	rawNew := filepath.Join(st.Workspace.SnapshotDir(workspace.NewDir), st.Opts.Main)

	if st.FlattenMode != latex.FlattenLatexpand {
		st.OldSource, st.NewSource = rawOld, rawNew
		return nil
	}

	for _, f := range []struct {
		side string
		out  *string
	}{
		{workspace.OldDir, &st.OldSource},
		{workspace.NewDir, &st.NewSource},
	} {
		outPath := filepath.Join(st.Workspace.Path(), latex.FlattenedName(f.side, st.Opts.MainBase()))
		err := latex.Flatten(ctx, st.Runner, st.Workspace.SnapshotDir(f.side), st.Opts, f.side, outPath)
		if err != nil {
			return newFatalStageError(StageFlatten, err)
		}
		*f.out = outPath
	}
	return nil
}

// stageDiff produces the annotated document and substitutes it for the
// new snapshot's main document, which is how the compilation stage sees
// the diff as if it were the real document.
func stageDiff(ctx context.Context, st *State) error {
	diffPath := filepath.Join(st.Workspace.Path(), "diff.tex")
	if err := latex.Diff(ctx, st.Runner, st.Opts, st.FlattenMode, st.OldSource, st.NewSource, diffPath); err != nil {
		return newFatalStageError(StageDiff, err)
	}

	newMain := filepath.Join(st.Workspace.SnapshotDir(workspace.NewDir), st.Opts.Main)
	if err := latex.InstallDiff(diffPath, newMain); err != nil {
		return newFatalStageError(StageDiff, err)
	}
	return nil
}

func stageCompile(ctx context.Context, st *State) error {
	docDir := filepath.Join(st.Workspace.SnapshotDir(workspace.NewDir), st.Opts.MainDir())
	st.Compile = latex.Compile(ctx, st.Runner, docDir, st.Opts)

	if !st.Compile.PDFOK {
		return newFatalStageError(StageCompile, texerr.CompilationError(docDir, st.Opts.MainBase()))
	}
	if st.Compile.PassFailed && !st.Opts.IgnoreLatexErrors {
		return newFatalStageError(StageCompile, texerr.CompilationError(docDir, st.Opts.MainBase()))
	}

	st.CompileOK = true
	if st.Compile.PassFailed {
		// Tolerated: a valid artifact exists, so the failure flag is
		// downgraded to a warning.
		return newWarnStageError(StageCompile,
			texerr.CompilationError(docDir, st.Opts.MainBase()))
	}
	return nil
}

func stageDeliver(_ context.Context, st *State) error {
	dest, err := latex.Deliver(st.Compile.PDFPath, st.Workspace.Path(), st.Opts.Output)
	if err != nil {
		return newFatalStageError(StageDeliver, err)
	}
	st.ArtifactPath = dest
	slog.Info("Diff document ready", logfields.Path(dest))

	if !latex.ShouldView(st.Opts, st.Opts.PDFViewer != "" && st.Runner.Available(st.Opts.PDFViewer)) {
		return nil
	}
	if st.Opts.PDFViewer == "" {
		slog.Warn("No viewer configured; set PDFVIEWER or --pdf-viewer")
		return nil
	}
	if err := st.Runner.Start(run.Cmd{Tool: st.Opts.PDFViewer, Args: []string{dest}}); err != nil {
		st.Warnings = append(st.Warnings, err)
		slog.Warn("Could not launch viewer", logfields.Tool(st.Opts.PDFViewer), logfields.Error(err))
	}
	return nil
}
