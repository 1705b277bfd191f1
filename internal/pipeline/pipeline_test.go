package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/gitrepo"
	"git.home.luguber.info/inful/texdiff/internal/latex"
	"git.home.luguber.info/inful/texdiff/internal/run"
)

// toolRunner executes git for real (snapshot export needs it) and scripts
// the LaTeX toolchain: latexpand copies the main file, latexdiff writes a
// marker document, the compiler drops a PDF. producePDF=false simulates a
// toolchain that yields no artifact.
type toolRunner struct {
	exec       run.Runner
	cmds       []run.Cmd
	started    []run.Cmd
	producePDF bool
}

func (r *toolRunner) Run(ctx context.Context, c run.Cmd) error {
	r.cmds = append(r.cmds, c)
	switch c.Tool {
	case "git":
		return r.exec.Run(ctx, c)
	case latex.LatexpandTool:
		data, err := os.ReadFile(filepath.Join(c.Dir, c.Args[len(c.Args)-1]))
		if err != nil {
			return err
		}
		_, err = c.Stdout.Write(data)
		return err
	case latex.LatexdiffTool:
		_, err := c.Stdout.Write([]byte("ANNOTATED DIFF\n"))
		return err
	case latex.CompilerTool, latex.LatexmkTool, latex.MakeTool:
		if !r.producePDF {
			return nil
		}
		return os.WriteFile(filepath.Join(c.Dir, "paper.pdf"), []byte("%PDF-1.5 diff"), 0o600)
	default:
		return nil
	}
}

func (r *toolRunner) Start(c run.Cmd) error {
	r.started = append(r.started, c)
	return nil
}

func (r *toolRunner) Available(tool string) bool {
	return tool == latex.LatexpandTool
}

// initPaperRepo builds a repository with two revisions of doc/paper.tex.
func initPaperRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}

	commit := func(content, msg string) string {
		if err := os.MkdirAll(filepath.Join(dir, "doc"), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "doc", "paper.tex"), []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := wt.Add("doc/paper.tex"); err != nil {
			t.Fatalf("add: %v", err)
		}
		h, err := wt.Commit(msg, &gogit.CommitOptions{
			Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
		})
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		return h.String()
	}

	first := commit("\\documentclass{article}\n\\begin{document}v1\\end{document}\n", "v1")
	commit("\\documentclass{article}\n\\begin{document}v2\\end{document}\n", "v2")
	return dir, first
}

func testOptions(t *testing.T, oldRev string) config.Options {
	t.Helper()
	opts, err := config.Normalize(config.Options{
		OldRev:       oldRev,
		Main:         "doc/paper.tex",
		Flatten:      true,
		Cleanup:      config.CleanupNone,
		Subtree:      true,
		TmpDirPrefix: t.TempDir(),
		NoView:       true,
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return opts
}

func needGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func TestRunProducesAnnotatedArtifact(t *testing.T) {
	needGit(t)
	dir, first := initPaperRepo(t)

	repo, err := gitrepo.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	opts := testOptions(t, first)
	runner := &toolRunner{exec: run.NewExecRunner(config.VerbosityNormal, t.TempDir()), producePDF: true}
	p := New(opts, repo, runner)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ws := p.WorkspacePath()
	if ws == "" {
		t.Fatal("workspace path empty after run with cleanup none")
	}

	// Both snapshots contain the document.
	oldMain, err := os.ReadFile(filepath.Join(ws, "old", "doc", "paper.tex"))
	if err != nil {
		t.Fatalf("old snapshot missing: %v", err)
	}
	if !strings.Contains(string(oldMain), "v1") {
		t.Errorf("old snapshot has wrong revision: %q", oldMain)
	}

	// The new main document was replaced by the annotated diff, with the
	// original preserved under the backup suffix.
	newMain, err := os.ReadFile(filepath.Join(ws, "new", "doc", "paper.tex"))
	if err != nil {
		t.Fatalf("new main missing: %v", err)
	}
	if !strings.Contains(string(newMain), "ANNOTATED DIFF") {
		t.Errorf("annotated document not installed: %q", newMain)
	}
	orig, err := os.ReadFile(filepath.Join(ws, "new", "doc", "paper.tex.orig"))
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if !strings.Contains(string(orig), "v2") {
		t.Errorf("backup is not the original: %q", orig)
	}

	// Flattened sources were produced for both sides.
	for _, name := range []string{"old-paper-fl.tex", "new-paper-fl.tex"} {
		if _, err := os.Stat(filepath.Join(ws, name)); err != nil {
			t.Errorf("flattened source %s missing: %v", name, err)
		}
	}

	// The artifact moved up to the workspace root.
	if _, err := os.Stat(filepath.Join(ws, "paper.pdf")); err != nil {
		t.Errorf("artifact not delivered to workspace root: %v", err)
	}

	// Fixed compile sequence: three compiler passes, no bibliography.
	var compilerPasses int
	for _, c := range runner.cmds {
		if c.Tool == latex.CompilerTool {
			compilerPasses++
		}
	}
	if compilerPasses != 3 {
		t.Errorf("compiler passes = %d, want 3", compilerPasses)
	}

	// No viewer was launched (--no-view).
	if len(runner.started) != 0 {
		t.Errorf("viewer launched despite --no-view: %v", runner.started)
	}
}

func TestRunDeliversToExplicitOutput(t *testing.T) {
	needGit(t)
	dir, first := initPaperRepo(t)

	repo, err := gitrepo.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	opts := testOptions(t, first)
	opts.Output = filepath.Join(t.TempDir(), "result.pdf")
	opts.Cleanup = config.CleanupAll // what Normalize would force for -o

	runner := &toolRunner{exec: run.NewExecRunner(config.VerbosityNormal, t.TempDir()), producePDF: true}
	p := New(opts, repo, runner)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(opts.Output); err != nil {
		t.Errorf("artifact missing at -o destination: %v", err)
	}
	// Full cleanup: the workspace is gone.
	if ws := p.WorkspacePath(); ws != "" {
		t.Errorf("workspace survived cleanup all: %s", ws)
	}
}

func TestRunCompilationFailureKeepsWorkspace(t *testing.T) {
	needGit(t)
	dir, first := initPaperRepo(t)

	repo, err := gitrepo.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	opts := testOptions(t, first)
	opts.Cleanup = config.CleanupAll

	runner := &toolRunner{exec: run.NewExecRunner(config.VerbosityNormal, t.TempDir()), producePDF: false}
	p := New(opts, repo, runner)

	err = p.Run(context.Background())
	if err == nil {
		t.Fatal("expected compilation failure")
	}

	// The workspace must survive for inspection despite cleanup all.
	ws := p.WorkspacePath()
	if ws == "" {
		t.Fatal("workspace path lost after failed compile")
	}
	if _, statErr := os.Stat(ws); statErr != nil {
		t.Errorf("workspace removed after failed compile: %v", statErr)
	}
}

func TestRunWorktreeSentinelDiffsUncommittedChanges(t *testing.T) {
	needGit(t)
	dir, first := initPaperRepo(t)

	// Uncommitted modification in the live tree.
	content := "\\documentclass{article}\n\\begin{document}uncommitted\\end{document}\n"
	if err := os.WriteFile(filepath.Join(dir, "doc", "paper.tex"), []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	repo, err := gitrepo.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	opts, err := config.Normalize(config.Options{
		OldRev:       first,
		NewRev:       config.WorktreeRev,
		Main:         "doc/paper.tex",
		Flatten:      true,
		Cleanup:      config.CleanupNone,
		Subtree:      true,
		TmpDirPrefix: t.TempDir(),
		NoView:       true,
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	runner := &toolRunner{exec: run.NewExecRunner(config.VerbosityNormal, t.TempDir()), producePDF: true}
	p := New(opts, repo, runner)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The new snapshot's backup (the pre-diff main) is the overlay link
	// to the live, uncommitted file.
	orig, err := os.ReadFile(filepath.Join(p.WorkspacePath(), "new", "doc", "paper.tex.orig"))
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if !strings.Contains(string(orig), "uncommitted") {
		t.Errorf("working-tree content not in new snapshot: %q", orig)
	}
}
