// Package run is the single place the pipeline touches external processes.
// Every stage describes an invocation as a Cmd and hands it to a Runner;
// output routing by verbosity (stream to stderr, or redirect to a per-stage
// log file in the workspace) is centralized here.
package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/logfields"
)

// Cmd describes one external tool invocation.
type Cmd struct {
	Tool string
	Args []string
	Dir  string

	// LogName selects the per-stage log file (<LogName>.log) that
	// receives the tool's output when it is not streamed.
	LogName string

	// Stdin, when set, is fed to the process.
	Stdin io.Reader

	// Stdout, when set, captures standard output instead of the log
	// sink (used for tools that write their result to stdout).
	Stdout io.Writer
}

// Runner executes external commands. The pipeline depends on this
// interface so tests can substitute a recording fake.
type Runner interface {
	// Run executes the command and blocks until it exits. A nonzero
	// exit status is returned as an error.
	Run(ctx context.Context, c Cmd) error

	// Start launches the command without waiting for it (viewer
	// invocations are fire-and-forget).
	Start(c Cmd) error

	// Available reports whether the tool can be found in PATH.
	Available(tool string) bool
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	verbosity config.Verbosity
	logDir    string
}

// NewExecRunner creates a runner writing redirected output under logDir.
func NewExecRunner(verbosity config.Verbosity, logDir string) *ExecRunner {
	return &ExecRunner{verbosity: verbosity, logDir: logDir}
}

// Run executes the command, routing output per verbosity. The log sink is
// opened in append mode so repeated passes of the same tool accumulate in
// one file.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	cmd := exec.CommandContext(ctx, c.Tool, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin

	sink, closeSink, err := r.sink(c)
	if err != nil {
		return err
	}
	defer closeSink()

	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = sink
	}
	cmd.Stderr = sink

	slog.Debug("Running external tool", logfields.Tool(c.Tool), logfields.Path(c.Dir))
	start := time.Now()
	runErr := cmd.Run()
	slog.Debug("External tool finished",
		logfields.Tool(c.Tool),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())),
		logfields.Error(runErr))

	if runErr != nil {
		return fmt.Errorf("%s: %w", c.Tool, runErr)
	}
	return nil
}

// Start launches the command detached from the pipeline's lifetime.
func (r *ExecRunner) Start(c Cmd) error {
	cmd := exec.Command(c.Tool, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", c.Tool, err)
	}
	// Reap the child when it eventually exits.
	go func() { _ = cmd.Wait() }()
	return nil
}

// Available reports whether tool resolves via PATH lookup.
func (r *ExecRunner) Available(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

// sink returns the writer receiving non-captured tool output.
func (r *ExecRunner) sink(c Cmd) (io.Writer, func(), error) {
	if r.verbosity == config.VerbosityVerbose {
		return os.Stderr, func() {}, nil
	}
	if r.logDir == "" || c.LogName == "" {
		return io.Discard, func() {}, nil
	}
	path := filepath.Join(r.logDir, c.LogName+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
