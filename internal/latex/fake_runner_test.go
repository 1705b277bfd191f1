package latex

import (
	"context"

	"git.home.luguber.info/inful/texdiff/internal/run"
)

// fakeRunner records invocations and lets tests script outcomes.
type fakeRunner struct {
	cmds    []run.Cmd
	onRun   func(c run.Cmd) error
	started []run.Cmd
	tools   map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, c run.Cmd) error {
	f.cmds = append(f.cmds, c)
	if f.onRun != nil {
		return f.onRun(c)
	}
	return nil
}

func (f *fakeRunner) Start(c run.Cmd) error {
	f.started = append(f.started, c)
	return nil
}

func (f *fakeRunner) Available(tool string) bool {
	if f.tools == nil {
		return true
	}
	return f.tools[tool]
}
