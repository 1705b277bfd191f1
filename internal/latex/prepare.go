package latex

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/texdiff/internal/logfields"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// Prepare runs the user-supplied shell command inside the snapshot's
// document directory, then verifies the main document exists there. A
// failing command is tolerated (generated inputs may come from a command
// that also does unrelated work); a missing main document afterwards is
// not.
func Prepare(ctx context.Context, runner run.Runner, snapshotDir, mainDir, mainBase, command, side string) error {
	docDir := filepath.Join(snapshotDir, mainDir)

	if command != "" {
		slog.Debug("Running prepare command", logfields.Side(side), slog.String("command", command))
		err := runner.Run(ctx, run.Cmd{
			Tool:    "sh",
			Args:    []string{"-c", command},
			Dir:     docDir,
			LogName: LogPrepare,
		})
		if err != nil {
			slog.Warn("Prepare command exited nonzero", logfields.Side(side), logfields.Error(err))
		}
	}

	mainPath := filepath.Join(docDir, mainBase)
	if info, err := os.Stat(mainPath); err != nil || info.IsDir() {
		return texerr.PreparationError(command, mainPath).WithContext("side", side)
	}
	return nil
}
