package latex

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/logfields"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// EnsureBibliography makes sure a snapshot carries the compiled
// bibliography (<base>.bbl) that bbl-inclusion mode inlines during
// flattening. When the file is absent, one compiler pass followed by one
// bibtex pass is attempted inside the snapshot's document directory;
// persistent absence is fatal. The regeneration is attempted at most once
// per snapshot.
func EnsureBibliography(ctx context.Context, runner run.Runner, snapshotDir string, opts config.Options, side string) error {
	docDir := filepath.Join(snapshotDir, opts.MainDir())
	base := strings.TrimSuffix(opts.MainBase(), filepath.Ext(opts.MainBase()))
	bbl := filepath.Join(docDir, base+".bbl")

	if _, err := os.Stat(bbl); err == nil {
		return nil
	}
	slog.Debug("Compiled bibliography missing; regenerating", logfields.Side(side), logfields.Path(bbl))

	compile := run.Cmd{
		Tool:    CompilerTool,
		Args:    append([]string{InteractionFlag(opts)}, append(append([]string{}, opts.LatexOpts...), opts.MainBase())...),
		Dir:     docDir,
		LogName: LogBib,
	}
	if err := runner.Run(ctx, compile); err != nil {
		slog.Warn("Compiler pass for bibliography exited nonzero", logfields.Side(side), logfields.Error(err))
	}
	if err := runner.Run(ctx, run.Cmd{Tool: BibTeXTool, Args: []string{base}, Dir: docDir, LogName: LogBib}); err != nil {
		slog.Warn("bibtex pass exited nonzero", logfields.Side(side), logfields.Error(err))
	}

	if _, err := os.Stat(bbl); err != nil {
		return texerr.BibliographyError(side, bbl)
	}
	return nil
}
