package latex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// FlattenMode is the resolved flattening strategy for one run.
type FlattenMode int

const (
	// FlattenLatexpand expands each snapshot with latexpand first.
	FlattenLatexpand FlattenMode = iota
	// FlattenDiffTool hands the raw main documents to latexdiff and
	// asks it to flatten itself (--flatten).
	FlattenDiffTool
	// FlattenOff diffs the raw main documents as-is.
	FlattenOff
)

// DecideFlatten picks the flattening strategy. latexpand is the default;
// when it is unavailable the diff tool's built-in flattening takes over,
// and --latexdiff-flatten requests that delegation explicitly.
// --no-flatten turns flattening off entirely.
func DecideFlatten(opts config.Options, latexpandAvailable bool) FlattenMode {
	if !opts.Flatten {
		return FlattenOff
	}
	if opts.LatexdiffFlatten || !latexpandAvailable {
		return FlattenDiffTool
	}
	return FlattenLatexpand
}

// FlattenArgs builds the latexpand argument list for one snapshot.
// In bbl mode the compiled bibliography is inlined into the expansion.
func FlattenArgs(opts config.Options, mainBase string) []string {
	args := append([]string{}, opts.LatexpandOpts...)
	if opts.UseBBL {
		base := mainBase[:len(mainBase)-len(filepath.Ext(mainBase))]
		args = append(args, "--expand-bbl", base+".bbl")
	}
	return append(args, mainBase)
}

// Flatten runs latexpand on a snapshot's main document, writing the
// single-file expansion to outPath.
func Flatten(ctx context.Context, runner run.Runner, snapshotDir string, opts config.Options, side, outPath string) error {
	docDir := filepath.Join(snapshotDir, opts.MainDir())

	out, err := os.Create(outPath)
	if err != nil {
		return texerr.FlattenError(side, err)
	}
	defer out.Close()

	err = runner.Run(ctx, run.Cmd{
		Tool:    LatexpandTool,
		Args:    FlattenArgs(opts, opts.MainBase()),
		Dir:     docDir,
		LogName: LogFlatten,
		Stdout:  out,
	})
	if err != nil {
		return texerr.FlattenError(side, err)
	}
	if err := out.Sync(); err != nil {
		return texerr.FlattenError(side, err)
	}
	return nil
}

// FlattenedName returns the workspace file name for a side's expansion,
// e.g. old-paper-fl.tex.
func FlattenedName(side, mainBase string) string {
	stem := mainBase[:len(mainBase)-len(filepath.Ext(mainBase))]
	return fmt.Sprintf("%s-%s-fl.tex", side, stem)
}
