package latex

import (
	"context"
	"io"
	"os"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// BackupSuffix is appended to the new snapshot's original main document
// when the annotated diff takes its place.
const BackupSuffix = ".orig"

// DiffArgs builds the latexdiff argument list: the collected passthrough
// options in their original order, the built-in flatten request when the
// diff tool is responsible for flattening, then the two sources.
func DiffArgs(opts config.Options, mode FlattenMode, oldSource, newSource string) []string {
	args := append([]string{}, opts.LatexdiffOpts...)
	if mode == FlattenDiffTool {
		args = append(args, "--flatten")
	}
	return append(args, oldSource, newSource)
}

// Diff invokes latexdiff on the two sources, writing the annotated
// document to outPath. Nonzero exit is fatal.
func Diff(ctx context.Context, runner run.Runner, opts config.Options, mode FlattenMode, oldSource, newSource, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return texerr.DiffError(err)
	}
	defer out.Close()

	err = runner.Run(ctx, run.Cmd{
		Tool:    LatexdiffTool,
		Args:    DiffArgs(opts, mode, oldSource, newSource),
		LogName: LogDiff,
		Stdout:  out,
	})
	if err != nil {
		return texerr.DiffError(err)
	}
	return out.Sync()
}

// InstallDiff substitutes the annotated document for the new snapshot's
// main document, preserving the original under the backup suffix. This
// substitution is how compilation sees the diff as if it were the real
// document.
func InstallDiff(diffPath, newMainPath string) error {
	if err := os.Rename(newMainPath, newMainPath+BackupSuffix); err != nil {
		return texerr.Wrap(err, texerr.CategoryDiff, "back up original main document")
	}
	if err := moveFile(diffPath, newMainPath); err != nil {
		return texerr.Wrap(err, texerr.CategoryDiff, "install annotated document")
	}
	return nil
}

// moveFile renames src to dst, copying when rename crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
